package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/processor"
	"github.com/MikeSquared-Agency/curator/internal/sample"
)

const maxListLimit = 1000

// CurateRequest is the body of POST /api/v1/users/{userID}/curate.
type CurateRequest struct {
	SourceFilter string   `json:"source_filter,omitempty"`
	MaxSamples   *int     `json:"max_samples,omitempty"`
	MinQuality   *float64 `json:"min_quality,omitempty"`
}

// SamplesResponse is the body of GET /api/v1/users/{userID}/samples.
type SamplesResponse struct {
	Samples []sample.TrainingSample `json:"samples"`
	Count   int                     `json:"count"`
}

func userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

// curate handles POST /api/v1/users/{userID}/curate
func (s *Server) curate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req CurateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.MaxSamples != nil && *req.MaxSamples < 0 {
		writeError(w, http.StatusBadRequest, "max_samples must not be negative")
		return
	}
	if req.MinQuality != nil && (*req.MinQuality < 0 || *req.MinQuality > 1) {
		writeError(w, http.StatusBadRequest, "min_quality must be within [0,1]")
		return
	}

	report, err := s.curator.Curate(r.Context(), processor.Request{
		UserID:       userID,
		SourceFilter: req.SourceFilter,
		MaxSamples:   req.MaxSamples,
		MinQuality:   req.MinQuality,
	})
	switch {
	case errors.Is(err, processor.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("curation failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("curation failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// listSamples handles GET /api/v1/users/{userID}/samples
func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	samples, err := s.samples.ListSamples(r.Context(), userID, r.URL.Query().Get("intent"), limit)
	if err != nil {
		s.logger.Error("list samples failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "list samples failed")
		return
	}
	if samples == nil {
		samples = []sample.TrainingSample{}
	}

	writeJSON(w, http.StatusOK, SamplesResponse{Samples: samples, Count: len(samples)})
}

// intentCounts handles GET /api/v1/users/{userID}/samples/intents
func (s *Server) intentCounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	counts, err := s.samples.CountByIntent(r.Context(), userID)
	if err != nil {
		s.logger.Error("count intents failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "count intents failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "intents": counts})
}
