package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/sample"
)

// WriteSample inserts one training sample. It reports false without error
// when the user already has a sample with the same dedup signature.
func (s *Store) WriteSample(ctx context.Context, ts sample.TrainingSample) (bool, error) {
	contextJSON, err := json.Marshal(ts.Context)
	if err != nil {
		return false, fmt.Errorf("marshal context: %w", err)
	}

	var negType *string
	if ts.NegativeType != nil {
		v := string(*ts.NegativeType)
		negType = &v
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO training_samples (
			id, user_id, source_doc_id, response, context, message_ts, emotional_tag, quality,
			style_tags, intent_tags, primary_intent, embedding, dedup_signature, template_flag,
			target_person, intimacy_level, negative_response, negative_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (user_id, dedup_signature) DO NOTHING`,
		ts.ID, ts.UserID, nullUUID(ts.SourceDocID), ts.Response, contextJSON, ts.Timestamp, string(ts.EmotionalTag), ts.Quality,
		nonNil(ts.StyleTags), nonNil(ts.IntentTags), ts.PrimaryIntent(), ts.Embedding, ts.DedupSignature, ts.TemplateFlag,
		ts.TargetPerson, ts.IntimacyLevel, ts.NegativeResponse, negType,
	)
	if err != nil {
		return false, fmt.Errorf("insert training sample: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// LoadSignatures returns every dedup signature persisted for the user.
func (s *Store) LoadSignatures(ctx context.Context, userID uuid.UUID) (sample.SignatureSet, error) {
	rows, err := s.pool.Query(ctx, `SELECT dedup_signature FROM training_samples WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	set := sample.SignatureSet{}
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		set.Add(sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return set, nil
}

// ListSamples returns the user's samples, highest quality first. An empty
// intent lists all; limit <= 0 means no limit.
func (s *Store) ListSamples(ctx context.Context, userID uuid.UUID, intent string, limit int) ([]sample.TrainingSample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, source_doc_id, response, context, message_ts, emotional_tag, quality,
			style_tags, intent_tags, dedup_signature, template_flag, target_person, intimacy_level,
			negative_response, negative_type
		FROM training_samples
		WHERE user_id = $1 AND ($2 = '' OR primary_intent = $2)
		ORDER BY quality DESC, created_at, id
		LIMIT NULLIF($3, 0)`,
		userID, intent, max(limit, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []sample.TrainingSample
	for rows.Next() {
		var (
			ts          sample.TrainingSample
			sourceDoc   *uuid.UUID
			contextJSON []byte
			emotion     string
			negType     *string
		)
		err := rows.Scan(&ts.ID, &ts.UserID, &sourceDoc, &ts.Response, &contextJSON, &ts.Timestamp, &emotion, &ts.Quality,
			&ts.StyleTags, &ts.IntentTags, &ts.DedupSignature, &ts.TemplateFlag, &ts.TargetPerson, &ts.IntimacyLevel,
			&ts.NegativeResponse, &negType)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if sourceDoc != nil {
			ts.SourceDocID = *sourceDoc
		}
		if err := json.Unmarshal(contextJSON, &ts.Context); err != nil {
			return nil, fmt.Errorf("decode context of %s: %w", ts.ID, err)
		}
		ts.EmotionalTag = sample.EmotionalTag(emotion)
		if negType != nil {
			nt := sample.NegativeType(*negType)
			ts.NegativeType = &nt
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// CountByIntent returns the number of samples per primary intent.
func (s *Store) CountByIntent(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT primary_intent, count(*)
		FROM training_samples
		WHERE user_id = $1
		GROUP BY primary_intent`, userID)
	if err != nil {
		return nil, fmt.Errorf("query intent counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var intent string
		var n int
		if err := rows.Scan(&intent, &n); err != nil {
			return nil, fmt.Errorf("scan intent count: %w", err)
		}
		counts[intent] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intent counts: %w", err)
	}
	return counts, nil
}

func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
