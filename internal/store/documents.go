package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/archive"
)

// InsertDocument stores an uploaded export body.
func (s *Store) InsertDocument(ctx context.Context, doc archive.Document) error {
	participants := doc.Metadata.Participants
	if participants == nil {
		participants = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, user_id, source_type, raw_body, account_name, participants, title)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		doc.ID, doc.UserID, doc.Source, doc.RawBody, doc.Metadata.AccountName, participants, doc.Metadata.Title,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// ListDocuments returns the user's documents passing sourceFilter, oldest first.
func (s *Store) ListDocuments(ctx context.Context, userID uuid.UUID, sourceFilter string) ([]archive.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, source_type, raw_body, account_name, participants, title
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []archive.Document
	for rows.Next() {
		var d archive.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Source, &d.RawBody, &d.Metadata.AccountName, &d.Metadata.Participants, &d.Metadata.Title); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if !archive.MatchesFilter(d.Source, sourceFilter) {
			continue
		}
		d.SourceType = archive.ParseFormat(d.Source)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
