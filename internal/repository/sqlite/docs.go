package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wayfarer/internal/domain/models"
)

func (s *Store) LoadDoc(ctx context.Context, slug string, kind models.DocKind) (map[string]any, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	var payload string
	err = s.db.QueryRowContext(ctx, `
		SELECT payload_json FROM session_docs WHERE session_id = ? AND kind = ?`, id, string(kind)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load doc %s: %w", kind, err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("parse doc %s: %w", kind, err)
	}
	return doc, nil
}

func (s *Store) SaveDoc(ctx context.Context, slug string, kind models.DocKind, payload map[string]any) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal doc %s: %w", kind, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_docs (session_id, kind, payload_json) VALUES (?, ?, ?)
		ON CONFLICT (session_id, kind) DO UPDATE SET payload_json = excluded.payload_json`,
		id, string(kind), string(data))
	if err != nil {
		return fmt.Errorf("save doc %s: %w", kind, err)
	}
	return nil
}
