package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) SavePreview(ctx context.Context, slug string, p *models.Preview) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO previews (session_id, preview_id, payload_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, preview_id) DO UPDATE SET payload_json = excluded.payload_json`,
		id, p.ID, string(payload), p.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

func (s *Store) LoadPreview(ctx context.Context, slug, previewID string) (*models.Preview, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	var payload string
	err = s.db.QueryRowContext(ctx, `
		SELECT payload_json FROM previews WHERE session_id = ? AND preview_id = ?`, id, previewID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPreviewMissing, previewID)
	}
	if err != nil {
		return nil, fmt.Errorf("load preview: %w", err)
	}
	var p models.Preview
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("parse preview: %w", err)
	}
	return &p, nil
}

func (s *Store) DeletePreview(ctx context.Context, slug, previewID string) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM previews WHERE session_id = ? AND preview_id = ?`, id, previewID); err != nil {
		return fmt.Errorf("delete preview: %w", err)
	}
	return nil
}

func (s *Store) ListPreviews(ctx context.Context, slug string) ([]models.Preview, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload_json FROM previews WHERE session_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("list previews: %w", err)
	}
	defer rows.Close()

	var previews []models.Preview
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan preview: %w", err)
		}
		var p models.Preview
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			continue
		}
		previews = append(previews, p)
	}
	return previews, rows.Err()
}
