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

func (s *Store) LoadCharacter(ctx context.Context, slug string) (*models.CharacterRecord, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	rec, err := s.loadCharacterRow(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) loadCharacterRow(ctx context.Context, sessionID int64) (*models.CharacterRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT character_json FROM characters WHERE session_id = ? LIMIT 1`, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}
	var rec models.CharacterRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("parse character: %w", err)
	}
	return &rec, nil
}

func (s *Store) SaveCharacter(ctx context.Context, slug string, rec *models.CharacterRecord, persistShared bool) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal character: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save character: %w", err)
	}
	defer tx.Rollback()

	if err := upsertCharacter(ctx, tx, id, rec.Slug, string(payload), false); err != nil {
		return err
	}
	if persistShared {
		if err := upsertCharacter(ctx, tx, sharedSessionID, rec.Slug, string(payload), true); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertCharacter(ctx context.Context, q queryer, sessionID int64, slug, payload string, shared bool) error {
	sharedFlag := 0
	if shared {
		sharedFlag = 1
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO characters (session_id, slug, character_json, is_shared, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, slug) DO UPDATE SET
			character_json = excluded.character_json,
			updated_at = excluded.updated_at`,
		sessionID, slug, payload, sharedFlag, now(), now())
	if err != nil {
		return fmt.Errorf("upsert character: %w", err)
	}
	return nil
}

func (s *Store) LoadSharedCharacter(ctx context.Context, slug string) (*models.CharacterRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT character_json FROM characters WHERE session_id = ? AND slug = ?`,
		sharedSessionID, slug).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: shared character %s", domain.ErrSessionMissing, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("load shared character: %w", err)
	}
	var rec models.CharacterRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("parse shared character: %w", err)
	}
	return &rec, nil
}

func (s *Store) SaveSharedCharacter(ctx context.Context, rec *models.CharacterRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal character: %w", err)
	}
	return upsertCharacter(ctx, s.db, sharedSessionID, rec.Slug, string(payload), true)
}
