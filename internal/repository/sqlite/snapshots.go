package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) CreateSnapshot(ctx context.Context, slug string, snap *models.Snapshot) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, save_id, save_type, snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, snap.SaveID, snap.SaveType, string(payload), snap.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: save %s already exists", domain.ErrConflict, snap.SaveID)
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context, slug string, limit int) ([]models.SnapshotInfo, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	query := `SELECT save_id, save_type, snapshot_json, created_at FROM snapshots
		WHERE session_id = ? ORDER BY created_at DESC`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []models.SnapshotInfo
	for rows.Next() {
		var info models.SnapshotInfo
		var payload, createdAt string
		if err := rows.Scan(&info.SaveID, &info.SaveType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap models.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err == nil {
			info.Turn = snap.State.Turn()
		}
		info.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *Store) LoadSnapshot(ctx context.Context, slug, saveID string) (*models.Snapshot, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	var payload string
	err = s.db.QueryRowContext(ctx, `
		SELECT snapshot_json FROM snapshots WHERE session_id = ? AND save_id = ?`, id, saveID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: save %s", domain.ErrSessionMissing, saveID)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}
