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

func (s *Store) PersistTurnRecord(ctx context.Context, slug string, rec *models.TurnRecord) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	return persistTurnRecordTx(ctx, s.db, id, rec)
}

func persistTurnRecordTx(ctx context.Context, q queryer, id int64, rec *models.TurnRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO turns (session_id, turn_number, turn_record_json, created_at)
		VALUES (?, ?, ?, ?)`,
		id, rec.Turn, string(recJSON), rec.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: turn record %d already exists", domain.ErrConflict, rec.Turn)
		}
		return fmt.Errorf("insert turn record: %w", err)
	}
	return nil
}

func (s *Store) LoadTurnRecords(ctx context.Context, slug string, limit int) ([]models.TurnRecord, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	query := `SELECT turn_record_json FROM turns WHERE session_id = ? ORDER BY turn_number DESC`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load turn records: %w", err)
	}
	defer rows.Close()

	var records []models.TurnRecord
	for rows.Next() {
		var recJSON string
		if err := rows.Scan(&recJSON); err != nil {
			return nil, fmt.Errorf("scan turn record: %w", err)
		}
		var rec models.TurnRecord
		if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
			return nil, fmt.Errorf("parse turn record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) LoadTurnRecord(ctx context.Context, slug string, turn int) (*models.TurnRecord, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	var recJSON string
	err = s.db.QueryRowContext(ctx, `
		SELECT turn_record_json FROM turns WHERE session_id = ? AND turn_number = ?`, id, turn).Scan(&recJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load turn record: %w", err)
	}
	var rec models.TurnRecord
	if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
		return nil, fmt.Errorf("parse turn record: %w", err)
	}
	return &rec, nil
}

func (s *Store) AppendRollsToTurn(ctx context.Context, slug string, turn int, rolls []models.RollResult) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append rolls: %w", err)
	}
	defer tx.Rollback()

	var recJSON string
	err = tx.QueryRowContext(ctx, `
		SELECT turn_record_json FROM turns WHERE session_id = ? AND turn_number = ?`, id, turn).Scan(&recJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: no turn record %d", domain.ErrConflict, turn)
	}
	if err != nil {
		return fmt.Errorf("load turn record: %w", err)
	}
	var rec models.TurnRecord
	if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
		return fmt.Errorf("parse turn record: %w", err)
	}
	rec.Rolls = append(rec.Rolls, rolls...)
	updated, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE turns SET turn_record_json = ? WHERE session_id = ? AND turn_number = ?`,
		string(updated), id, turn); err != nil {
		return fmt.Errorf("update turn record: %w", err)
	}
	return tx.Commit()
}

// now returns the canonical stored timestamp.
func now() string {
	return time.Now().UTC().Format(timeFormat)
}
