package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wayfarer/internal/domain/models"
)

func (s *Store) AppendEntropy(ctx context.Context, entries []models.EntropyEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entropy append: %w", err)
	}
	defer tx.Rollback()

	var length int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(entropy_index), 0) FROM entropy`).Scan(&length); err != nil {
		return fmt.Errorf("entropy length: %w", err)
	}
	for i, e := range entries {
		if e.Index != length+1+i {
			return fmt.Errorf("entropy append out of order: got index %d, want %d", e.Index, length+1+i)
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entropy entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entropy (entropy_index, entropy_json) VALUES (?, ?)`,
			e.Index, string(payload)); err != nil {
			return fmt.Errorf("insert entropy entry %d: %w", e.Index, err)
		}
	}
	return tx.Commit()
}

func (s *Store) LoadEntropy(ctx context.Context, index int) (*models.EntropyEntry, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT entropy_json FROM entropy WHERE entropy_index = ?`, index).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load entropy entry: %w", err)
	}
	var entry models.EntropyEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("parse entropy entry: %w", err)
	}
	return &entry, nil
}

func (s *Store) PeekEntropy(ctx context.Context, limit int) ([]models.EntropyEntry, error) {
	query := `SELECT entropy_json FROM entropy ORDER BY entropy_index`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("peek entropy: %w", err)
	}
	defer rows.Close()

	var entries []models.EntropyEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan entropy entry: %w", err)
		}
		var entry models.EntropyEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("parse entropy entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) EntropyLength(ctx context.Context) (int, error) {
	var length int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(entropy_index), 0) FROM entropy`).Scan(&length); err != nil {
		return 0, fmt.Errorf("entropy length: %w", err)
	}
	return length, nil
}
