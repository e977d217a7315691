package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) GetLock(ctx context.Context, slug string) (*models.Lock, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	var lock models.Lock
	var acquiredAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT owner, ttl_seconds, acquired_at FROM locks WHERE session_id = ?`, id).
		Scan(&lock.Owner, &lock.TTLSeconds, &acquiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load lock: %w", err)
	}
	lock.AcquiredAt, _ = time.Parse(timeFormat, acquiredAt)
	return &lock, nil
}

// TryClaimLock relies on the primary key: the conditional insert either
// lands the single row for this session or fails, so concurrent claimants
// are arbitrated by the database.
func (s *Store) TryClaimLock(ctx context.Context, slug string, lock *models.Lock) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO locks (session_id, owner, ttl_seconds, acquired_at) VALUES (?, ?, ?, ?)`,
		id, lock.Owner, lock.TTLSeconds, lock.AcquiredAt.UTC().Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			current, loadErr := s.GetLock(ctx, slug)
			if loadErr == nil && current != nil {
				return &domain.LockHeldError{Owner: current.Owner}
			}
			return &domain.LockHeldError{}
		}
		return fmt.Errorf("claim lock: %w", err)
	}
	return nil
}

func (s *Store) RefreshLock(ctx context.Context, slug string, lock *models.Lock) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO locks (session_id, owner, ttl_seconds, acquired_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			owner = excluded.owner,
			ttl_seconds = excluded.ttl_seconds,
			acquired_at = excluded.acquired_at`,
		id, lock.Owner, lock.TTLSeconds, lock.AcquiredAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("refresh lock: %w", err)
	}
	return nil
}

func (s *Store) RemoveLock(ctx context.Context, slug string) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("remove lock: %w", err)
	}
	return nil
}
