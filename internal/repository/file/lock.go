package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) GetLock(ctx context.Context, slug string) (*models.Lock, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	var lock models.Lock
	if err := readJSON(s.sessionPath(slug, lockFile), &lock); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

// TryClaimLock installs the lock with O_CREATE|O_EXCL: the kernel arbitrates
// concurrent claims, so exactly one creator wins. Never check-then-create.
func (s *Store) TryClaimLock(ctx context.Context, slug string, lock *models.Lock) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	data, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	f, err := os.OpenFile(s.sessionPath(slug, lockFile), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			current, loadErr := s.GetLock(ctx, slug)
			if loadErr == nil && current != nil {
				return &domain.LockHeldError{Owner: current.Owner}
			}
			return &domain.LockHeldError{}
		}
		return fmt.Errorf("create lock file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return f.Sync()
}

func (s *Store) RefreshLock(ctx context.Context, slug string, lock *models.Lock) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	return writeJSONAtomic(s.sessionPath(slug, lockFile), lock)
}

func (s *Store) RemoveLock(ctx context.Context, slug string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	err := os.Remove(s.sessionPath(slug, lockFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
