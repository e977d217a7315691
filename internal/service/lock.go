package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
)

// DefaultLockTTL applies when a claim does not name one.
const DefaultLockTTL = 300

// LockManager implements the per-session writer lease. The backend supplies
// the atomic claim primitive; owner and TTL semantics live here.
type LockManager struct {
	store  repositories.LockStore
	logger *slog.Logger
	now    func() time.Time
}

// NewLockManager creates a lock manager over the given store.
func NewLockManager(store repositories.LockStore, logger *slog.Logger) *LockManager {
	return &LockManager{store: store, logger: logger, now: time.Now}
}

// Claim acquires or refreshes the session lock. Succeeds when the session is
// unlocked, the holder expired, or the claimant already owns it. An empty
// owner gets a generated one; the returned lock carries it.
func (m *LockManager) Claim(ctx context.Context, slug, owner string, ttl int) (*models.Lock, error) {
	if owner == "" {
		owner = uuid.New().String()
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	lock := &models.Lock{Owner: owner, TTLSeconds: ttl, AcquiredAt: m.now().UTC()}

	current, err := m.store.GetLock(ctx, slug)
	if err != nil {
		return nil, err
	}

	switch {
	case current == nil:
		if err := m.store.TryClaimLock(ctx, slug, lock); err != nil {
			return nil, err
		}
		return lock, nil

	case current.Owner == owner:
		// Idempotent refresh by the holder.
		if err := m.store.RefreshLock(ctx, slug, lock); err != nil {
			return nil, err
		}
		return lock, nil

	case current.ExpiredAt(m.now()):
		// Take over a lapsed lease: remove, then race for the exclusive
		// create. Losing the race means someone else took over first.
		if err := m.store.RemoveLock(ctx, slug); err != nil {
			return nil, err
		}
		if err := m.store.TryClaimLock(ctx, slug, lock); err != nil {
			return nil, err
		}
		m.logger.Info("lock taken over from expired holder",
			"slug", slug,
			"previous_owner", current.Owner,
			"owner", owner,
		)
		return lock, nil

	default:
		return nil, &domain.LockHeldError{Owner: current.Owner}
	}
}

// Release removes the lock. An empty owner releases unconditionally; a named
// owner must match the holder.
func (m *LockManager) Release(ctx context.Context, slug, owner string) error {
	current, err := m.store.GetLock(ctx, slug)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	if owner != "" && current.Owner != owner {
		return fmt.Errorf("%w: held by %q", domain.ErrLockOwnerMismatch, current.Owner)
	}
	return m.store.RemoveLock(ctx, slug)
}

// Require verifies the lock is held and unexpired. With a named owner the
// holder must match; with an empty owner any valid holder passes.
func (m *LockManager) Require(ctx context.Context, slug, owner string) (*models.Lock, error) {
	current, err := m.store.GetLock(ctx, slug)
	if err != nil {
		return nil, err
	}
	if current == nil || current.ExpiredAt(m.now()) {
		return nil, fmt.Errorf("%w: claim the session lock first", domain.ErrLockRequired)
	}
	if owner != "" && current.Owner != owner {
		return nil, fmt.Errorf("%w: lock held by another owner", domain.ErrLockRequired)
	}
	return current, nil
}

// Status reports the lock for read-only callers.
func (m *LockManager) Status(ctx context.Context, slug string) (*models.LockStatus, error) {
	current, err := m.store.GetLock(ctx, slug)
	if err != nil {
		return nil, err
	}
	if current == nil || current.ExpiredAt(m.now()) {
		return &models.LockStatus{Held: false}, nil
	}
	return &models.LockStatus{
		Held:      true,
		Owner:     current.Owner,
		ExpiresAt: current.ExpiresAt(),
	}, nil
}
