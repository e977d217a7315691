package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wayfarer/internal/domain"
)

func TestLockManager_ClaimReleaseCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lock, err := env.locks.Claim(ctx, "quest", "alice", 60)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if lock.Owner != "alice" || lock.TTLSeconds != 60 {
		t.Errorf("unexpected lock: %+v", lock)
	}

	// Another owner is refused while the lease is live.
	_, err = env.locks.Claim(ctx, "quest", "bob", 60)
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	var held *domain.LockHeldError
	if !errors.As(err, &held) || held.Owner != "alice" {
		t.Errorf("LockHeld should name the current owner, got %v", err)
	}

	// The holder can refresh idempotently.
	if _, err := env.locks.Claim(ctx, "quest", "alice", 120); err != nil {
		t.Errorf("refresh by owner failed: %v", err)
	}

	// Non-owner release is refused; owner release succeeds.
	if err := env.locks.Release(ctx, "quest", "bob"); !errors.Is(err, domain.ErrLockOwnerMismatch) {
		t.Errorf("expected ErrLockOwnerMismatch, got %v", err)
	}
	if err := env.locks.Release(ctx, "quest", "alice"); err != nil {
		t.Errorf("release by owner failed: %v", err)
	}

	status, err := env.locks.Status(ctx, "quest")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Held {
		t.Error("lock should be free after release")
	}
}

func TestLockManager_ExpiredTakeover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.locks.Claim(ctx, "quest", "alice", 60); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Move the manager's clock past the lease.
	env.locks.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	lock, err := env.locks.Claim(ctx, "quest", "bob", 60)
	if err != nil {
		t.Fatalf("takeover of expired lock failed: %v", err)
	}
	if lock.Owner != "bob" {
		t.Errorf("lock owner after takeover = %q", lock.Owner)
	}
}

func TestLockManager_RequireSemantics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.locks.Require(ctx, "quest", "alice"); !errors.Is(err, domain.ErrLockRequired) {
		t.Errorf("unlocked session should fail Require, got %v", err)
	}

	env.claim(t, "alice")
	if _, err := env.locks.Require(ctx, "quest", "alice"); err != nil {
		t.Errorf("holder should pass Require: %v", err)
	}
	if _, err := env.locks.Require(ctx, "quest", ""); err != nil {
		t.Errorf("empty owner should accept any valid holder: %v", err)
	}
	if _, err := env.locks.Require(ctx, "quest", "bob"); !errors.Is(err, domain.ErrLockRequired) {
		t.Errorf("non-holder should fail Require, got %v", err)
	}

	// An expired lease never satisfies Require.
	env.locks.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := env.locks.Require(ctx, "quest", "alice"); !errors.Is(err, domain.ErrLockRequired) {
		t.Errorf("expired lock should fail Require, got %v", err)
	}
}

// A burst of concurrent claims by distinct owners admits exactly one winner:
// the backend's exclusive-create primitive arbitrates.
func TestLockManager_ConcurrentClaimBurst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const claimants = 16
	var wg sync.WaitGroup
	results := make([]error, claimants)

	start := make(chan struct{})
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = env.locks.Claim(ctx, "quest", string(rune('a'+i)), 60)
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for i, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domain.ErrLockHeld):
		default:
			t.Errorf("claimant %d unexpected error: %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("exactly one claim must win, got %d", winners)
	}
}
