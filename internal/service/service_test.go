package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"wayfarer/internal/assets"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/entropy"
	"wayfarer/internal/events"
	"wayfarer/internal/repository/file"
)

// testEnv wires a file-backed engine around one session.
type testEnv struct {
	store   repositories.Storage
	locks   *LockManager
	source  *entropy.Source
	bus     *events.Bus
	engine  *TurnEngine
	rolls   *RollService
	session *SessionService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv creates a session "quest" at turn 0 with a 10-entry entropy
// stream and no initialization transcript line.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := quietLogger()
	store, err := file.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	ctx := context.Background()
	state := models.State{"turn": float64(0), "log_index": float64(0), "hp": float64(10)}
	sess := &models.Session{Slug: "quest", World: "greenhollow", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateSession(ctx, sess, state, nil, ""); err != nil {
		t.Fatalf("create session: %v", err)
	}

	source := entropy.NewSource(store)
	if _, err := source.Extend(ctx, 1234, 10); err != nil {
		t.Fatalf("extend entropy: %v", err)
	}

	locks := NewLockManager(store, logger)
	bus := events.NewBus(logger)
	engine := NewTurnEngine(store, locks, source, bus, 0, logger)
	rolls := NewRollService(store, locks, source, bus, logger)
	catalog, err := assets.Load("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	session := NewSessionService(store, locks, catalog, logger)

	return &testEnv{
		store:   store,
		locks:   locks,
		source:  source,
		bus:     bus,
		engine:  engine,
		rolls:   rolls,
		session: session,
	}
}

// claim takes the session lock for the given owner.
func (env *testEnv) claim(t *testing.T, owner string) {
	t.Helper()
	if _, err := env.locks.Claim(context.Background(), "quest", owner, 300); err != nil {
		t.Fatalf("claim lock: %v", err)
	}
}
