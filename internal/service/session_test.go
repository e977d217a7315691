package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"wayfarer/internal/assets"
	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/repository/file"
)

const testWorldsYAML = `worlds:
  - name: testvale
    description: a test world
    state:
      turn: 7
      log_index: 9
      hp: 11
      max_hp: 11
      location: vale-gate
    character:
      name: Tester
      class: rogue
    hooks:
      - title: A hook
        text: Something stirs.
`

func catalogFromYAML(t *testing.T) *assets.Catalog {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "worlds.yaml"), []byte(testWorldsYAML), 0o644); err != nil {
		t.Fatalf("write worlds.yaml: %v", err)
	}
	catalog, err := assets.Load(dir)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func newSessionService(t *testing.T) (*SessionService, repositories.Storage, *LockManager) {
	t.Helper()
	logger := quietLogger()
	store, err := file.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	locks := NewLockManager(store, logger)
	return NewSessionService(store, locks, catalogFromYAML(t), logger), store, locks
}

// Cloning from a world template resets the engine counters and keeps the
// template's fields, and the clone carries the template character.
func TestSessionCreate_FromWorldTemplate(t *testing.T) {
	svc, store, _ := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "run-one", "testvale")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.World != "testvale" {
		t.Errorf("world = %q", sess.World)
	}

	state, err := store.LoadState(ctx, "run-one")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Turn() != 0 || state.LogIndex() != 0 {
		t.Errorf("counters not reset: turn=%d log_index=%d", state.Turn(), state.LogIndex())
	}
	if state["hp"] != float64(11) || state["location"] != "vale-gate" {
		t.Errorf("template fields missing: %v", state)
	}

	character, err := store.LoadCharacter(ctx, "run-one")
	if err != nil {
		t.Fatalf("load character: %v", err)
	}
	if character == nil || character.Sheet["name"] != "Tester" {
		t.Errorf("character = %+v", character)
	}

	// The clone starts with only the initialization transcript line.
	transcript, changelog, err := store.LogLengths(ctx, "run-one")
	if err != nil {
		t.Fatalf("log lengths: %v", err)
	}
	if transcript != 1 || changelog != 0 {
		t.Errorf("fresh logs: transcript=%d changelog=%d", transcript, changelog)
	}
}

func TestSessionCreate_DuplicateSlugConflicts(t *testing.T) {
	svc, _, _ := newSessionService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "dup", "testvale"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, "dup", "testvale"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSessionCreate_RejectsBadSlug(t *testing.T) {
	svc, _, _ := newSessionService(t)
	if _, err := svc.Create(context.Background(), "Bad Slug!", "testvale"); !errors.Is(err, domain.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestSnapshot_CreateAndRestore(t *testing.T) {
	svc, store, locks := newSessionService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "saves", "testvale"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := locks.Claim(ctx, "saves", "alice", 300); err != nil {
		t.Fatalf("claim: %v", err)
	}

	snap, err := svc.CreateSnapshot(ctx, "saves", "alice")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SaveType != models.SaveTypeManual {
		t.Errorf("save type = %q", snap.SaveType)
	}

	// Mutate state, then restore.
	state, _ := store.LoadState(ctx, "saves")
	state["hp"] = float64(1)
	state["location"] = "lost"
	if err := store.SaveState(ctx, "saves", state); err != nil {
		t.Fatalf("save state: %v", err)
	}

	restored, err := svc.RestoreSnapshot(ctx, "saves", snap.SaveID, "alice")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored["hp"] != float64(11) || restored["location"] != "vale-gate" {
		t.Errorf("restored state = %v", restored)
	}

	// Restore requires the lock.
	if err := locks.Release(ctx, "saves", "alice"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := svc.RestoreSnapshot(ctx, "saves", snap.SaveID, ""); !errors.Is(err, domain.ErrLockRequired) {
		t.Errorf("expected ErrLockRequired, got %v", err)
	}
}

func TestSnapshot_RequiresLock(t *testing.T) {
	svc, _, _ := newSessionService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "saves", "testvale"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateSnapshot(ctx, "saves", ""); !errors.Is(err, domain.ErrLockRequired) {
		t.Fatalf("expected ErrLockRequired, got %v", err)
	}
}

func TestSaveDoc_DryRunAndApply(t *testing.T) {
	svc, store, _ := newSessionService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "docs", "testvale"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.SaveDoc(ctx, "docs", models.DocMood, map[string]any{"tone": "calm", "weather": "clear"}); err != nil {
		t.Fatalf("seed doc: %v", err)
	}

	// Dry run: reports diff and warnings, persists nothing.
	result, err := svc.SaveDoc(ctx, "docs", models.DocMood, map[string]any{"tone": "grim"}, true, "")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Applied {
		t.Error("dry run must not apply")
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v", result.Warnings)
	}
	doc, _ := store.LoadDoc(ctx, "docs", models.DocMood)
	if doc["tone"] != "calm" {
		t.Errorf("dry run persisted: %v", doc)
	}

	// Real write replaces the whole document.
	result, err = svc.SaveDoc(ctx, "docs", models.DocMood, map[string]any{"tone": "grim"}, false, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !result.Applied {
		t.Error("write should apply")
	}
	doc, _ = store.LoadDoc(ctx, "docs", models.DocMood)
	if doc["tone"] != "grim" {
		t.Errorf("doc after write = %v", doc)
	}
	if _, ok := doc["weather"]; ok {
		t.Error("whole-document replace must drop absent fields")
	}
}

func TestSaveDoc_UnknownKind(t *testing.T) {
	svc, _, _ := newSessionService(t)
	_, err := svc.SaveDoc(context.Background(), "docs", "grocery-list", map[string]any{}, false, "")
	if !errors.Is(err, domain.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}
