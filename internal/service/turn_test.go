package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"wayfarer/internal/domain"
)

// Empty preview: diff reported, nothing reserved, state untouched.
func TestPreview_EmptyReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	result, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:            "quest",
		StatePatch:      map[string]any{"location": "camp"},
		TranscriptEntry: "look",
		LockOwner:       "alice",
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if result.ID == "" {
		t.Error("preview id missing")
	}
	if len(result.Diffs) != 1 || result.Diffs[0].Path != "location" || result.Diffs[0].Changes != "→camp" {
		t.Errorf("unexpected diffs: %+v", result.Diffs)
	}
	if len(result.EntropyPlan.Indices) != 0 || result.EntropyPlan.Usage != "0 rolls" {
		t.Errorf("unexpected entropy plan: %+v", result.EntropyPlan)
	}

	// Preview must not touch state or logs.
	state, err := env.store.LoadState(ctx, "quest")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Turn() != 0 || state.LogIndex() != 0 {
		t.Errorf("preview mutated state: turn=%d log_index=%d", state.Turn(), state.LogIndex())
	}
	transcript, changelog, err := env.store.LogLengths(ctx, "quest")
	if err != nil {
		t.Fatalf("log lengths: %v", err)
	}
	if transcript != 0 || changelog != 0 {
		t.Errorf("preview wrote logs: transcript=%d changelog=%d", transcript, changelog)
	}
}

// Committing the empty preview advances the turn and lands the patch.
func TestCommit_EmptyReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	preview, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:            "quest",
		StatePatch:      map[string]any{"location": "camp"},
		TranscriptEntry: "look",
		LockOwner:       "alice",
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	result, err := env.engine.Commit(ctx, "quest", preview.ID, "alice", nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.State.Turn() != 1 {
		t.Errorf("turn = %d, want 1", result.State.Turn())
	}
	if result.State["location"] != "camp" {
		t.Errorf("location = %v", result.State["location"])
	}
	if result.State.LogIndex() != 0 {
		t.Errorf("log_index = %d, want 0", result.State.LogIndex())
	}
	if result.LogIndices.Transcript != 1 {
		t.Errorf("transcript position = %d, want 1", result.LogIndices.Transcript)
	}

	// The preview is consumed.
	if _, err := env.store.LoadPreview(ctx, "quest", preview.ID); !errors.Is(err, domain.ErrPreviewMissing) {
		t.Errorf("preview should be deleted after commit, got %v", err)
	}
}

// Reservations advance the cursor to the highest reserved index.
func TestCommit_ReservationAdvancesCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	preview, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:            "quest",
		Response:        "you swing",
		DiceExpressions: []string{"1d20", "2d6"},
		LockOwner:       "alice",
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(preview.EntropyPlan.Indices) != 2 || preview.EntropyPlan.Indices[0] != 1 || preview.EntropyPlan.Indices[1] != 2 {
		t.Fatalf("reserved indices = %v, want [1 2]", preview.EntropyPlan.Indices)
	}

	result, err := env.engine.Commit(ctx, "quest", preview.ID, "alice", nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.State.LogIndex() != 2 {
		t.Errorf("log_index = %d, want 2", result.State.LogIndex())
	}
	if len(result.Rolls) != 2 {
		t.Fatalf("rolls = %d, want 2", len(result.Rolls))
	}
	if result.Rolls[0].ConsumedIndices[0] != 1 || result.Rolls[1].ConsumedIndices[0] != 2 {
		t.Errorf("rolls consumed wrong indices: %+v", result.Rolls)
	}
}

// An intervening roll invalidates an outstanding preview.
func TestCommit_StaleAfterInterveningRoll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	preview, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:            "quest",
		Response:        "attack",
		DiceExpressions: []string{"1d20"},
		LockOwner:       "alice",
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	if _, err := env.rolls.Roll(ctx, &RollRequest{
		Slug:       "quest",
		Expression: "1d20",
		Reason:     "perception check",
		LockOwner:  "alice",
	}); err != nil {
		t.Fatalf("roll: %v", err)
	}

	_, err = env.engine.Commit(ctx, "quest", preview.ID, "alice", nil)
	if !errors.Is(err, domain.ErrPreviewStale) {
		t.Fatalf("expected ErrPreviewStale after intervening roll, got %v", err)
	}

	// The stale preview is discarded.
	if _, err := env.store.LoadPreview(ctx, "quest", preview.ID); !errors.Is(err, domain.ErrPreviewMissing) {
		t.Errorf("stale preview should be deleted, got %v", err)
	}
}

// Of two concurrent previews, only the first commit wins.
func TestCommit_ConcurrentPreviews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	p1, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:       "quest",
		StatePatch: map[string]any{"location": "bridge"},
		LockOwner:  "alice",
	})
	if err != nil {
		t.Fatalf("preview 1: %v", err)
	}
	p2, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:       "quest",
		StatePatch: map[string]any{"location": "mill"},
		LockOwner:  "alice",
	})
	if err != nil {
		t.Fatalf("preview 2: %v", err)
	}

	if _, err := env.engine.Commit(ctx, "quest", p2.ID, "alice", nil); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if _, err := env.engine.Commit(ctx, "quest", p1.ID, "alice", nil); !errors.Is(err, domain.ErrPreviewStale) {
		t.Fatalf("second commit should be stale, got %v", err)
	}

	state, err := env.store.LoadState(ctx, "quest")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Turn() != 1 || state["location"] != "mill" {
		t.Errorf("state after racing commits: turn=%d location=%v", state.Turn(), state["location"])
	}
}

// Turn numbers increment by exactly one per commit, and each commit's
// entropy indices are fresh.
func TestCommit_TurnMonotonicity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	seen := map[int]bool{}
	for i := 1; i <= 5; i++ {
		preview, err := env.engine.Preview(ctx, &PreviewRequest{
			Slug:            "quest",
			Response:        fmt.Sprintf("step %d", i),
			DiceExpressions: []string{"1d20"},
			LockOwner:       "alice",
		})
		if err != nil {
			t.Fatalf("preview %d: %v", i, err)
		}
		result, err := env.engine.Commit(ctx, "quest", preview.ID, "alice", nil)
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		if result.State.Turn() != i {
			t.Fatalf("turn after commit %d = %d", i, result.State.Turn())
		}
		for _, roll := range result.Rolls {
			for _, idx := range roll.ConsumedIndices {
				if seen[idx] {
					t.Fatalf("entropy index %d consumed twice", idx)
				}
				seen[idx] = true
			}
		}
	}
	if len(seen) != 5 {
		t.Errorf("5 commits with one die each should consume 5 distinct indices, got %d", len(seen))
	}
}

func TestPreview_RequiresLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Preview(ctx, &PreviewRequest{Slug: "quest", Response: "look"})
	if !errors.Is(err, domain.ErrLockRequired) {
		t.Fatalf("expected ErrLockRequired, got %v", err)
	}
}

func TestPreview_EntropyExhaustion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	exprs := make([]string, 11) // stream only holds 10 entries
	for i := range exprs {
		exprs[i] = "1d20"
	}
	_, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:            "quest",
		Response:        "storm of dice",
		DiceExpressions: exprs,
		LockOwner:       "alice",
	})
	if !errors.Is(err, domain.ErrEntropyExhausted) {
		t.Fatalf("expected ErrEntropyExhausted, got %v", err)
	}
}

func TestPreview_RejectsEngineFieldPatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	_, err := env.engine.Preview(ctx, &PreviewRequest{
		Slug:       "quest",
		StatePatch: map[string]any{"turn": float64(40)},
		LockOwner:  "alice",
	})
	if !errors.Is(err, domain.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestRoll_ConsumesNextIndexAndLogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.claim(t, "alice")

	result, err := env.rolls.Roll(ctx, &RollRequest{
		Slug:       "quest",
		Expression: "1d20+3",
		Reason:     "athletics",
		LockOwner:  "alice",
	})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if len(result.ConsumedIndices) != 1 || result.ConsumedIndices[0] != 1 {
		t.Errorf("consumed = %v, want [1]", result.ConsumedIndices)
	}
	if result.Phrase == "" || result.Breakdown == "" {
		t.Error("roll output should include phrase and breakdown")
	}

	state, err := env.store.LoadState(ctx, "quest")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.LogIndex() != 1 {
		t.Errorf("log_index = %d, want 1", state.LogIndex())
	}
	transcript, _, err := env.store.LogLengths(ctx, "quest")
	if err != nil {
		t.Fatalf("log lengths: %v", err)
	}
	if transcript != 1 {
		t.Errorf("transcript entries = %d, want 1", transcript)
	}
}

func TestRoll_RequiresLock(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.rolls.Roll(context.Background(), &RollRequest{Slug: "quest", Expression: "1d20"})
	if !errors.Is(err, domain.ErrLockRequired) {
		t.Fatalf("expected ErrLockRequired, got %v", err)
	}
}
