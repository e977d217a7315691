package service

import (
	"context"
	"fmt"
	"log/slog"

	"wayfarer/internal/dice"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/entropy"
	"wayfarer/internal/events"
)

// RollService performs ad-hoc rolls outside the turn protocol. Each roll
// consumes the next entropy index under the session lock, which also
// invalidates any outstanding preview by changing the state hash.
type RollService struct {
	store   repositories.Storage
	locks   *LockManager
	entropy *entropy.Source
	bus     *events.Bus
	logger  *slog.Logger
}

// NewRollService wires the roll service.
func NewRollService(store repositories.Storage, locks *LockManager, src *entropy.Source, bus *events.Bus, logger *slog.Logger) *RollService {
	return &RollService{store: store, locks: locks, entropy: src, bus: bus, logger: logger}
}

// RollRequest is the ad-hoc roll input.
type RollRequest struct {
	Slug       string `json:"-"`
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
	LockOwner  string `json:"lock_owner"`
}

// Roll evaluates the expression against the next entropy index, advances the
// session's cursor, and appends one transcript line. If a turn record exists
// for the current turn, the roll is appended to it.
func (s *RollService) Roll(ctx context.Context, req *RollRequest) (*models.RollResult, error) {
	if _, err := s.locks.Require(ctx, req.Slug, req.LockOwner); err != nil {
		return nil, err
	}

	expr, err := dice.Parse(req.Expression)
	if err != nil {
		return nil, err
	}

	state, err := s.store.LoadState(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	nextIndex := state.LogIndex() + 1
	if err := s.entropy.EnsureAvailable(ctx, nextIndex); err != nil {
		return nil, err
	}
	entry, err := s.entropy.Load(ctx, nextIndex)
	if err != nil {
		return nil, err
	}
	roll, err := dice.Evaluate(expr, entry)
	if err != nil {
		return nil, err
	}
	roll.Phrase = rollPhrase(req.Reason, roll)

	state.SetLogIndex(nextIndex)
	if err := s.store.SaveState(ctx, req.Slug, state); err != nil {
		return nil, err
	}
	position, err := s.store.AppendTranscript(ctx, req.Slug, "🎲 "+roll.Phrase)
	if err != nil {
		return nil, err
	}

	// Attach to the current turn's record when one exists; a roll before the
	// first commit has no record to land on.
	if rec, err := s.store.LoadTurnRecord(ctx, req.Slug, state.Turn()); err == nil && rec != nil {
		if err := s.store.AppendRollsToTurn(ctx, req.Slug, state.Turn(), []models.RollResult{*roll}); err != nil {
			s.logger.Warn("roll record append failed", "slug", req.Slug, "turn", state.Turn(), "error", err)
		}
	}

	s.logger.Info("ad-hoc roll",
		"slug", req.Slug,
		"expression", req.Expression,
		"total", roll.Total,
		"entropy_index", nextIndex,
	)

	s.bus.Publish(req.Slug, models.UpdateEvent{
		Turn: state.Turn(),
		Transcript: &models.EntryDelta{
			Lines:  []models.Entry{{ID: position, Text: models.NormalizeEntryText("🎲 " + roll.Phrase)}},
			Cursor: position,
		},
		Rolls: &models.RollsDelta{Turn: state.Turn(), Items: []models.RollResult{*roll}},
	})

	return roll, nil
}

func rollPhrase(reason string, roll *models.RollResult) string {
	if reason != "" {
		return fmt.Sprintf("%s: %s", reason, roll.Breakdown)
	}
	return roll.Breakdown
}
