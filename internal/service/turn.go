package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wayfarer/internal/dice"
	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/entropy"
	"wayfarer/internal/events"
	"wayfarer/internal/statedoc"
)

// Preview retention bounds; sweeps run lazily on preview creation.
const (
	previewMaxAge   = time.Hour
	previewMaxCount = 32
)

// TurnEngine runs the preview/commit protocol: optimistic concurrency on a
// base turn + stable state hash, entropy reserved at preview and consumed at
// commit, and an all-or-nothing write set.
type TurnEngine struct {
	store         repositories.Storage
	locks         *LockManager
	entropy       *entropy.Source
	bus           *events.Bus
	logger        *slog.Logger
	autoSaveEvery int
	now           func() time.Time
}

// NewTurnEngine wires the engine's collaborators. autoSaveEvery <= 0 disables
// auto-saves.
func NewTurnEngine(store repositories.Storage, locks *LockManager, src *entropy.Source, bus *events.Bus, autoSaveEvery int, logger *slog.Logger) *TurnEngine {
	return &TurnEngine{
		store:         store,
		locks:         locks,
		entropy:       src,
		bus:           bus,
		logger:        logger,
		autoSaveEvery: autoSaveEvery,
		now:           time.Now,
	}
}

// PreviewRequest carries the proposed turn.
type PreviewRequest struct {
	Slug            string         `json:"-"`
	Response        string         `json:"response"`
	StatePatch      map[string]any `json:"state_patch"`
	TranscriptEntry string         `json:"transcript_entry"`
	ChangelogEntry  map[string]any `json:"changelog_entry"`
	DiceExpressions []string       `json:"dice_expressions"`
	LockOwner       string         `json:"lock_owner"`
}

// PreviewResult is returned to the client as the reservation plan.
type PreviewResult struct {
	ID          string             `json:"id"`
	Diffs       []models.DiffEntry `json:"diffs"`
	EntropyPlan models.EntropyPlan `json:"entropy_plan"`
}

// Preview validates the proposal, reserves entropy, and persists the
// reservation witness. It performs no writes to state, logs, or the entropy
// cursor.
func (e *TurnEngine) Preview(ctx context.Context, req *PreviewRequest) (*PreviewResult, error) {
	if _, err := e.locks.Require(ctx, req.Slug, req.LockOwner); err != nil {
		return nil, err
	}

	state, err := e.store.LoadState(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	baseHash := statedoc.StableHash(state)

	if err := statedoc.ValidatePatch(req.StatePatch); err != nil {
		return nil, err
	}
	merged := statedoc.Merge(state, req.StatePatch)
	if err := statedoc.ValidateState(merged); err != nil {
		return nil, err
	}

	// Parse every expression up front so a malformed one fails the preview,
	// not the commit.
	for _, expr := range req.DiceExpressions {
		if _, err := dice.Parse(expr); err != nil {
			return nil, err
		}
	}

	count := len(req.DiceExpressions)
	reserved := make([]int, count)
	for i := range reserved {
		reserved[i] = state.LogIndex() + 1 + i
	}
	if count > 0 {
		if err := e.entropy.EnsureAvailable(ctx, state.LogIndex()+count); err != nil {
			return nil, err
		}
	}

	transcriptEntry := req.TranscriptEntry
	if transcriptEntry == "" {
		transcriptEntry = req.Response
	}

	preview := &models.Preview{
		ID:              uuid.New().String(),
		BaseTurn:        state.Turn(),
		BaseHash:        baseHash,
		Response:        req.Response,
		StatePatch:      req.StatePatch,
		TranscriptEntry: transcriptEntry,
		ChangelogEntry:  req.ChangelogEntry,
		DiceExpressions: req.DiceExpressions,
		ReservedIndices: reserved,
		LockOwner:       req.LockOwner,
		CreatedAt:       e.now().UTC(),
	}
	if err := e.store.SavePreview(ctx, req.Slug, preview); err != nil {
		return nil, err
	}

	e.sweepPreviews(ctx, req.Slug, preview.ID)

	return &PreviewResult{
		ID:          preview.ID,
		Diffs:       statedoc.Diff(state, merged),
		EntropyPlan: models.EntropyPlan{
			Indices: reserved,
			Usage:   fmt.Sprintf("%d rolls", count),
		},
	}, nil
}

// CommitResult is the outcome of a successful commit.
type CommitResult struct {
	State      models.State                  `json:"state"`
	LogIndices *repositories.CommitPositions `json:"log_indices"`
	Rolls      []models.RollResult           `json:"rolls,omitempty"`
}

// Commit applies a preview. The record argument, when non-nil, is persisted
// as the turn record inside the same atomic write set (the narrating flow).
func (e *TurnEngine) Commit(ctx context.Context, slug, previewID, lockOwner string, record *models.TurnRecord) (*CommitResult, error) {
	if _, err := e.locks.Require(ctx, slug, lockOwner); err != nil {
		return nil, err
	}

	preview, err := e.store.LoadPreview(ctx, slug, previewID)
	if err != nil {
		return nil, err
	}

	state, err := e.store.LoadState(ctx, slug)
	if err != nil {
		return nil, err
	}
	if state.Turn() != preview.BaseTurn {
		e.discardPreview(ctx, slug, previewID)
		return nil, &domain.PreviewStaleError{Reason: "turn"}
	}
	if statedoc.StableHash(state) != preview.BaseHash {
		e.discardPreview(ctx, slug, previewID)
		return nil, &domain.PreviewStaleError{Reason: "hash"}
	}

	// Re-verify and resolve the reservation.
	rolls := make([]models.RollResult, 0, len(preview.DiceExpressions))
	for i, exprText := range preview.DiceExpressions {
		index := preview.ReservedIndices[i]
		entry, err := e.entropy.Load(ctx, index)
		if err != nil {
			return nil, err
		}
		expr, err := dice.Parse(exprText)
		if err != nil {
			return nil, err
		}
		roll, err := dice.Evaluate(expr, entry)
		if err != nil {
			return nil, err
		}
		rolls = append(rolls, *roll)
	}

	newState := statedoc.Merge(state, preview.StatePatch)
	newState.SetTurn(state.Turn() + 1)
	logIndex := state.LogIndex()
	for _, idx := range preview.ReservedIndices {
		if idx > logIndex {
			logIndex = idx
		}
	}
	newState.SetLogIndex(logIndex)
	if err := statedoc.ValidateState(newState); err != nil {
		return nil, err
	}

	transcriptLines := []string{preview.TranscriptEntry}
	for _, roll := range rolls {
		transcriptLines = append(transcriptLines, "🎲 "+roll.Breakdown)
	}

	changelogLine, err := e.changelogLine(preview, newState, slug)
	if err != nil {
		return nil, err
	}

	if record != nil {
		record.Turn = newState.Turn()
		record.CreatedAt = e.now().UTC()
		if len(record.Rolls) == 0 && len(rolls) > 0 {
			record.Rolls = rolls
		}
	}

	positions, err := e.store.CommitTurn(ctx, slug, &repositories.TurnCommit{
		State:           newState,
		TranscriptLines: transcriptLines,
		ChangelogLines:  []string{changelogLine},
		TurnRecord:      record,
		PreviewID:       previewID,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("turn committed",
		"slug", slug,
		"turn", newState.Turn(),
		"log_index", newState.LogIndex(),
		"dice", len(rolls),
	)

	e.publishCommit(ctx, slug, newState, positions, transcriptLines, changelogLine, rolls)
	e.maybeAutoSave(ctx, slug, newState)

	return &CommitResult{State: newState, LogIndices: positions, Rolls: rolls}, nil
}

// Cancel discards a preview without committing it.
func (e *TurnEngine) Cancel(ctx context.Context, slug, previewID string) error {
	return e.store.DeletePreview(ctx, slug, previewID)
}

// discardPreview removes a preview that failed its staleness check.
func (e *TurnEngine) discardPreview(ctx context.Context, slug, previewID string) {
	if err := e.store.DeletePreview(ctx, slug, previewID); err != nil {
		e.logger.Warn("stale preview delete failed", "slug", slug, "preview_id", previewID, "error", err)
	}
}

// changelogLine renders the structured single-line changelog document,
// stamping the identifiers and consumed entropy indices.
func (e *TurnEngine) changelogLine(preview *models.Preview, newState models.State, slug string) (string, error) {
	entry := make(map[string]any, len(preview.ChangelogEntry)+3)
	for k, v := range preview.ChangelogEntry {
		entry[k] = v
	}
	entry["session"] = slug
	entry["turn"] = newState.Turn()
	if len(preview.ReservedIndices) > 0 {
		entry["entropy_indices"] = preview.ReservedIndices
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal changelog entry: %w", err)
	}
	return string(line), nil
}

// publishCommit pushes the commit's deltas to live subscribers.
func (e *TurnEngine) publishCommit(ctx context.Context, slug string, state models.State, positions *repositories.CommitPositions, transcriptLines []string, changelogLine string, rolls []models.RollResult) {
	event := models.UpdateEvent{Turn: state.Turn()}

	tLines := make([]models.Entry, len(transcriptLines))
	firstT := positions.Transcript - len(transcriptLines) + 1
	for i, line := range transcriptLines {
		tLines[i] = models.Entry{ID: firstT + i, Text: models.NormalizeEntryText(line)}
	}
	event.Transcript = &models.EntryDelta{Lines: tLines, Cursor: positions.Transcript}

	event.Changelog = &models.EntryDelta{
		Lines:  []models.Entry{{ID: positions.Changelog, Text: changelogLine}},
		Cursor: positions.Changelog,
	}
	if len(rolls) > 0 {
		event.Rolls = &models.RollsDelta{Turn: state.Turn(), Items: rolls}
	}
	e.bus.Publish(slug, event)
}

// sweepPreviews applies the retention policy, keeping the fresh preview.
func (e *TurnEngine) sweepPreviews(ctx context.Context, slug, keepID string) {
	previews, err := e.store.ListPreviews(ctx, slug)
	if err != nil {
		e.logger.Warn("preview sweep failed", "slug", slug, "error", err)
		return
	}
	cutoff := e.now().Add(-previewMaxAge)
	excess := len(previews) - previewMaxCount
	for i, p := range previews {
		if p.ID == keepID {
			continue
		}
		// previews are ordered oldest first; trim by age, then by count.
		if p.CreatedAt.Before(cutoff) || i < excess {
			if err := e.store.DeletePreview(ctx, slug, p.ID); err != nil {
				e.logger.Warn("preview gc delete failed", "slug", slug, "preview_id", p.ID, "error", err)
			}
		}
	}
}

// maybeAutoSave snapshots the session every autoSaveEvery committed turns.
func (e *TurnEngine) maybeAutoSave(ctx context.Context, slug string, state models.State) {
	if e.autoSaveEvery <= 0 || state.Turn()%e.autoSaveEvery != 0 {
		return
	}
	transcript, changelog, err := e.store.LogLengths(ctx, slug)
	if err != nil {
		e.logger.Warn("auto-save skipped: log lengths", "slug", slug, "error", err)
		return
	}
	character, err := e.store.LoadCharacter(ctx, slug)
	if err != nil {
		e.logger.Warn("auto-save skipped: character", "slug", slug, "error", err)
		return
	}
	snap := &models.Snapshot{
		SaveID:        "auto-" + uuid.New().String()[:8],
		SaveType:      models.SaveTypeAuto,
		State:         state.Clone(),
		TranscriptLen: transcript,
		ChangelogLen:  changelog,
		CreatedAt:     e.now().UTC(),
	}
	if character != nil {
		snap.Character = character.Sheet
	}
	if err := e.store.CreateSnapshot(ctx, slug, snap); err != nil {
		e.logger.Warn("auto-save failed", "slug", slug, "error", err)
		return
	}
	meta := map[string]any{
		"save_id": snap.SaveID,
		"turn":    state.Turn(),
		"at":      snap.CreatedAt.Format(time.RFC3339),
	}
	if err := e.store.SaveDoc(ctx, slug, models.DocAutosaveMeta, meta); err != nil {
		e.logger.Warn("auto-save metadata write failed", "slug", slug, "error", err)
	}
	e.logger.Info("auto-save created", "slug", slug, "save_id", snap.SaveID, "turn", state.Turn())
}
