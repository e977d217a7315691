package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wayfarer/internal/assets"
	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/statedoc"
)

// SessionService covers session lifecycle, snapshots, characters, and the
// auxiliary documents. Writes that race the turn engine go under the session
// lock; reads never take it.
type SessionService struct {
	store   repositories.Storage
	locks   *LockManager
	catalog *assets.Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionService wires the session service.
func NewSessionService(store repositories.Storage, locks *LockManager, catalog *assets.Catalog, logger *slog.Logger) *SessionService {
	return &SessionService{store: store, locks: locks, catalog: catalog, logger: logger, now: time.Now}
}

func (s *SessionService) List(ctx context.Context) ([]models.SessionInfo, error) {
	return s.store.ListSessions(ctx)
}

// Create clones a template into a fresh session. The template is either a
// world from the asset catalog or an existing session (state plus its
// shared-catalog character). The clone starts at turn 0 with a clean entropy
// cursor and an initialization transcript line.
func (s *SessionService) Create(ctx context.Context, slug, templateSlug string) (*models.Session, error) {
	if err := statedoc.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if templateSlug == "" {
		return nil, fmt.Errorf("%w: template is required", domain.ErrSchemaViolation)
	}

	var (
		state     models.State
		world     string
		character *models.CharacterRecord
	)

	if w := s.catalog.World(templateSlug); w != nil {
		state = models.State(w.State).Clone()
		world = w.Name
		if w.Character != nil {
			character = &models.CharacterRecord{
				Slug:      slug,
				Sheet:     models.State(w.Character).Clone(),
				UpdatedAt: s.now().UTC(),
			}
		}
	} else {
		templateState, err := s.store.LoadState(ctx, templateSlug)
		if err != nil {
			return nil, err
		}
		templateSession, err := s.store.LoadSession(ctx, templateSlug)
		if err != nil {
			return nil, err
		}
		state = templateState.Clone()
		world = templateSession.World

		shared, err := s.store.LoadSharedCharacter(ctx, templateSlug)
		if err != nil && !errors.Is(err, domain.ErrSessionMissing) {
			return nil, err
		}
		if shared == nil {
			if shared, err = s.store.LoadCharacter(ctx, templateSlug); err != nil {
				return nil, err
			}
		}
		if shared != nil {
			character = &models.CharacterRecord{
				Slug:      slug,
				Sheet:     models.State(shared.Sheet).Clone(),
				UpdatedAt: s.now().UTC(),
			}
		}
	}

	if state == nil {
		state = models.State{}
	}
	state.SetTurn(0)
	state.SetLogIndex(0)
	if err := statedoc.ValidateState(state); err != nil {
		return nil, err
	}

	nowT := s.now().UTC()
	sess := &models.Session{Slug: slug, World: world, CreatedAt: nowT, UpdatedAt: nowT}
	initLine := fmt.Sprintf("A new adventure begins in %s.", world)
	if world == "" {
		initLine = "A new adventure begins."
	}
	if err := s.store.CreateSession(ctx, sess, state, character, initLine); err != nil {
		return nil, err
	}
	s.logger.Info("session created", "slug", slug, "template", templateSlug, "world", world)
	return sess, nil
}

func (s *SessionService) State(ctx context.Context, slug string) (models.State, error) {
	return s.store.LoadState(ctx, slug)
}

func (s *SessionService) Transcript(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error) {
	return s.store.LoadTranscript(ctx, slug, tail, cursor)
}

func (s *SessionService) Changelog(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error) {
	return s.store.LoadChangelog(ctx, slug, tail, cursor)
}

func (s *SessionService) TurnRecords(ctx context.Context, slug string, limit int) ([]models.TurnRecord, error) {
	return s.store.LoadTurnRecords(ctx, slug, limit)
}

func (s *SessionService) TurnRecord(ctx context.Context, slug string, turn int) (*models.TurnRecord, error) {
	rec, err := s.store.LoadTurnRecord(ctx, slug, turn)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: turn record %d", domain.ErrSessionMissing, turn)
	}
	return rec, nil
}

// TurnInfo is the GET /turn response: what the player sees before acting.
type TurnInfo struct {
	Prompt     string             `json:"prompt"`
	TurnNumber int                `json:"turn_number"`
	LockStatus *models.LockStatus `json:"lock_status"`
}

func (s *SessionService) TurnInfo(ctx context.Context, slug string) (*TurnInfo, error) {
	state, err := s.store.LoadState(ctx, slug)
	if err != nil {
		return nil, err
	}
	status, err := s.locks.Status(ctx, slug)
	if err != nil {
		return nil, err
	}

	prompt := "What do you do?"
	if rec, err := s.store.LoadTurnRecord(ctx, slug, state.Turn()); err == nil && rec != nil {
		if rec.DM.Stakes != "" {
			prompt = rec.DM.Stakes
		} else if len(rec.DM.Choices) > 0 {
			prompt = rec.DM.Choices[0]
		}
	}
	return &TurnInfo{Prompt: prompt, TurnNumber: state.Turn(), LockStatus: status}, nil
}

// CreateSnapshot takes a manual save under the session lock.
func (s *SessionService) CreateSnapshot(ctx context.Context, slug, lockOwner string) (*models.Snapshot, error) {
	if _, err := s.locks.Require(ctx, slug, lockOwner); err != nil {
		return nil, err
	}
	state, err := s.store.LoadState(ctx, slug)
	if err != nil {
		return nil, err
	}
	transcript, changelog, err := s.store.LogLengths(ctx, slug)
	if err != nil {
		return nil, err
	}
	character, err := s.store.LoadCharacter(ctx, slug)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		SaveID:        "save-" + uuid.New().String()[:8],
		SaveType:      models.SaveTypeManual,
		State:         state.Clone(),
		TranscriptLen: transcript,
		ChangelogLen:  changelog,
		CreatedAt:     s.now().UTC(),
	}
	if character != nil {
		snap.Character = character.Sheet
	}
	if err := s.store.CreateSnapshot(ctx, slug, snap); err != nil {
		return nil, err
	}
	s.logger.Info("snapshot created", "slug", slug, "save_id", snap.SaveID, "turn", state.Turn())
	return snap, nil
}

func (s *SessionService) ListSnapshots(ctx context.Context, slug string, limit int) ([]models.SnapshotInfo, error) {
	return s.store.ListSnapshots(ctx, slug, limit)
}

func (s *SessionService) LoadSnapshot(ctx context.Context, slug, saveID string) (*models.Snapshot, error) {
	return s.store.LoadSnapshot(ctx, slug, saveID)
}

// RestoreSnapshot replaces the live state (and character, when captured)
// with the save's image, under the session lock. The append-only logs are
// left in place.
func (s *SessionService) RestoreSnapshot(ctx context.Context, slug, saveID, lockOwner string) (models.State, error) {
	if _, err := s.locks.Require(ctx, slug, lockOwner); err != nil {
		return nil, err
	}
	snap, err := s.store.LoadSnapshot(ctx, slug, saveID)
	if err != nil {
		return nil, err
	}
	restored := snap.State.Clone()
	if err := statedoc.ValidateState(restored); err != nil {
		return nil, err
	}
	if err := s.store.SaveState(ctx, slug, restored); err != nil {
		return nil, err
	}
	if snap.Character != nil {
		rec := &models.CharacterRecord{Slug: slug, Sheet: snap.Character, UpdatedAt: s.now().UTC()}
		if err := s.store.SaveCharacter(ctx, slug, rec, false); err != nil {
			return nil, err
		}
	}
	s.logger.Info("snapshot restored", "slug", slug, "save_id", saveID, "turn", restored.Turn())
	return restored, nil
}

func (s *SessionService) Character(ctx context.Context, slug string) (*models.CharacterRecord, error) {
	rec, err := s.store.LoadCharacter(ctx, slug)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: no character for session %s", domain.ErrSessionMissing, slug)
	}
	return rec, nil
}

// SaveCharacter writes the session sheet, optionally mirroring to the shared
// catalog, under the session lock when an owner is provided.
func (s *SessionService) SaveCharacter(ctx context.Context, slug string, sheet map[string]any, persistShared bool, lockOwner string) (*models.CharacterRecord, error) {
	if lockOwner != "" {
		if _, err := s.locks.Require(ctx, slug, lockOwner); err != nil {
			return nil, err
		}
	}
	rec := &models.CharacterRecord{Slug: slug, Sheet: sheet, UpdatedAt: s.now().UTC()}
	if err := s.store.SaveCharacter(ctx, slug, rec, persistShared); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SessionService) Doc(ctx context.Context, slug string, kind models.DocKind) (map[string]any, error) {
	if !models.ValidDocKind(kind) {
		return nil, fmt.Errorf("%w: unknown doc kind %q", domain.ErrSchemaViolation, kind)
	}
	if err := s.ensureSession(ctx, slug); err != nil {
		return nil, err
	}
	doc, err := s.store.LoadDoc(ctx, slug, kind)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// DocSaveResult reports an aux-doc write (or its dry run).
type DocSaveResult struct {
	Applied  bool               `json:"applied"`
	Diffs    []models.DiffEntry `json:"diffs"`
	Warnings []string           `json:"warnings,omitempty"`
}

// SaveDoc replaces an aux document. dryRun computes the would-be diff and
// warnings without persisting. A lock owner, when provided, must hold the
// session lock.
func (s *SessionService) SaveDoc(ctx context.Context, slug string, kind models.DocKind, payload map[string]any, dryRun bool, lockOwner string) (*DocSaveResult, error) {
	if !models.ValidDocKind(kind) {
		return nil, fmt.Errorf("%w: unknown doc kind %q", domain.ErrSchemaViolation, kind)
	}
	if lockOwner != "" {
		if _, err := s.locks.Require(ctx, slug, lockOwner); err != nil {
			return nil, err
		}
	}
	existing, err := s.store.LoadDoc(ctx, slug, kind)
	if err != nil {
		return nil, err
	}

	result := &DocSaveResult{
		Diffs: statedoc.Diff(models.State(existing), models.State(payload)),
	}
	for key := range existing {
		if _, kept := payload[key]; !kept {
			result.Warnings = append(result.Warnings, fmt.Sprintf("field %q will be removed", key))
		}
	}
	if dryRun {
		return result, nil
	}
	if err := s.store.SaveDoc(ctx, slug, kind, payload); err != nil {
		return nil, err
	}
	result.Applied = true
	return result, nil
}

func (s *SessionService) ensureSession(ctx context.Context, slug string) error {
	_, err := s.store.LoadSession(ctx, slug)
	return err
}
