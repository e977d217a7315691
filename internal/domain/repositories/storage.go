package repositories

import (
	"context"

	"wayfarer/internal/domain/models"
)

// SessionStore covers session lifecycle and the authoritative state document.
type SessionStore interface {
	ListSessions(ctx context.Context) ([]models.SessionInfo, error)
	// CreateSession persists a new session with its initial artifacts, all
	// materialized by the caller from a template. Fails with ErrConflict if the
	// slug exists.
	CreateSession(ctx context.Context, sess *models.Session, state models.State, character *models.CharacterRecord, initLine string) error
	LoadSession(ctx context.Context, slug string) (*models.Session, error)
	LoadState(ctx context.Context, slug string) (models.State, error)
	// SaveState replaces the state document with all-or-nothing visibility.
	SaveState(ctx context.Context, slug string, state models.State) error
}

// LogStore covers the append-only transcript and changelog.
type LogStore interface {
	// AppendTranscript appends lines and returns the new 1-based length.
	AppendTranscript(ctx context.Context, slug string, lines ...string) (int, error)
	AppendChangelog(ctx context.Context, slug string, lines ...string) (int, error)
	LoadTranscript(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error)
	LoadChangelog(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error)
	// LogLengths returns the current entry counts of both logs.
	LogLengths(ctx context.Context, slug string) (transcript, changelog int, err error)
}

// TurnStore covers per-turn records.
type TurnStore interface {
	// PersistTurnRecord stores the record for rec.Turn. Fails with ErrConflict
	// if a record for that turn already exists.
	PersistTurnRecord(ctx context.Context, slug string, rec *models.TurnRecord) error
	// LoadTurnRecords returns up to limit records, newest first.
	LoadTurnRecords(ctx context.Context, slug string, limit int) ([]models.TurnRecord, error)
	LoadTurnRecord(ctx context.Context, slug string, turn int) (*models.TurnRecord, error)
	// AppendRollsToTurn adds rolls to an existing record. Fails with
	// ErrConflict when no record exists for that turn.
	AppendRollsToTurn(ctx context.Context, slug string, turn int, rolls []models.RollResult) error
}

// PreviewStore covers short-lived turn reservations.
type PreviewStore interface {
	SavePreview(ctx context.Context, slug string, p *models.Preview) error
	LoadPreview(ctx context.Context, slug, previewID string) (*models.Preview, error)
	// DeletePreview is idempotent; deleting an absent preview is not an error.
	DeletePreview(ctx context.Context, slug, previewID string) error
	ListPreviews(ctx context.Context, slug string) ([]models.Preview, error)
}

// LockStore exposes the raw lock primitives. Owner/TTL semantics live in the
// lock manager; the backend contributes only atomicity.
type LockStore interface {
	// GetLock returns the current lock, or (nil, nil) when unheld.
	GetLock(ctx context.Context, slug string) (*models.Lock, error)
	// TryClaimLock installs the lock iff none exists. Must be atomic against
	// concurrent claims: exclusive-create on the filesystem, conditional
	// insert in the relational backend. Fails with ErrLockHeld otherwise.
	TryClaimLock(ctx context.Context, slug string, lock *models.Lock) error
	// RefreshLock overwrites an existing lock (idempotent re-claim by owner).
	RefreshLock(ctx context.Context, slug string, lock *models.Lock) error
	// RemoveLock deletes the lock; removing an absent lock is not an error.
	RemoveLock(ctx context.Context, slug string) error
}

// EntropyStore covers the process-wide pre-rolled dice stream.
type EntropyStore interface {
	// AppendEntropy appends entries; entry indices must continue the stream
	// densely. Existing entries are never rewritten.
	AppendEntropy(ctx context.Context, entries []models.EntropyEntry) error
	LoadEntropy(ctx context.Context, index int) (*models.EntropyEntry, error)
	PeekEntropy(ctx context.Context, limit int) ([]models.EntropyEntry, error)
	EntropyLength(ctx context.Context) (int, error)
}

// SnapshotStore covers point-in-time saves.
type SnapshotStore interface {
	// CreateSnapshot fails with ErrConflict when the save id already exists.
	CreateSnapshot(ctx context.Context, slug string, snap *models.Snapshot) error
	ListSnapshots(ctx context.Context, slug string, limit int) ([]models.SnapshotInfo, error)
	LoadSnapshot(ctx context.Context, slug, saveID string) (*models.Snapshot, error)
}

// CharacterStore covers the session-local sheet and the shared catalog.
type CharacterStore interface {
	LoadCharacter(ctx context.Context, slug string) (*models.CharacterRecord, error)
	// SaveCharacter writes the session copy and, when persistShared is set,
	// mirrors it to the shared catalog under the same slug.
	SaveCharacter(ctx context.Context, slug string, rec *models.CharacterRecord, persistShared bool) error
	LoadSharedCharacter(ctx context.Context, slug string) (*models.CharacterRecord, error)
	SaveSharedCharacter(ctx context.Context, rec *models.CharacterRecord) error
}

// DocStore covers auxiliary per-session JSON documents.
type DocStore interface {
	// LoadDoc returns (nil, nil) when the document has never been written.
	LoadDoc(ctx context.Context, slug string, kind models.DocKind) (map[string]any, error)
	// SaveDoc replaces the whole document.
	SaveDoc(ctx context.Context, slug string, kind models.DocKind, payload map[string]any) error
}

// TurnCommit is the atomic write set of one turn commit (§ turn engine). The
// backend applies state, log appends, the optional turn record, and the
// preview delete as one all-or-nothing unit.
type TurnCommit struct {
	State           models.State
	TranscriptLines []string
	ChangelogLines  []string
	TurnRecord      *models.TurnRecord
	PreviewID       string
}

// CommitPositions reports the 1-based last positions of the logs after a
// commit's appends.
type CommitPositions struct {
	Transcript int `json:"transcript"`
	Changelog  int `json:"changelog"`
}

// TurnCommitter applies a turn commit atomically.
type TurnCommitter interface {
	CommitTurn(ctx context.Context, slug string, commit *TurnCommit) (*CommitPositions, error)
}

// Storage is the full backend contract. Both implementations (filesystem,
// sqlite) must be observationally equivalent for identical operation
// sequences.
type Storage interface {
	SessionStore
	LogStore
	TurnStore
	PreviewStore
	LockStore
	EntropyStore
	SnapshotStore
	CharacterStore
	DocStore
	TurnCommitter

	Close() error
}
