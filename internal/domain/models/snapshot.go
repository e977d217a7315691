package models

import "time"

// Save types.
const (
	SaveTypeAuto   = "auto"
	SaveTypeManual = "manual"
)

// Snapshot is a point-in-time capture of a session. Restoring replaces the
// live state and character; the append-only logs are left in place, so the
// capture records the log positions it was taken at for reference.
type Snapshot struct {
	SaveID        string          `json:"save_id"`
	SaveType      string          `json:"save_type"`
	State         State           `json:"state"`
	Character     map[string]any  `json:"character,omitempty"`
	TranscriptLen int             `json:"transcript_len"`
	ChangelogLen  int             `json:"changelog_len"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SnapshotInfo is the listing shape for GET /sessions/{slug}/saves.
type SnapshotInfo struct {
	SaveID    string    `json:"save_id"`
	SaveType  string    `json:"save_type"`
	Turn      int       `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
}
