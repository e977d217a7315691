package models

import "time"

// Preview is a reservation witness for a proposed turn. It records the state
// the proposal was computed against (base turn + stable hash) and the entropy
// indices set aside for its dice. Creating a preview has no side effects on
// the session; the reservation only becomes real at commit.
type Preview struct {
	ID              string         `json:"id"`
	BaseTurn        int            `json:"base_turn"`
	BaseHash        string         `json:"base_hash"`
	Response        string         `json:"response"`
	StatePatch      map[string]any `json:"state_patch,omitempty"`
	TranscriptEntry string         `json:"transcript_entry"`
	ChangelogEntry  map[string]any `json:"changelog_entry,omitempty"`
	DiceExpressions []string       `json:"dice_expressions,omitempty"`
	ReservedIndices []int          `json:"reserved_indices,omitempty"`
	LockOwner       string         `json:"lock_owner,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// EntropyPlan summarizes a preview's reservation for the client.
type EntropyPlan struct {
	Indices []int  `json:"indices"`
	Usage   string `json:"usage"`
}
