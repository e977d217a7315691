// Package narrator defines the narration producer contract: given the
// session's situation and the player's intent, propose a complete turn the
// client can preview and commit. The engine never calls the narrator while
// holding the session lock.
package narrator

import (
	"context"

	"wayfarer/internal/domain/models"
)

// Input is the situation handed to the producer.
type Input struct {
	Slug           string
	State          models.State
	TranscriptTail []models.Entry
	PlayerIntent   string
	Hooks          []string
}

// Proposal is a narrated turn: the DM block plus the machine-readable parts
// the turn engine needs.
type Proposal struct {
	DM              models.DMBlock `json:"dm"`
	StatePatch      map[string]any `json:"state_patch,omitempty"`
	DiceExpressions []string       `json:"dice_expressions,omitempty"`
	TranscriptEntry string         `json:"transcript_entry,omitempty"`
	ConsequenceEcho string         `json:"consequence_echo,omitempty"`
}

// Narrator produces turn proposals.
type Narrator interface {
	ProposeTurn(ctx context.Context, input *Input) (*Proposal, error)
}
