package narrator

import (
	"context"
	"fmt"

	"wayfarer/internal/domain/models"
)

// OfflineNarrator is a deterministic stand-in for development and tests. It
// echoes the player's intent into a fixed narrative shape and never proposes
// dice, so flows that exercise it stay reproducible.
type OfflineNarrator struct{}

func NewOfflineNarrator() *OfflineNarrator { return &OfflineNarrator{} }

func (n *OfflineNarrator) ProposeTurn(_ context.Context, input *Input) (*Proposal, error) {
	narration := fmt.Sprintf("You %s. The world holds its breath, then answers.", input.PlayerIntent)
	return &Proposal{
		DM: models.DMBlock{
			Narration: narration,
			Recap:     fmt.Sprintf("Turn %d: %s", input.State.Turn()+1, input.PlayerIntent),
			Stakes:    "What do you do next?",
			Choices:   []string{"Press on", "Take stock", "Turn back"},
		},
		TranscriptEntry: narration,
		ConsequenceEcho: fmt.Sprintf("You chose to %s.", input.PlayerIntent),
	}, nil
}
