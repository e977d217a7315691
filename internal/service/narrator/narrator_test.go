package narrator

import (
	"context"
	"testing"

	"wayfarer/internal/domain/models"
)

func TestParseProposal_PlainJSON(t *testing.T) {
	text := `{"dm":{"narration":"The door opens.","choices":["enter","wait"]},"state_patch":{"location":"hall"},"dice_expressions":["1d20"]}`
	proposal, err := parseProposal(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if proposal.DM.Narration != "The door opens." {
		t.Errorf("narration = %q", proposal.DM.Narration)
	}
	if proposal.StatePatch["location"] != "hall" {
		t.Errorf("state_patch = %v", proposal.StatePatch)
	}
	if len(proposal.DiceExpressions) != 1 {
		t.Errorf("dice = %v", proposal.DiceExpressions)
	}
}

func TestParseProposal_FencedJSON(t *testing.T) {
	text := "```json\n{\"dm\":{\"narration\":\"hi\"}}\n```"
	proposal, err := parseProposal(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if proposal.DM.Narration != "hi" {
		t.Errorf("narration = %q", proposal.DM.Narration)
	}
}

func TestParseProposal_StripsEngineFields(t *testing.T) {
	text := `{"dm":{"narration":"hi"},"state_patch":{"turn":99,"log_index":12,"hp":5}}`
	proposal, err := parseProposal(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := proposal.StatePatch["turn"]; ok {
		t.Error("turn must be stripped from state_patch")
	}
	if _, ok := proposal.StatePatch["log_index"]; ok {
		t.Error("log_index must be stripped from state_patch")
	}
	if proposal.StatePatch["hp"] != float64(5) {
		t.Error("ordinary patch fields must survive")
	}
}

func TestParseProposal_RejectsEmptyNarration(t *testing.T) {
	if _, err := parseProposal(`{"dm":{"recap":"no narration"}}`); err == nil {
		t.Error("proposal without narration must be rejected")
	}
	if _, err := parseProposal("not json at all"); err == nil {
		t.Error("non-JSON must be rejected")
	}
}

func TestOfflineNarrator_Deterministic(t *testing.T) {
	n := NewOfflineNarrator()
	input := &Input{
		State:        models.State{"turn": float64(2)},
		PlayerIntent: "scout ahead",
	}
	a, err := n.ProposeTurn(context.Background(), input)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	b, err := n.ProposeTurn(context.Background(), input)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if a.DM.Narration != b.DM.Narration || a.TranscriptEntry != b.TranscriptEntry {
		t.Error("offline narrator must be deterministic")
	}
	if len(a.DiceExpressions) != 0 {
		t.Error("offline narrator must not propose dice")
	}
}
