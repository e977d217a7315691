package narrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"wayfarer/internal/domain/models"
)

const systemPrompt = `You are the Dungeon Master for a single-player tabletop adventure.
Respond with a single JSON object, no prose outside it, with these fields:
  dm: {narration, recap, stakes, choices (array of strings),
       roll_request ({expression, reason, dc}, optional),
       discovery_added (object, optional)}
  state_patch: JSON merge patch against the session state (optional)
  dice_expressions: dice the resolution requires, e.g. ["1d20+3"] (optional)
  transcript_entry: one-line summary for the session transcript (optional)
  consequence_echo: one sentence restating what just changed (optional)
Never include the fields "turn" or "log_index" in state_patch.`

// AnthropicNarrator produces turns with the Anthropic Messages API.
type AnthropicNarrator struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

// NewAnthropicNarrator builds a narrator for the given API key and model.
func NewAnthropicNarrator(apiKey, model string, logger *slog.Logger) *AnthropicNarrator {
	return &AnthropicNarrator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

func (n *AnthropicNarrator) ProposeTurn(ctx context.Context, input *Input) (*Proposal, error) {
	prompt, err := buildPrompt(input)
	if err != nil {
		return nil, err
	}

	msg, err := n.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("narrator request: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	proposal, err := parseProposal(text.String())
	if err != nil {
		n.logger.Warn("narrator returned unparseable proposal", "error", err)
		return nil, err
	}
	return proposal, nil
}

func buildPrompt(input *Input) (string, error) {
	stateJSON, err := json.MarshalIndent(input.State, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal state for narrator: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session state:\n%s\n", stateJSON)
	if len(input.Hooks) > 0 {
		b.WriteString("\nAdventure hooks in play:\n")
		for _, h := range input.Hooks {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if len(input.TranscriptTail) > 0 {
		b.WriteString("\nRecent transcript:\n")
		for _, e := range input.TranscriptTail {
			fmt.Fprintf(&b, "%s\n", e.Text)
		}
	}
	fmt.Fprintf(&b, "\nPlayer intent: %s\n", input.PlayerIntent)
	return b.String(), nil
}

// parseProposal tolerates a fenced code block around the JSON document.
func parseProposal(text string) (*Proposal, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if end := strings.LastIndex(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	var proposal Proposal
	if err := json.Unmarshal([]byte(trimmed), &proposal); err != nil {
		return nil, fmt.Errorf("parse narrator proposal: %w", err)
	}
	if proposal.DM.Narration == "" {
		return nil, fmt.Errorf("narrator proposal has no narration")
	}
	stripEngineFields(proposal.StatePatch)
	return &proposal, nil
}

// stripEngineFields drops engine-owned counters a model might emit anyway.
func stripEngineFields(patch map[string]any) {
	delete(patch, models.FieldTurn)
	delete(patch, models.FieldLogIndex)
}
