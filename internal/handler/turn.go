package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// TurnHandler serves the preview/commit protocol and the narrate flow.
type TurnHandler struct {
	engine  *service.TurnEngine
	narrate *service.NarrateService
	logger  *slog.Logger
}

// NewTurnHandler creates the handler.
func NewTurnHandler(engine *service.TurnEngine, narrate *service.NarrateService, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{engine: engine, narrate: narrate, logger: logger}
}

type previewDTO struct {
	Response        string         `json:"response"`
	StatePatch      map[string]any `json:"state_patch"`
	TranscriptEntry string         `json:"transcript_entry"`
	ChangelogEntry  map[string]any `json:"changelog_entry"`
	DiceExpressions []string       `json:"dice_expressions"`
	LockOwner       string         `json:"lock_owner"`
}

func (d previewDTO) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Response, validation.Length(0, 65536)),
		validation.Field(&d.DiceExpressions, validation.Length(0, 16)),
	)
}

// Preview handles POST /sessions/{slug}/turn/preview
func (h *TurnHandler) Preview(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto previewDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if err := dto.validate(); err != nil {
		httputil.RespondErrorMessage(w, err.Error())
		return
	}

	result, err := h.engine.Preview(r.Context(), &service.PreviewRequest{
		Slug:            slug,
		Response:        dto.Response,
		StatePatch:      dto.StatePatch,
		TranscriptEntry: dto.TranscriptEntry,
		ChangelogEntry:  dto.ChangelogEntry,
		DiceExpressions: dto.DiceExpressions,
		LockOwner:       dto.LockOwner,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

type commitDTO struct {
	PreviewID string `json:"preview_id"`
	LockOwner string `json:"lock_owner"`
}

// Commit handles POST /sessions/{slug}/turn/commit
func (h *TurnHandler) Commit(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto commitDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if dto.PreviewID == "" {
		httputil.RespondErrorMessage(w, "preview_id is required")
		return
	}

	result, err := h.engine.Commit(r.Context(), slug, dto.PreviewID, dto.LockOwner, nil)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

type commitAndNarrateDTO struct {
	PreviewID       string         `json:"preview_id"`
	LockOwner       string         `json:"lock_owner"`
	PlayerIntent    string         `json:"player_intent"`
	ConsequenceEcho string         `json:"consequence_echo"`
	DM              models.DMBlock `json:"dm"`
}

func (d commitAndNarrateDTO) validate() error {
	if err := validation.Validate(d.PreviewID, validation.Required); err != nil {
		return fmt.Errorf("preview_id: %w", err)
	}
	if err := validation.Validate(d.DM.Narration, validation.Required); err != nil {
		return fmt.Errorf("dm.narration: %w", err)
	}
	return nil
}

// CommitAndNarrate handles POST /sessions/{slug}/turn/commit-and-narrate
func (h *TurnHandler) CommitAndNarrate(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto commitAndNarrateDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if err := dto.validate(); err != nil {
		httputil.RespondErrorMessage(w, err.Error())
		return
	}

	record := &models.TurnRecord{
		PlayerIntent:    dto.PlayerIntent,
		ConsequenceEcho: dto.ConsequenceEcho,
		DM:              dto.DM,
	}
	result, err := h.narrate.CommitAndNarrate(r.Context(), slug, dto.PreviewID, dto.LockOwner, record)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// CancelPreview handles DELETE /sessions/{slug}/turn/preview/{id}
func (h *TurnHandler) CancelPreview(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	id, ok := PathParam(w, r, "id", "preview id")
	if !ok {
		return
	}
	if err := h.engine.Cancel(r.Context(), slug, id); err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

type narrateDTO struct {
	PlayerIntent string `json:"player_intent"`
}

// Narrate handles POST /sessions/{slug}/narrate — ask the narration producer
// for a proposed turn. No lock is held during the round-trip.
func (h *TurnHandler) Narrate(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto narrateDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if dto.PlayerIntent == "" {
		httputil.RespondErrorMessage(w, "player_intent is required")
		return
	}

	proposal, err := h.narrate.Propose(r.Context(), slug, dto.PlayerIntent)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, proposal)
}

func (h *TurnHandler) fail(w http.ResponseWriter, err error) {
	if domain.Kind(err) == "Internal" {
		h.logger.Error("turn handler failure", "error", err)
	}
	httputil.RespondError(w, err)
}
