package handler

import (
	"log/slog"
	"net/http"

	"wayfarer/internal/domain"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// CharacterHandler serves the session character sheet.
type CharacterHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewCharacterHandler creates the handler.
func NewCharacterHandler(sessions *service.SessionService, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{sessions: sessions, logger: logger}
}

// Get handles GET /sessions/{slug}/character
func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	rec, err := h.sessions.Character(r.Context(), slug)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

type saveCharacterDTO struct {
	Sheet         map[string]any `json:"sheet"`
	PersistShared bool           `json:"persist_shared"`
	LockOwner     string         `json:"lock_owner"`
}

// Put handles PUT /sessions/{slug}/character
func (h *CharacterHandler) Put(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto saveCharacterDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if len(dto.Sheet) == 0 {
		httputil.RespondErrorMessage(w, "sheet must be a non-empty JSON object")
		return
	}

	rec, err := h.sessions.SaveCharacter(r.Context(), slug, dto.Sheet, dto.PersistShared, dto.LockOwner)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

func (h *CharacterHandler) fail(w http.ResponseWriter, err error) {
	if domain.Kind(err) == "Internal" {
		h.logger.Error("character handler failure", "error", err)
	}
	httputil.RespondError(w, err)
}
