package handler

import (
	"log/slog"
	"net/http"

	"wayfarer/internal/domain"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// SavesHandler serves snapshot routes.
type SavesHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewSavesHandler creates the handler.
func NewSavesHandler(sessions *service.SessionService, logger *slog.Logger) *SavesHandler {
	return &SavesHandler{sessions: sessions, logger: logger}
}

// List handles GET /sessions/{slug}/saves
func (h *SavesHandler) List(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	infos, err := h.sessions.ListSnapshots(r.Context(), slug, QueryInt(r, "limit", 50, 1, 500))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"saves": infos})
}

type createSaveDTO struct {
	LockOwner string `json:"lock_owner"`
}

// Create handles POST /sessions/{slug}/saves
func (h *SavesHandler) Create(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto createSaveDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	snap, err := h.sessions.CreateSnapshot(r.Context(), slug, dto.LockOwner)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, snap)
}

// Get handles GET /sessions/{slug}/saves/{id}
func (h *SavesHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	id, ok := PathParam(w, r, "id", "save id")
	if !ok {
		return
	}
	snap, err := h.sessions.LoadSnapshot(r.Context(), slug, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, snap)
}

type restoreSaveDTO struct {
	LockOwner string `json:"lock_owner"`
}

// Restore handles POST /sessions/{slug}/saves/{id}/restore
func (h *SavesHandler) Restore(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	id, ok := PathParam(w, r, "id", "save id")
	if !ok {
		return
	}
	var dto restoreSaveDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	state, err := h.sessions.RestoreSnapshot(r.Context(), slug, id, dto.LockOwner)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (h *SavesHandler) fail(w http.ResponseWriter, err error) {
	if domain.Kind(err) == "Internal" {
		h.logger.Error("saves handler failure", "error", err)
	}
	httputil.RespondError(w, err)
}
