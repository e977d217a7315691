package handler

import (
	"log/slog"
	"net/http"

	"wayfarer/internal/domain"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// LockHandler serves the lock protocol routes.
type LockHandler struct {
	locks  *service.LockManager
	logger *slog.Logger
}

// NewLockHandler creates the handler.
func NewLockHandler(locks *service.LockManager, logger *slog.Logger) *LockHandler {
	return &LockHandler{locks: locks, logger: logger}
}

type claimLockDTO struct {
	Owner string `json:"owner"`
	TTL   int    `json:"ttl"`
}

// Claim handles POST /sessions/{slug}/lock/claim
func (h *LockHandler) Claim(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	var dto claimLockDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}

	lock, err := h.locks.Claim(r.Context(), slug, dto.Owner, dto.TTL)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, lock)
}

// Release handles DELETE /sessions/{slug}/lock. The owner comes from the
// query string so the DELETE needs no body.
func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	if err := h.locks.Release(r.Context(), slug, r.URL.Query().Get("owner")); err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"released": true})
}

// Get handles GET /sessions/{slug}/lock
func (h *LockHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	status, err := h.locks.Status(r.Context(), slug)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, status)
}

func (h *LockHandler) fail(w http.ResponseWriter, err error) {
	if domain.Kind(err) == "Internal" {
		h.logger.Error("lock handler failure", "error", err)
	}
	httputil.RespondError(w, err)
}
