package handler

import (
	"log/slog"
	"net/http"

	"wayfarer/internal/entropy"
	"wayfarer/internal/httputil"
)

// EntropyHandler serves the read-only entropy peek.
type EntropyHandler struct {
	source *entropy.Source
	logger *slog.Logger
}

// NewEntropyHandler creates the handler.
func NewEntropyHandler(source *entropy.Source, logger *slog.Logger) *EntropyHandler {
	return &EntropyHandler{source: source, logger: logger}
}

// Peek handles GET /entropy
func (h *EntropyHandler) Peek(w http.ResponseWriter, r *http.Request) {
	limit := QueryInt(r, "limit", 20, 1, 1000)
	entries, err := h.source.Peek(r.Context(), limit)
	if err != nil {
		h.logger.Error("entropy peek failure", "error", err)
		httputil.RespondError(w, err)
		return
	}
	length, err := h.source.Length(r.Context())
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"length":  length,
	})
}
