package handler

import (
	"log/slog"
	"net/http"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// DocsHandler serves the auxiliary per-session documents.
type DocsHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewDocsHandler creates the handler.
func NewDocsHandler(sessions *service.SessionService, logger *slog.Logger) *DocsHandler {
	return &DocsHandler{sessions: sessions, logger: logger}
}

// Get handles GET /sessions/{slug}/docs/{kind}
func (h *DocsHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	kind, ok := PathParam(w, r, "kind", "doc kind")
	if !ok {
		return
	}
	doc, err := h.sessions.Doc(r.Context(), slug, models.DocKind(kind))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Put handles PUT /sessions/{slug}/docs/{kind}. The body is the whole
// document; ?dry_run=1 returns the would-be diff without persisting, and
// ?lock_owner= requires the session lock for the write.
func (h *DocsHandler) Put(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	kind, ok := PathParam(w, r, "kind", "doc kind")
	if !ok {
		return
	}
	var payload map[string]any
	if err := httputil.ParseJSON(w, r, &payload); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if payload == nil {
		httputil.RespondErrorMessage(w, "document body must be a JSON object")
		return
	}

	result, err := h.sessions.SaveDoc(r.Context(), slug, models.DocKind(kind), payload,
		queryBool(r, "dry_run"), r.URL.Query().Get("lock_owner"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

func (h *DocsHandler) fail(w http.ResponseWriter, err error) {
	if domain.Kind(err) == "Internal" {
		h.logger.Error("docs handler failure", "error", err)
	}
	httputil.RespondError(w, err)
}
