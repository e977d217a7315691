package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wayfarer/internal/domain"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// SessionHandler serves session lifecycle and read routes.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates the handler.
func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// List handles GET /sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.sessions.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

type createSessionDTO struct {
	Slug     string `json:"slug"`
	Template string `json:"template"`
}

func (d createSessionDTO) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Slug, validation.Required, validation.Length(1, 64)),
		validation.Field(&d.Template, validation.Required, validation.Length(1, 64)),
	)
}

// Create handles POST /sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto createSessionDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondErrorMessage(w, "invalid request body")
		return
	}
	if err := dto.validate(); err != nil {
		httputil.RespondErrorMessage(w, err.Error())
		return
	}

	sess, err := h.sessions.Create(r.Context(), dto.Slug, dto.Template)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, sess)
}

// State handles GET /sessions/{slug}/state
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	state, err := h.sessions.State(r.Context(), slug)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, state)
}

// Transcript handles GET /sessions/{slug}/transcript
func (h *SessionHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	page, err := h.sessions.Transcript(r.Context(), slug,
		QueryInt(r, "tail", 0, 1, 10000),
		QueryInt(r, "cursor", 0, 1, 1<<30))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// Changelog handles GET /sessions/{slug}/changelog
func (h *SessionHandler) Changelog(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	page, err := h.sessions.Changelog(r.Context(), slug,
		QueryInt(r, "tail", 0, 1, 10000),
		QueryInt(r, "cursor", 0, 1, 1<<30))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// TurnInfo handles GET /sessions/{slug}/turn
func (h *SessionHandler) TurnInfo(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	info, err := h.sessions.TurnInfo(r.Context(), slug)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// TurnRecords handles GET /sessions/{slug}/turns
func (h *SessionHandler) TurnRecords(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	records, err := h.sessions.TurnRecords(r.Context(), slug, QueryInt(r, "limit", 20, 1, 500))
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"turns": records})
}

// TurnRecord handles GET /sessions/{slug}/turns/{n}
func (h *SessionHandler) TurnRecord(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		httputil.RespondErrorMessage(w, "turn number must be a positive integer")
		return
	}
	rec, err := h.sessions.TurnRecord(r.Context(), slug, n)
	if err != nil {
		h.fail(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

// Diff handles GET /sessions/{slug}/diff. The endpoint is reserved: the
// response shape will be {files:[{path, changes}]} once implemented.
func (h *SessionHandler) Diff(w http.ResponseWriter, r *http.Request) {
	httputil.RespondError(w, domain.ErrUnavailable)
}

func (h *SessionHandler) fail(w http.ResponseWriter, err error) {
	if domain.Kind(err) == "Internal" {
		h.logger.Error("session handler failure", "error", err)
	}
	httputil.RespondError(w, err)
}
