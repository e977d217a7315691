package handler

import (
	"net/http"

	"wayfarer/internal/entropy"
	"wayfarer/internal/httputil"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Sessions  *SessionHandler
	Locks     *LockHandler
	Turns     *TurnHandler
	Rolls     *RollHandler
	Saves     *SavesHandler
	Docs      *DocsHandler
	Character *CharacterHandler
	Entropy   *EntropyHandler
	Events    *EventsHandler
	Assets    *AssetsHandler

	// Health metadata.
	Backend       string
	EntropySource *entropy.Source
}

// Routes mounts every route on a fresh mux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("GET /sessions", h.Sessions.List)
	mux.HandleFunc("POST /sessions", h.Sessions.Create)
	mux.HandleFunc("GET /sessions/{slug}/state", h.Sessions.State)
	mux.HandleFunc("GET /sessions/{slug}/transcript", h.Sessions.Transcript)
	mux.HandleFunc("GET /sessions/{slug}/changelog", h.Sessions.Changelog)
	mux.HandleFunc("GET /sessions/{slug}/turn", h.Sessions.TurnInfo)
	mux.HandleFunc("GET /sessions/{slug}/turns", h.Sessions.TurnRecords)
	mux.HandleFunc("GET /sessions/{slug}/turns/{n}", h.Sessions.TurnRecord)
	mux.HandleFunc("GET /sessions/{slug}/diff", h.Sessions.Diff)

	mux.HandleFunc("POST /sessions/{slug}/lock/claim", h.Locks.Claim)
	mux.HandleFunc("GET /sessions/{slug}/lock", h.Locks.Get)
	mux.HandleFunc("DELETE /sessions/{slug}/lock", h.Locks.Release)

	mux.HandleFunc("POST /sessions/{slug}/turn/preview", h.Turns.Preview)
	mux.HandleFunc("POST /sessions/{slug}/turn/commit", h.Turns.Commit)
	mux.HandleFunc("POST /sessions/{slug}/turn/commit-and-narrate", h.Turns.CommitAndNarrate)
	mux.HandleFunc("DELETE /sessions/{slug}/turn/preview/{id}", h.Turns.CancelPreview)
	mux.HandleFunc("POST /sessions/{slug}/narrate", h.Turns.Narrate)

	mux.HandleFunc("POST /sessions/{slug}/roll", h.Rolls.Roll)

	mux.HandleFunc("GET /sessions/{slug}/saves", h.Saves.List)
	mux.HandleFunc("POST /sessions/{slug}/saves", h.Saves.Create)
	mux.HandleFunc("GET /sessions/{slug}/saves/{id}", h.Saves.Get)
	mux.HandleFunc("POST /sessions/{slug}/saves/{id}/restore", h.Saves.Restore)

	mux.HandleFunc("GET /sessions/{slug}/docs/{kind}", h.Docs.Get)
	mux.HandleFunc("PUT /sessions/{slug}/docs/{kind}", h.Docs.Put)

	mux.HandleFunc("GET /sessions/{slug}/character", h.Character.Get)
	mux.HandleFunc("PUT /sessions/{slug}/character", h.Character.Put)

	mux.HandleFunc("GET /entropy", h.Entropy.Peek)
	mux.HandleFunc("GET /events/{slug}", h.Events.Stream)

	mux.HandleFunc("GET /worlds", h.Assets.Worlds)
	mux.HandleFunc("GET /worlds/{name}/hooks", h.Assets.Hooks)
	mux.HandleFunc("GET /monsters/{slug}", h.Assets.Monster)

	return mux
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	length, err := h.EntropySource.Length(r.Context())
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"backend":        h.Backend,
		"entropy_length": length,
	})
}
