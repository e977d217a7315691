package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"wayfarer/internal/events"
	"wayfarer/internal/httputil"
	"wayfarer/internal/service"
)

// keepAliveInterval paces SSE comment lines so proxies keep the connection.
const keepAliveInterval = 15 * time.Second

// EventsHandler streams live session updates over Server-Sent Events.
// Subscribers are read-only observers; a client that falls behind reconciles
// by re-reading /transcript and /changelog with its last cursor.
type EventsHandler struct {
	bus      *events.Bus
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewEventsHandler creates the handler.
func NewEventsHandler(bus *events.Bus, sessions *service.SessionService, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, sessions: sessions, logger: logger}
}

// Stream handles GET /events/{slug}
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "session slug")
	if !ok {
		return
	}
	// Reject unknown sessions before upgrading to a stream.
	if _, err := h.sessions.State(r.Context(), slug); err != nil {
		httputil.RespondError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondErrorMessage(w, "streaming not supported by this connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.bus.Subscribe(slug)
	defer cancel()

	h.logger.Debug("sse subscriber connected", "slug", slug)
	defer h.logger.Debug("sse subscriber disconnected", "slug", slug)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("sse event marshal failed", "slug", slug, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: update\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			// SSE comment line; clients ignore it, proxies see traffic.
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
