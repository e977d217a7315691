package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wayfarer/internal/assets"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/entropy"
	"wayfarer/internal/events"
	"wayfarer/internal/repository/file"
	"wayfarer/internal/service"
)

// newTestServer stands up the full route tree on a file backend with one
// seeded session "quest" and a 10-entry entropy stream.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := file.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	ctx := context.Background()
	state := models.State{"turn": float64(0), "log_index": float64(0), "hp": float64(10)}
	sess := &models.Session{Slug: "quest", World: "greenhollow", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateSession(ctx, sess, state, nil, ""); err != nil {
		t.Fatalf("create session: %v", err)
	}

	source := entropy.NewSource(store)
	if _, err := source.Extend(ctx, 7, 10); err != nil {
		t.Fatalf("extend entropy: %v", err)
	}

	catalog, err := assets.Load("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	locks := service.NewLockManager(store, logger)
	bus := events.NewBus(logger)
	engine := service.NewTurnEngine(store, locks, source, bus, 0, logger)
	rolls := service.NewRollService(store, locks, source, bus, logger)
	sessions := service.NewSessionService(store, locks, catalog, logger)
	narrate := service.NewNarrateService(store, nil, catalog, engine, logger)

	handlers := &Handlers{
		Sessions:      NewSessionHandler(sessions, logger),
		Locks:         NewLockHandler(locks, logger),
		Turns:         NewTurnHandler(engine, narrate, logger),
		Rolls:         NewRollHandler(rolls, logger),
		Saves:         NewSavesHandler(sessions, logger),
		Docs:          NewDocsHandler(sessions, logger),
		Character:     NewCharacterHandler(sessions, logger),
		Entropy:       NewEntropyHandler(source, logger),
		Events:        NewEventsHandler(bus, sessions, logger),
		Assets:        NewAssetsHandler(catalog),
		Backend:       "file",
		EntropySource: source,
	}
	server := httptest.NewServer(handlers.Routes())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response from %s: %v", url, err)
	}
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response from %s: %v", url, err)
	}
	return resp, decoded
}

// Full happy path over HTTP: claim, preview, commit, read back.
func TestHTTP_PreviewCommitFlow(t *testing.T) {
	server := newTestServer(t)
	base := server.URL

	resp, _ := postJSON(t, base+"/sessions/quest/lock/claim", map[string]any{"owner": "alice", "ttl": 60})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim status = %d", resp.StatusCode)
	}

	resp, preview := postJSON(t, base+"/sessions/quest/turn/preview", map[string]any{
		"state_patch":      map[string]any{"location": "camp"},
		"transcript_entry": "look",
		"dice_expressions": []string{},
		"lock_owner":       "alice",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview status = %d: %v", resp.StatusCode, preview)
	}
	previewID, _ := preview["id"].(string)
	if previewID == "" {
		t.Fatalf("no preview id in %v", preview)
	}
	plan := preview["entropy_plan"].(map[string]any)
	if plan["usage"] != "0 rolls" {
		t.Errorf("entropy usage = %v", plan["usage"])
	}

	resp, commit := postJSON(t, base+"/sessions/quest/turn/commit", map[string]any{
		"preview_id": previewID,
		"lock_owner": "alice",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("commit status = %d: %v", resp.StatusCode, commit)
	}
	state := commit["state"].(map[string]any)
	if state["turn"] != float64(1) || state["location"] != "camp" {
		t.Errorf("committed state = %v", state)
	}
	logIndices := commit["log_indices"].(map[string]any)
	if logIndices["transcript"] != float64(1) {
		t.Errorf("transcript position = %v", logIndices["transcript"])
	}

	resp, stateDoc := getJSON(t, base+"/sessions/quest/state")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d", resp.StatusCode)
	}
	if stateDoc["location"] != "camp" {
		t.Errorf("state read-back = %v", stateDoc)
	}

	resp, transcript := getJSON(t, base+"/sessions/quest/transcript")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcript status = %d", resp.StatusCode)
	}
	items := transcript["items"].([]any)
	if len(items) != 1 {
		t.Errorf("transcript items = %v", items)
	}
}

// Error envelopes carry the taxonomy kind.
func TestHTTP_ErrorEnvelopes(t *testing.T) {
	server := newTestServer(t)
	base := server.URL

	tests := []struct {
		name     string
		invoke   func() (*http.Response, map[string]any)
		status   int
		wantKind string
	}{
		{
			"missing session",
			func() (*http.Response, map[string]any) { return getJSON(t, base+"/sessions/nope/state") },
			http.StatusNotFound, "SessionMissing",
		},
		{
			"preview without lock",
			func() (*http.Response, map[string]any) {
				return postJSON(t, base+"/sessions/quest/turn/preview", map[string]any{"response": "hi"})
			},
			http.StatusConflict, "LockRequired",
		},
		{
			"bad dice expression",
			func() (*http.Response, map[string]any) {
				postJSON(t, base+"/sessions/quest/lock/claim", map[string]any{"owner": "eve"})
				return postJSON(t, base+"/sessions/quest/turn/preview", map[string]any{
					"response":         "hi",
					"dice_expressions": []string{"not dice 5x"},
					"lock_owner":       "eve",
				})
			},
			http.StatusBadRequest, "ExpressionInvalid",
		},
		{
			"reserved diff endpoint",
			func() (*http.Response, map[string]any) { return getJSON(t, base+"/sessions/quest/diff") },
			http.StatusNotImplemented, "Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := tt.invoke()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tt.status, body)
			}
			envelope, ok := body["error"].(map[string]any)
			if !ok {
				t.Fatalf("no error envelope in %v", body)
			}
			if envelope["kind"] != tt.wantKind {
				t.Errorf("kind = %v, want %s", envelope["kind"], tt.wantKind)
			}
			if envelope["message"] == "" {
				t.Error("message must be populated")
			}
		})
	}
}

// Concurrent lock claims over HTTP admit exactly one winner.
func TestHTTP_ConcurrentLockClaims(t *testing.T) {
	server := newTestServer(t)
	base := server.URL

	const claimants = 8
	statuses := make(chan int, claimants)
	for i := 0; i < claimants; i++ {
		go func(i int) {
			payload, _ := json.Marshal(map[string]any{"owner": fmt.Sprintf("owner-%d", i), "ttl": 60})
			resp, err := http.Post(base+"/sessions/quest/lock/claim", "application/json", bytes.NewReader(payload))
			if err != nil {
				statuses <- -1
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}

	winners := 0
	for i := 0; i < claimants; i++ {
		switch <-statuses {
		case http.StatusOK:
			winners++
		case http.StatusConflict:
		default:
			t.Error("unexpected claim outcome")
		}
	}
	if winners != 1 {
		t.Fatalf("exactly one HTTP claim must win, got %d", winners)
	}
}

func TestHTTP_RollAndTurnInfo(t *testing.T) {
	server := newTestServer(t)
	base := server.URL

	postJSON(t, base+"/sessions/quest/lock/claim", map[string]any{"owner": "alice"})

	resp, roll := postJSON(t, base+"/sessions/quest/roll", map[string]any{
		"expression": "1d20+2",
		"reason":     "perception",
		"lock_owner": "alice",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("roll status = %d: %v", resp.StatusCode, roll)
	}
	if roll["total"] == nil || roll["breakdown"] == "" {
		t.Errorf("roll response = %v", roll)
	}
	indices := roll["entropy_indices"].([]any)
	if len(indices) != 1 || indices[0] != float64(1) {
		t.Errorf("entropy indices = %v", indices)
	}

	resp, info := getJSON(t, base+"/sessions/quest/turn")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn info status = %d", resp.StatusCode)
	}
	if info["turn_number"] != float64(0) {
		t.Errorf("turn_number = %v", info["turn_number"])
	}
	lockStatus := info["lock_status"].(map[string]any)
	if lockStatus["held"] != true {
		t.Errorf("lock_status = %v", lockStatus)
	}
}

func TestHTTP_Health(t *testing.T) {
	server := newTestServer(t)
	resp, body := getJSON(t, server.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if body["backend"] != "file" || body["entropy_length"] != float64(10) {
		t.Errorf("health body = %v", body)
	}
}
