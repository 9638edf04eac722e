package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seniorcare/nightwatchman/internal/command"
	"github.com/seniorcare/nightwatchman/internal/engine"
	"github.com/seniorcare/nightwatchman/internal/store"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine, *store.Store) {
	t.Helper()

	e, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(Config{Engine: e, Store: st}), e, st
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.SystemState != "WAITING_FOR_START" {
		t.Errorf("system_state = %s, want WAITING_FOR_START", body.SystemState)
	}
	if body.PostureState != "MONITORING_LYING" {
		t.Errorf("posture_state = %s, want MONITORING_LYING", body.PostureState)
	}
}

func TestCommand_QueuedAndApplied(t *testing.T) {
	srv, e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/command",
		strings.NewReader(`{"command":"start"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	// The command only takes effect on the next tick.
	if e.State() != command.WaitingForStart {
		t.Fatalf("state changed before a tick: %s", e.State())
	}
	e.Tick(engine.Input{}, time.Now())
	if e.State() != command.ActiveMonitoring {
		t.Errorf("state = %s after tick, want ACTIVE_MONITORING", e.State())
	}
}

func TestCommand_RejectsUnknown(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/command",
		strings.NewReader(`{"command":"reboot"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCommand_RejectsMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/command",
		strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCommand_GetNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/command", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestEvents(t *testing.T) {
	srv, _, st := newTestServer(t)

	err := st.Events().RecordAlert(&store.Alert{
		AlertNumber: 1,
		CreatedAt:   time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?type=alerts", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Events []store.Alert `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].AlertNumber != 1 {
		t.Errorf("events = %+v, want the recorded alert", body.Events)
	}
}

func TestEvents_UnknownType(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/events?type=bogus", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEvents_InvalidLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, limit := range []string{"0", "-1", "5000", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/events?limit="+limit, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}
