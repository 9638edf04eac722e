package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
	"go.uber.org/zap"

	"github.com/seniorcare/nightwatchman/internal/app"
	"github.com/seniorcare/nightwatchman/internal/capture"
	"github.com/seniorcare/nightwatchman/internal/detector"
	"github.com/seniorcare/nightwatchman/internal/engine"
	"github.com/seniorcare/nightwatchman/internal/mqtt"
	"github.com/seniorcare/nightwatchman/internal/server"
	"github.com/seniorcare/nightwatchman/internal/store"
)

// harness wires the full monitor with fake detection and a real HTTP API.
type harness struct {
	app       *app.App
	pose      *detector.MockPoseDetector
	hand      *detector.MockHandDetector
	publisher *mqtt.FakePublisher
	ts        *httptest.Server
	client    *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	if err := camera.Open(); err != nil {
		t.Fatalf("camera.Open: %v", err)
	}

	st, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	srv := server.New(server.Config{
		Engine: eng,
		Store:  st,
		Logger: zap.NewNop(),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	h := &harness{
		pose:      detector.NewMockPoseDetector(),
		hand:      detector.NewMockHandDetector(),
		publisher: mqtt.NewFakePublisher(),
		ts:        ts,
		client:    ts.Client(),
	}
	h.app = app.New(app.Config{
		Camera:       camera,
		PoseDetector: h.pose,
		HandDetector: h.hand,
		Engine:       eng,
		Store:        st,
		Publisher:    h.publisher,
		Hub:          srv.Hub(),
		Logger:       zap.NewNop(),
	})
	return h
}

func (h *harness) postCommand(t *testing.T, word string) *http.Response {
	t.Helper()
	resp, err := h.client.Post(
		h.ts.URL+"/api/command",
		"application/json",
		strings.NewReader(`{"command":"`+word+`"}`),
	)
	if err != nil {
		t.Fatalf("post command %s: %v", word, err)
	}
	return resp
}

func (h *harness) status(t *testing.T) map[string]any {
	t.Helper()
	resp, err := h.client.Get(h.ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return body
}

func TestE2E_RemoteStartSitUpAlert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)
	t0 := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)

	if got := h.status(t)["system_state"]; got != "WAITING_FOR_START" {
		t.Fatalf("initial system_state = %v, want WAITING_FOR_START", got)
	}

	resp := h.postCommand(t, "start")
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start command status = %d, want 202", resp.StatusCode)
	}
	h.app.Tick(t0)

	if got := h.status(t)["system_state"]; got != "ACTIVE_MONITORING" {
		t.Fatalf("system_state = %v after start, want ACTIVE_MONITORING", got)
	}

	// Sit up and stay up through the persistence window.
	h.pose.SetPose(detector.SittingPose())
	for s := 1; s <= 13; s++ {
		h.app.Tick(t0.Add(time.Duration(s) * time.Second))
	}

	status := h.status(t)
	if got := status["posture_state"]; got != "ALERT_ACTIVE" {
		t.Errorf("posture_state = %v, want ALERT_ACTIVE", got)
	}
	if got := status["alert_count"]; got != float64(1) {
		t.Errorf("alert_count = %v, want 1", got)
	}
	if len(h.publisher.AlertEvents) != 1 {
		t.Errorf("published %d alert events, want 1", len(h.publisher.AlertEvents))
	}

	// The alert shows up in the persisted event log.
	eventsResp, err := h.client.Get(h.ts.URL + "/api/events?type=alerts")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer eventsResp.Body.Close()
	var events struct {
		Events []store.Alert `json:"events"`
	}
	if err := json.NewDecoder(eventsResp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].AlertNumber != 1 {
		t.Errorf("alert events = %+v, want one alert numbered 1", events.Events)
	}
}

func TestE2E_PauseSuppressesAlert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)
	t0 := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)

	resp := h.postCommand(t, "start")
	resp.Body.Close()
	h.app.Tick(t0)

	// Sitting is noticed but the alert is still pending when care staff
	// pauses for a scheduled check.
	h.pose.SetPose(detector.SittingPose())
	for s := 1; s <= 5; s++ {
		h.app.Tick(t0.Add(time.Duration(s) * time.Second))
	}

	resp = h.postCommand(t, "pause")
	resp.Body.Close()
	h.app.Tick(t0.Add(6 * time.Second))

	if got := h.status(t)["system_state"]; got != "PAUSED" {
		t.Fatalf("system_state = %v, want PAUSED", got)
	}

	// A long pause does not fire the alert; the timer is frozen.
	for s := 7; s <= 60; s++ {
		h.app.Tick(t0.Add(time.Duration(s) * time.Second))
	}
	if len(h.publisher.AlertEvents) != 0 {
		t.Fatalf("alert fired while paused: %+v", h.publisher.AlertEvents)
	}

	resp = h.postCommand(t, "resume")
	resp.Body.Close()
	for s := 61; s <= 70; s++ {
		h.app.Tick(t0.Add(time.Duration(s) * time.Second))
	}
	if len(h.publisher.AlertEvents) != 1 {
		t.Errorf("published %d alert events after resume, want 1", len(h.publisher.AlertEvents))
	}
}

func TestE2E_RejectedRemoteCommandLogged(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)
	t0 := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)

	// Pausing before any session is accepted by the API but rejected by the
	// arbiter on the next tick.
	resp := h.postCommand(t, "pause")
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("pause command status = %d, want 202", resp.StatusCode)
	}
	h.app.Tick(t0)

	if got := h.status(t)["system_state"]; got != "WAITING_FOR_START" {
		t.Errorf("system_state = %v, want WAITING_FOR_START", got)
	}

	eventsResp, err := h.client.Get(h.ts.URL + "/api/events?type=rejected")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer eventsResp.Body.Close()
	var events struct {
		Events []store.RejectedCommand `json:"events"`
	}
	if err := json.NewDecoder(eventsResp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].Kind != "pause" {
		t.Errorf("rejected events = %+v, want the pause command", events.Events)
	}
}
