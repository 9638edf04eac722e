package engine

import (
	"testing"
	"time"

	"github.com/seniorcare/nightwatchman/internal/command"
	"github.com/seniorcare/nightwatchman/internal/detector"
	"github.com/seniorcare/nightwatchman/internal/gesture"
	"github.com/seniorcare/nightwatchman/internal/posture"
)

var t0 = time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// holdThumbsUp feeds thumbs-up frames at 100ms cadence until an intent fires
// and returns the result of the tick that fired it.
func holdThumbsUp(t *testing.T, e *Engine, from time.Time) (Result, time.Time) {
	t.Helper()
	hand := detector.ThumbsUpLandmarks()
	for now := from; !now.After(from.Add(5 * time.Second)); now = now.Add(100 * time.Millisecond) {
		res := e.Tick(Input{Hand: &hand}, now)
		if len(res.Intents) > 0 {
			return res, now
		}
	}
	t.Fatal("thumbs up never fired an intent")
	return Result{}, time.Time{}
}

func TestEngine_StartsViaGesture(t *testing.T) {
	e := newTestEngine(t, nil)

	if e.State() != command.WaitingForStart {
		t.Fatalf("initial state = %s, want WAITING_FOR_START", e.State())
	}

	res, _ := holdThumbsUp(t, e, t0)

	if res.Intents[0].Kind != gesture.KindBegin {
		t.Fatalf("intent = %s, want begin", res.Intents[0].Kind)
	}
	// The intent, its command, and the state change all land in one tick.
	if len(res.Commands) != 1 {
		t.Fatalf("got %d command results, want 1", len(res.Commands))
	}
	cr := res.Commands[0]
	if !cr.Applied || cr.Command.Kind != command.Start || cr.Command.Source != command.SourceGesture {
		t.Errorf("command result = %+v, want applied gesture start", cr)
	}
	if e.State() != command.ActiveMonitoring {
		t.Errorf("state = %s, want ACTIVE_MONITORING", e.State())
	}
}

func TestEngine_BeginGestureResumesWhenPaused(t *testing.T) {
	e := newTestEngine(t, nil)
	e.EnqueueRemote(command.Start, t0)
	e.EnqueueRemote(command.Pause, t0)
	e.Tick(Input{}, t0)

	if e.State() != command.Paused {
		t.Fatalf("state = %s, want PAUSED", e.State())
	}

	res, _ := holdThumbsUp(t, e, t0.Add(time.Second))
	if res.Commands[0].Command.Kind != command.Resume {
		t.Errorf("begin gesture while paused mapped to %s, want resume", res.Commands[0].Command.Kind)
	}
	if e.State() != command.ActiveMonitoring {
		t.Errorf("state = %s, want ACTIVE_MONITORING", e.State())
	}
}

func TestEngine_PauseGestureRejectedBeforeStart(t *testing.T) {
	e := newTestEngine(t, nil)

	hand := detector.ThumbsDownLandmarks()
	var fired bool
	for now := t0; !now.After(t0.Add(3 * time.Second)); now = now.Add(100 * time.Millisecond) {
		res := e.Tick(Input{Hand: &hand}, now)
		for _, cr := range res.Commands {
			fired = true
			if cr.Applied {
				t.Errorf("pause before start was applied: %+v", cr)
			}
		}
	}
	if !fired {
		t.Fatal("pause gesture never reached arbitration")
	}
	if e.State() != command.WaitingForStart {
		t.Errorf("state = %s, want WAITING_FOR_START", e.State())
	}
}

func TestEngine_BatchArbitrationLatestWins(t *testing.T) {
	e := newTestEngine(t, nil)
	e.EnqueueRemote(command.Start, t0)
	e.Tick(Input{}, t0)

	// Pause and resume both arrive between ticks; one tick drains both.
	e.EnqueueRemote(command.Pause, t0.Add(time.Second))
	e.EnqueueRemote(command.Resume, t0.Add(2*time.Second))

	res := e.Tick(Input{}, t0.Add(3*time.Second))
	if len(res.Commands) != 2 {
		t.Fatalf("got %d command results, want 2", len(res.Commands))
	}
	if !res.Commands[0].Applied || !res.Commands[1].Applied {
		t.Errorf("both commands should apply in order: %+v", res.Commands)
	}
	if e.State() != command.ActiveMonitoring {
		t.Errorf("state = %s, want ACTIVE_MONITORING after pause+resume batch", e.State())
	}
}

func TestEngine_PostureGatedUntilStart(t *testing.T) {
	e := newTestEngine(t, nil)

	// Sitting frames before monitoring starts must not touch the posture
	// pipeline at all.
	for i := 0; i < 5; i++ {
		res := e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(time.Duration(i)*time.Second))
		if res.Category != "" || res.Posture != nil {
			t.Fatalf("posture pipeline ran before start: %+v", res)
		}
	}

	snap := e.Snapshot(t0.Add(5 * time.Second))
	if snap.PostureState != posture.MonitoringLying || snap.MetricsReady {
		t.Errorf("snapshot = %+v, want untouched posture state", snap)
	}
}

func TestEngine_SitUpAlertEndToEnd(t *testing.T) {
	e := newTestEngine(t, nil)
	e.EnqueueRemote(command.Start, t0)
	e.Tick(Input{}, t0)

	var alertAt time.Time
	for now := t0.Add(time.Second); !now.After(t0.Add(30 * time.Second)); now = now.Add(time.Second) {
		res := e.Tick(Input{Pose: detector.SittingPose()}, now)
		if res.AlertFired {
			alertAt = now
			break
		}
	}
	if alertAt.IsZero() {
		t.Fatal("sustained sitting never fired an alert")
	}

	// Frame 1 moves to RESTLESS_MOVEMENT, frame 2 starts the persistence
	// timer at t0+2; the alert lands once 10s of sitting have elapsed on
	// top of that.
	if got, want := alertAt, t0.Add(12*time.Second); got != want {
		t.Errorf("alert fired at %v, want %v", got, want)
	}

	snap := e.Snapshot(alertAt)
	if snap.PostureState != posture.AlertActive {
		t.Errorf("PostureState = %s, want ALERT_ACTIVE", snap.PostureState)
	}
	if snap.AlertCount != 1 {
		t.Errorf("AlertCount = %d, want 1", snap.AlertCount)
	}
}

func TestEngine_PauseFreezesPersistenceTimer(t *testing.T) {
	e := newTestEngine(t, nil)
	e.EnqueueRemote(command.Start, t0)
	e.Tick(Input{}, t0)

	// Get into SITTING_DETECTED: restless first, then the timer starts at
	// t0+2.
	e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(1*time.Second))
	e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(2*time.Second))
	if snap := e.Snapshot(t0.Add(2 * time.Second)); snap.PostureState != posture.SittingDetected {
		t.Fatalf("PostureState = %s, want SITTING_DETECTED", snap.PostureState)
	}

	// Pause 3 seconds into the 10-second timer.
	e.EnqueueRemote(command.Pause, t0.Add(5*time.Second))
	e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(5*time.Second))

	// A minute of paused sitting changes nothing.
	for now := t0.Add(6 * time.Second); !now.After(t0.Add(60 * time.Second)); now = now.Add(10 * time.Second) {
		if res := e.Tick(Input{Pose: detector.SittingPose()}, now); res.Posture != nil || res.AlertFired {
			t.Fatalf("posture advanced while paused: %+v", res)
		}
	}

	// Resume at t0+65: 3 seconds were on the clock, 7 remain.
	e.EnqueueRemote(command.Resume, t0.Add(65*time.Second))
	e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(65*time.Second))

	if res := e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(71*time.Second)); res.AlertFired {
		t.Fatal("alert fired before the remaining timer ran down")
	}
	res := e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(72*time.Second))
	if !res.AlertFired {
		t.Fatalf("expected alert once the frozen timer completed, state %s", e.Snapshot(t0.Add(72*time.Second)).PostureState)
	}
}

func TestEngine_PauseTimeoutAutoResumes(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) {
		cfg.PauseTimeout = 30 * time.Second
	})
	e.EnqueueRemote(command.Start, t0)
	e.EnqueueRemote(command.Pause, t0)
	e.Tick(Input{}, t0)

	if res := e.Tick(Input{}, t0.Add(29*time.Second)); len(res.Commands) != 0 {
		t.Fatalf("auto-resume fired early: %+v", res.Commands)
	}

	res := e.Tick(Input{}, t0.Add(30*time.Second))
	if len(res.Commands) != 1 {
		t.Fatalf("got %d command results, want 1 auto-resume", len(res.Commands))
	}
	cr := res.Commands[0]
	if !cr.Applied || cr.Command.Kind != command.Resume || cr.Command.Source != command.SourceSystem {
		t.Errorf("command result = %+v, want applied system resume", cr)
	}
	if e.State() != command.ActiveMonitoring {
		t.Errorf("state = %s, want ACTIVE_MONITORING", e.State())
	}
}

func TestEngine_LowConfidencePoseIgnored(t *testing.T) {
	e := newTestEngine(t, nil)
	e.EnqueueRemote(command.Start, t0)
	e.Tick(Input{}, t0)

	pose := detector.SittingPose()
	pose.LeftShoulder.Confidence = 0.2
	pose.RightShoulder.Confidence = 0.2
	pose.LeftHip.Confidence = 0.2
	pose.RightHip.Confidence = 0.2

	for i := 1; i <= 5; i++ {
		res := e.Tick(Input{Pose: pose}, t0.Add(time.Duration(i)*time.Second))
		if res.Category != "" || res.Posture != nil {
			t.Fatalf("low-confidence frame classified: %+v", res)
		}
	}
	if snap := e.Snapshot(t0.Add(6 * time.Second)); snap.MetricsReady {
		t.Error("low-confidence frames fed the smoother")
	}
}

func TestEngine_StopResetsSession(t *testing.T) {
	e := newTestEngine(t, nil)
	e.EnqueueRemote(command.Start, t0)
	e.Tick(Input{}, t0)
	e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(1*time.Second))
	e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(2*time.Second))
	e.Tick(Input{Pose: detector.SittingPose()}, t0.Add(3*time.Second))

	e.EnqueueRemote(command.Stop, t0.Add(4*time.Second))
	e.Tick(Input{}, t0.Add(4*time.Second))

	if e.State() != command.WaitingForStart {
		t.Fatalf("state = %s, want WAITING_FOR_START", e.State())
	}
	snap := e.Snapshot(t0.Add(4 * time.Second))
	if snap.PostureState != posture.MonitoringLying || snap.MetricsReady {
		t.Errorf("stop did not reset the session: %+v", snap)
	}
}

// driveToAlert feeds sustained sitting until an alert fires and returns when
// it did.
func driveToAlert(t *testing.T, e *Engine, from time.Time) time.Time {
	t.Helper()
	for now := from; !now.After(from.Add(30 * time.Second)); now = now.Add(time.Second) {
		if res := e.Tick(Input{Pose: detector.SittingPose()}, now); res.AlertFired {
			return now
		}
	}
	t.Fatal("sustained sitting never fired an alert")
	return time.Time{}
}

func TestEngine_AlertCountMonotonicAcrossStopStart(t *testing.T) {
	e := newTestEngine(t, nil)
	e.EnqueueRemote(command.Start, t0)
	e.Tick(Input{}, t0)
	alertAt := driveToAlert(t, e, t0.Add(time.Second))

	e.EnqueueRemote(command.Stop, alertAt.Add(time.Second))
	e.Tick(Input{}, alertAt.Add(time.Second))
	if got := e.Snapshot(alertAt.Add(time.Second)).AlertCount; got != 1 {
		t.Fatalf("AlertCount = %d after stop, want 1", got)
	}

	// A fresh session resets posture state but keeps counting from where the
	// last one left off.
	startAt := alertAt.Add(2 * time.Second)
	e.EnqueueRemote(command.Start, startAt)
	e.Tick(Input{}, startAt)
	snap := e.Snapshot(startAt)
	if snap.AlertCount != 1 {
		t.Fatalf("AlertCount = %d after restart, want 1", snap.AlertCount)
	}
	if snap.PostureState != posture.MonitoringLying {
		t.Fatalf("PostureState = %s after restart, want MONITORING_LYING", snap.PostureState)
	}

	driveToAlert(t, e, startAt.Add(time.Second))
	if got := e.Snapshot(startAt.Add(30 * time.Second)).AlertCount; got != 2 {
		t.Errorf("AlertCount = %d after second alert, want 2", got)
	}
}

func TestEngine_EnqueueRemoteValidation(t *testing.T) {
	e := newTestEngine(t, nil)

	if err := e.EnqueueRemote(command.Kind("reboot"), t0); err == nil {
		t.Error("unknown command kind accepted")
	}
	if err := e.EnqueueRemote(command.Start, t0); err != nil {
		t.Errorf("valid command rejected: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above 1", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative persistence", func(c *Config) { c.Persistence = -time.Second }},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Second }},
		{"angle out of range", func(c *Config) { c.Bounds.SittingAngleMax = 200 }},
		{"inverted angle band", func(c *Config) { c.Bounds.SittingAngleMin = 120 }},
		{"hand size above 1", func(c *Config) { c.MinHandSize = 2 }},
		{"zero gesture hold", func(c *Config) { c.Gesture.BeginHold = 0 }},
		{"negative pause timeout", func(c *Config) { c.PauseTimeout = -time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config passed validation")
			}
			if _, err := New(cfg); err == nil {
				t.Error("New accepted an invalid config")
			}
		})
	}
}
