// Package engine ties posture classification, gesture debouncing, and command
// arbitration together into a single per-frame decision step.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/seniorcare/nightwatchman/internal/command"
	"github.com/seniorcare/nightwatchman/internal/detector"
	"github.com/seniorcare/nightwatchman/internal/gesture"
	"github.com/seniorcare/nightwatchman/internal/posture"
)

// Config holds every tunable of the decision engine.
type Config struct {
	// ConfidenceThreshold is the minimum average pose-landmark confidence
	// for a frame's metrics to be trusted.
	ConfidenceThreshold float64

	Bounds posture.Bounds

	// Persistence is how long sitting must persist before an alert fires.
	Persistence time.Duration
	// Cooldown is how long alerts are suppressed after one is dismissed.
	Cooldown time.Duration

	Gesture gesture.Config

	// MinHandSize is the wrist-to-middle-fingertip distance below which a
	// detected hand is considered too far away to be a deliberate gesture.
	MinHandSize float64

	// PauseTimeout auto-resumes monitoring after a pause has lasted this
	// long. Zero disables the timeout.
	PauseTimeout time.Duration

	// QueueCapacity bounds the pending command queue.
	QueueCapacity int
}

// DefaultConfig returns the production engine configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		Bounds:              posture.DefaultBounds(),
		Persistence:         10 * time.Second,
		Cooldown:            900 * time.Second,
		Gesture:             gesture.DefaultConfig(),
		MinHandSize:         0.15,
		QueueCapacity:       32,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v outside 0-1", c.ConfidenceThreshold)
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("posture bounds: %w", err)
	}
	if c.Persistence <= 0 {
		return fmt.Errorf("persistence duration must be positive, got %v", c.Persistence)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown duration must not be negative, got %v", c.Cooldown)
	}
	if err := c.Gesture.Validate(); err != nil {
		return fmt.Errorf("gesture config: %w", err)
	}
	if c.MinHandSize < 0 || c.MinHandSize > 1 {
		return fmt.Errorf("minimum hand size %v outside 0-1", c.MinHandSize)
	}
	if c.PauseTimeout < 0 {
		return fmt.Errorf("pause timeout must not be negative, got %v", c.PauseTimeout)
	}
	return nil
}

// Input is everything the engine consumes for one frame. Either landmark set
// may be nil when detection found nothing.
type Input struct {
	Pose *detector.PoseLandmarks
	Hand *detector.HandLandmarks
}

// Result reports everything that happened during one tick.
type Result struct {
	// Commands holds the arbitration outcome of every command drained this
	// tick, in the order they were applied.
	Commands []command.Result
	// Intents are the debounced gestures that fired this tick.
	Intents []gesture.Intent
	// Evaluation is the raw per-frame gesture verdict, for status display.
	Evaluation gesture.Evaluation
	// Posture is the posture state transition, if one occurred.
	Posture *posture.Transition
	// AlertFired is true when this tick confirmed a sit-up alert.
	AlertFired bool
	// Category is the posture category classified this tick, or empty when
	// monitoring is not active or the frame was not trusted.
	Category posture.Category
}

// Snapshot is a point-in-time view of the engine for status endpoints.
type Snapshot struct {
	SystemState  command.SystemState
	PostureState posture.State
	Category     posture.Category
	AlertCount   int

	MetricsReady bool
	Metrics      posture.SmoothedMetrics

	PersistenceElapsed time.Duration
	CooldownRemaining  time.Duration

	BeginProgress float64
	PauseProgress float64
}

// Engine is the per-frame decision core. Tick must be called from a single
// goroutine; EnqueueRemote and Snapshot are safe from any goroutine.
type Engine struct {
	cfg Config

	mu        sync.Mutex
	arbiter   *command.Arbiter
	queue     *command.Queue
	debouncer *gesture.Debouncer
	smoother  *posture.Smoother
	machine   *posture.Machine
	category  posture.Category
	pausedAt  *time.Time

	// alertBase accumulates alerts fired by machines discarded on session
	// reset, so the reported count never decreases across stop/start.
	alertBase int
}

// New builds an Engine from a validated configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	e := &Engine{
		cfg:     cfg,
		arbiter: command.NewArbiter(),
		queue:   command.NewQueue(cfg.QueueCapacity),
	}
	e.resetSession()
	return e, nil
}

// resetSession discards per-session posture and gesture state. The alert
// count is folded into alertBase first; it outlives every session.
func (e *Engine) resetSession() {
	if e.machine != nil {
		e.alertBase += e.machine.AlertCount()
	}
	e.debouncer = gesture.NewDebouncer(e.cfg.Gesture)
	e.smoother = posture.NewSmoother()
	e.machine = posture.NewMachine(e.cfg.Persistence, e.cfg.Cooldown)
	e.category = posture.Transitioning
}

// EnqueueRemote queues a command from a remote controller. It returns an
// error for unknown command kinds or a full queue; arbitration against the
// current state happens on the next tick.
func (e *Engine) EnqueueRemote(kind command.Kind, at time.Time) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown command %q", kind)
	}
	if !e.queue.Enqueue(command.New(kind, command.SourceRemote, at)) {
		return fmt.Errorf("command queue full, dropping %s", kind)
	}
	return nil
}

// Tick processes one frame. Gestures are evaluated on every tick so the
// resident can always start or pause the monitor; the posture pipeline only
// runs while monitoring is active.
func (e *Engine) Tick(in Input, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res Result

	// 1. Gestures first, so an intent held across this frame lands in the
	// same tick's arbitration batch.
	res.Evaluation = gesture.Evaluate(in.Hand, e.cfg.MinHandSize)
	res.Intents = e.debouncer.Update(res.Evaluation, now)
	for _, intent := range res.Intents {
		e.queue.Enqueue(e.commandFor(intent))
	}

	// 2. An expired pause turns into a queued resume, subject to the same
	// arbitration as everything else.
	if e.cfg.PauseTimeout > 0 && e.pausedAt != nil && now.Sub(*e.pausedAt) >= e.cfg.PauseTimeout {
		e.queue.Enqueue(command.New(command.Resume, command.SourceSystem, now))
	}

	// 3. Drain and arbitrate the whole batch in arrival order.
	pending := e.queue.DrainInto(nil)
	res.Commands = e.arbiter.ApplyAll(pending)
	for _, cr := range res.Commands {
		e.applyStateChange(cr, now)
	}

	// 4. Posture, only while actively monitoring.
	if e.arbiter.State() != command.ActiveMonitoring {
		return res
	}

	if in.Pose != nil && in.Pose.AvgConfidence() >= e.cfg.ConfidenceThreshold {
		e.smoother.Observe(posture.ComputeRaw(in.Pose))
	}
	if !e.smoother.Ready() {
		return res
	}

	e.category = e.cfg.Bounds.Classify(e.smoother.Value(), e.category)
	res.Category = e.category

	res.Posture = e.machine.Update(e.category, now)
	if res.Posture != nil && res.Posture.To == posture.AlertActive {
		res.AlertFired = true
	}
	return res
}

// commandFor maps a fired gesture intent to a command against the current
// system state: a begin gesture starts a session when none is running and
// resumes a paused one otherwise.
func (e *Engine) commandFor(intent gesture.Intent) command.Command {
	kind := command.Pause
	if intent.Kind == gesture.KindBegin {
		if e.arbiter.State() == command.WaitingForStart {
			kind = command.Start
		} else {
			kind = command.Resume
		}
	}
	return command.New(kind, command.SourceGesture, intent.At)
}

// applyStateChange runs the side effects of an applied command: freezing the
// posture machine across a pause and resetting it across a stop or start.
func (e *Engine) applyStateChange(cr command.Result, now time.Time) {
	if !cr.Applied {
		return
	}

	switch cr.To {
	case command.Paused:
		at := now
		e.pausedAt = &at
		e.machine.Freeze(now)

	case command.ActiveMonitoring:
		e.pausedAt = nil
		if cr.From == command.Paused {
			e.machine.Resume(now)
		} else {
			e.resetSession()
		}

	case command.WaitingForStart:
		e.pausedAt = nil
		e.resetSession()
	}
}

// State returns the current system state.
func (e *Engine) State() command.SystemState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arbiter.State()
}

// Snapshot captures the engine's current state for status reporting.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		SystemState:   e.arbiter.State(),
		PostureState:  e.machine.State(),
		Category:      e.category,
		AlertCount:    e.alertBase + e.machine.AlertCount(),
		MetricsReady:  e.smoother.Ready(),
		BeginProgress: e.debouncer.Progress(gesture.KindBegin),
		PauseProgress: e.debouncer.Progress(gesture.KindPause),
	}
	if s.MetricsReady {
		s.Metrics = e.smoother.Value()
	}
	if elapsed, running := e.machine.PersistenceElapsed(now); running {
		s.PersistenceElapsed = elapsed
	}
	if remaining, running := e.machine.CooldownRemaining(now); running {
		s.CooldownRemaining = remaining
	}
	return s
}
