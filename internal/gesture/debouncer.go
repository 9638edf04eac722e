package gesture

import (
	"fmt"
	"time"
)

// Kind identifies a debounced gesture intent.
type Kind string

const (
	// KindBegin is the thumbs-up intent: start or resume monitoring.
	KindBegin Kind = "begin"
	// KindPause is the thumbs-down intent: pause monitoring.
	KindPause Kind = "pause"
)

// Intent is a hold-confirmed gesture event.
type Intent struct {
	Kind    Kind
	At      time.Time
	HeldFor time.Duration
}

// Config holds the debouncer timing parameters.
type Config struct {
	// BeginHold and PauseHold are how long each gesture must be held before
	// its intent fires.
	BeginHold time.Duration
	PauseHold time.Duration
	// Grace is the maximum detection dropout that does not reset a hold.
	Grace time.Duration
}

// DefaultConfig returns the production debouncer timings.
func DefaultConfig() Config {
	return Config{
		BeginHold: 2 * time.Second,
		PauseHold: 2 * time.Second,
		Grace:     400 * time.Millisecond,
	}
}

// Validate rejects non-positive hold durations and negative grace periods.
func (c Config) Validate() error {
	if c.BeginHold <= 0 {
		return fmt.Errorf("begin hold duration must be positive, got %v", c.BeginHold)
	}
	if c.PauseHold <= 0 {
		return fmt.Errorf("pause hold duration must be positive, got %v", c.PauseHold)
	}
	if c.Grace < 0 {
		return fmt.Errorf("grace period must not be negative, got %v", c.Grace)
	}
	return nil
}

// candidate tracks one gesture kind's hold episode.
type candidate struct {
	kind        Kind
	hold        time.Duration
	grace       time.Duration
	accumulated time.Duration
	lastSeen    time.Time
	tracking    bool
	fired       bool
}

// observe updates the candidate with this frame's presence verdict and
// returns an intent if the hold threshold was just crossed.
//
// A hold episode starts on the first present frame and accumulates the
// monotonic time between present frames. Dropouts no longer than the grace
// period keep the episode alive; longer absence resets it entirely, which is
// also what re-arms a fired episode.
func (c *candidate) observe(present bool, now time.Time) *Intent {
	if !present {
		if c.tracking && now.Sub(c.lastSeen) > c.grace {
			c.tracking = false
			c.accumulated = 0
			c.fired = false
		}
		return nil
	}

	if !c.tracking {
		c.tracking = true
		c.accumulated = 0
		c.fired = false
		c.lastSeen = now
		return nil
	}

	c.accumulated += now.Sub(c.lastSeen)
	c.lastSeen = now

	if !c.fired && c.accumulated >= c.hold {
		c.fired = true
		return &Intent{Kind: c.kind, At: now, HeldFor: c.accumulated}
	}
	return nil
}

// progress reports how far the current hold episode is toward firing, 0-1.
func (c *candidate) progress() float64 {
	if !c.tracking || c.hold <= 0 {
		return 0
	}
	p := float64(c.accumulated) / float64(c.hold)
	if p > 1 {
		p = 1
	}
	return p
}

// Debouncer turns per-frame gesture evaluations into discrete intents.
// It runs on every frame regardless of whether monitoring is active.
type Debouncer struct {
	begin candidate
	pause candidate
}

// NewDebouncer creates a Debouncer with the given timing configuration.
func NewDebouncer(cfg Config) *Debouncer {
	return &Debouncer{
		begin: candidate{kind: KindBegin, hold: cfg.BeginHold, grace: cfg.Grace},
		pause: candidate{kind: KindPause, hold: cfg.PauseHold, grace: cfg.Grace},
	}
}

// Update feeds this frame's evaluation to both candidates and returns any
// intents that fired, begin first.
func (d *Debouncer) Update(eval Evaluation, now time.Time) []Intent {
	beginPresent := eval.HandPresent && eval.Begin
	// Begin wins if a frame somehow claims both shapes.
	pausePresent := eval.HandPresent && eval.Pause && !eval.Begin

	var intents []Intent
	if intent := d.begin.observe(beginPresent, now); intent != nil {
		intents = append(intents, *intent)
	}
	if intent := d.pause.observe(pausePresent, now); intent != nil {
		intents = append(intents, *intent)
	}
	return intents
}

// Progress reports the hold progress for the given kind, for status display.
func (d *Debouncer) Progress(kind Kind) float64 {
	switch kind {
	case KindBegin:
		return d.begin.progress()
	case KindPause:
		return d.pause.progress()
	}
	return 0
}
