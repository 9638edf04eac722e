package posture

import (
	"fmt"
	"time"
)

// State is one of the five posture monitoring states.
type State string

const (
	// MonitoringLying is the resting state: the person is lying down.
	MonitoringLying State = "MONITORING_LYING"
	// RestlessMovement means a non-lying posture was observed but no sit-up
	// has been confirmed yet.
	RestlessMovement State = "RESTLESS_MOVEMENT"
	// SittingDetected means a sitting posture is being timed against the
	// persistence duration before an alert fires.
	SittingDetected State = "SITTING_DETECTED"
	// AlertActive means a confirmed sit-up alert is in progress.
	AlertActive State = "ALERT_ACTIVE"
	// AlertCooldown suppresses further alerts until the cooldown elapses.
	AlertCooldown State = "ALERT_COOLDOWN"
)

// Transition records a change between posture states.
type Transition struct {
	From   State
	To     State
	At     time.Time
	Reason string
}

// Machine is the posture alert state machine. It is advanced once per frame
// with the classified posture category and compares its timers against the
// supplied monotonic clock reading, never against frame counts.
//
// The machine can be frozen while monitoring is suspended; its timers stop
// counting and resume from where they left off, so a pause can never produce
// an instant alert or swallow an almost-elapsed cooldown.
type Machine struct {
	state State

	persistenceDuration time.Duration
	cooldownDuration    time.Duration

	persistenceStart *time.Time
	cooldownStart    *time.Time
	frozenAt         *time.Time

	alertCount int
}

// NewMachine creates a Machine in MONITORING_LYING with the given timer
// durations.
func NewMachine(persistence, cooldown time.Duration) *Machine {
	return &Machine{
		state:               MonitoringLying,
		persistenceDuration: persistence,
		cooldownDuration:    cooldown,
	}
}

// State returns the current posture state.
func (m *Machine) State() State {
	return m.state
}

// AlertCount returns the number of alerts fired since construction.
// It never decreases.
func (m *Machine) AlertCount() int {
	return m.alertCount
}

// Update advances the machine with the posture observed this frame.
// It returns the transition that occurred, or nil. Updates while frozen are
// ignored.
func (m *Machine) Update(category Category, now time.Time) *Transition {
	if m.frozenAt != nil {
		return nil
	}

	next, reason := m.nextState(category, now)
	if next == m.state {
		return nil
	}
	return m.transitionTo(next, now, reason)
}

// nextState applies the transition table for the current state.
func (m *Machine) nextState(category Category, now time.Time) (State, string) {
	switch m.state {
	case MonitoringLying:
		if category != Lying {
			return RestlessMovement, fmt.Sprintf("posture %s observed", category)
		}

	case RestlessMovement:
		if category == Sitting {
			return SittingDetected, "sitting posture observed"
		}
		if category == Lying {
			return MonitoringLying, "returned to lying"
		}

	case SittingDetected:
		if m.persistenceStart != nil && now.Sub(*m.persistenceStart) >= m.persistenceDuration {
			return AlertActive, "persistence timer elapsed"
		}
		if category == Lying {
			return MonitoringLying, "lay back down before timer elapsed"
		}
		if category != Sitting {
			return RestlessMovement, fmt.Sprintf("posture %s cancelled timer", category)
		}

	case AlertActive:
		if category == Lying {
			return AlertCooldown, "lying detected, alert dismissed"
		}

	case AlertCooldown:
		if m.cooldownStart != nil && now.Sub(*m.cooldownStart) >= m.cooldownDuration {
			if category == Lying {
				return MonitoringLying, "cooldown complete"
			}
			return RestlessMovement, "cooldown complete, person not lying"
		}
	}

	return m.state, ""
}

// transitionTo moves to the new state and runs its entry action.
func (m *Machine) transitionTo(next State, now time.Time, reason string) *Transition {
	t := &Transition{From: m.state, To: next, At: now, Reason: reason}

	switch next {
	case SittingDetected:
		// Always a fresh timer: no credit for earlier partial sits.
		start := now
		m.persistenceStart = &start

	case AlertActive:
		m.persistenceStart = nil
		m.alertCount++

	case AlertCooldown:
		start := now
		m.cooldownStart = &start

	case MonitoringLying, RestlessMovement:
		m.persistenceStart = nil
		m.cooldownStart = nil
	}

	m.state = next
	return t
}

// Freeze suspends the machine's timers. Calling Freeze while already frozen
// has no effect.
func (m *Machine) Freeze(now time.Time) {
	if m.frozenAt == nil {
		at := now
		m.frozenAt = &at
	}
}

// Resume unfreezes the machine, shifting any running timers forward by the
// frozen interval so they continue from where they stopped.
func (m *Machine) Resume(now time.Time) {
	if m.frozenAt == nil {
		return
	}

	paused := now.Sub(*m.frozenAt)
	if m.persistenceStart != nil {
		shifted := m.persistenceStart.Add(paused)
		m.persistenceStart = &shifted
	}
	if m.cooldownStart != nil {
		shifted := m.cooldownStart.Add(paused)
		m.cooldownStart = &shifted
	}
	m.frozenAt = nil
}

// PersistenceElapsed returns how long the persistence timer has been running,
// or zero and false when it is not running.
func (m *Machine) PersistenceElapsed(now time.Time) (time.Duration, bool) {
	if m.persistenceStart == nil {
		return 0, false
	}
	if m.frozenAt != nil {
		return m.frozenAt.Sub(*m.persistenceStart), true
	}
	return now.Sub(*m.persistenceStart), true
}

// CooldownRemaining returns the time left on the cooldown timer, or zero and
// false when it is not running.
func (m *Machine) CooldownRemaining(now time.Time) (time.Duration, bool) {
	if m.cooldownStart == nil {
		return 0, false
	}
	ref := now
	if m.frozenAt != nil {
		ref = *m.frozenAt
	}
	remaining := m.cooldownDuration - ref.Sub(*m.cooldownStart)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
