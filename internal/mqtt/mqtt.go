// Package mqtt publishes monitor status to a broker and receives remote
// control commands, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/seniorcare/nightwatchman/internal/command"
)

// Topics relative to the configured base topic.
const (
	TopicState   = "state"
	TopicPosture = "posture"
	TopicAlert   = "alert"
	TopicStats   = "stats"
	TopicCommand = "command"
)

// Publisher publishes monitor events to MQTT. Publish failures are reported,
// never fatal; the monitor keeps running without the broker.
type Publisher interface {
	// PublishState sends a run-state change.
	PublishState(event StateEvent) error

	// PublishPosture sends a posture-machine change.
	PublishPosture(event PostureEvent) error

	// PublishAlert sends a confirmed sit-up alert.
	PublishAlert(event AlertEvent) error

	// PublishStats sends a periodic status summary.
	PublishStats(stats Stats) error

	// Close disconnects from the broker.
	Close() error
}

// StateEvent is a change of the top-level run state.
type StateEvent struct {
	Timestamp time.Time
	From      string
	To        string
	Command   string
	Source    string
}

// PostureEvent is a change of the posture alert machine.
type PostureEvent struct {
	Timestamp time.Time
	From      string
	To        string
	Reason    string
}

// AlertEvent is a confirmed sit-up alert.
type AlertEvent struct {
	Timestamp   time.Time
	AlertNumber int
}

// Stats is the periodic status summary.
type Stats struct {
	Timestamp    time.Time
	SystemState  string
	PostureState string
	Category     string
	AlertCount   int
	AngleDeg     float64
	VerticalDiff float64
}

type statePayload struct {
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Command   string `json:"command"`
	Source    string `json:"source"`
}

type posturePayload struct {
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
}

type alertPayload struct {
	Timestamp   string `json:"timestamp"`
	AlertNumber int    `json:"alert_number"`
}

type statsPayload struct {
	Timestamp    string  `json:"timestamp"`
	SystemState  string  `json:"system_state"`
	PostureState string  `json:"posture_state"`
	Category     string  `json:"category,omitempty"`
	AlertCount   int     `json:"alert_count"`
	AngleDeg     float64 `json:"angle_deg"`
	VerticalDiff float64 `json:"vertical_diff"`
}

// FormatStatePayload serializes a run-state change for the wire.
func FormatStatePayload(event StateEvent) ([]byte, error) {
	return json.Marshal(statePayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		From:      event.From,
		To:        event.To,
		Command:   event.Command,
		Source:    event.Source,
	})
}

// FormatPosturePayload serializes a posture-machine change for the wire.
func FormatPosturePayload(event PostureEvent) ([]byte, error) {
	return json.Marshal(posturePayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		From:      event.From,
		To:        event.To,
		Reason:    event.Reason,
	})
}

// FormatAlertPayload serializes an alert for the wire.
func FormatAlertPayload(event AlertEvent) ([]byte, error) {
	return json.Marshal(alertPayload{
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
		AlertNumber: event.AlertNumber,
	})
}

// FormatStatsPayload serializes a status summary for the wire.
func FormatStatsPayload(stats Stats) ([]byte, error) {
	return json.Marshal(statsPayload{
		Timestamp:    stats.Timestamp.UTC().Format(time.RFC3339),
		SystemState:  stats.SystemState,
		PostureState: stats.PostureState,
		Category:     stats.Category,
		AlertCount:   stats.AlertCount,
		AngleDeg:     stats.AngleDeg,
		VerticalDiff: stats.VerticalDiff,
	})
}

// ParseCommand interprets a command-topic payload. The payload is the bare
// command word, case-insensitive, optionally with surrounding whitespace.
func ParseCommand(payload []byte) (command.Kind, error) {
	kind := command.Kind(strings.ToLower(strings.TrimSpace(string(payload))))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown command %q", strings.TrimSpace(string(payload)))
	}
	return kind, nil
}
