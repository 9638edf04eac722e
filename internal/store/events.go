package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SystemTransition is a persisted change of the top-level run state.
type SystemTransition struct {
	ID        string
	FromState string
	ToState   string
	Command   string
	Source    string
	CreatedAt time.Time
}

// PostureTransition is a persisted change of the posture alert machine.
type PostureTransition struct {
	ID        string
	FromState string
	ToState   string
	Reason    string
	CreatedAt time.Time
}

// Alert is a persisted sit-up alert.
type Alert struct {
	ID          string
	AlertNumber int
	CreatedAt   time.Time
}

// RejectedCommand records a command that did not fit the state it hit.
type RejectedCommand struct {
	ID        string
	Kind      string
	Source    string
	State     string
	CreatedAt time.Time
}

// EventRepository writes and reads the monitor's event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// RecordSystemTransition persists a run-state change.
func (r *EventRepository) RecordSystemTransition(t *SystemTransition) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.Exec(
		`INSERT INTO system_transitions (id, from_state, to_state, command, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.FromState, t.ToState, t.Command, t.Source, t.CreatedAt,
	)
	return err
}

// RecordPostureTransition persists a posture-machine change.
func (r *EventRepository) RecordPostureTransition(t *PostureTransition) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.Exec(
		`INSERT INTO posture_transitions (id, from_state, to_state, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.FromState, t.ToState, t.Reason, t.CreatedAt,
	)
	return err
}

// RecordAlert persists a confirmed sit-up alert.
func (r *EventRepository) RecordAlert(a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.Exec(
		`INSERT INTO alerts (id, alert_number, created_at) VALUES (?, ?, ?)`,
		a.ID, a.AlertNumber, a.CreatedAt,
	)
	return err
}

// RecordRejectedCommand persists a command the arbiter turned down.
func (r *EventRepository) RecordRejectedCommand(c *RejectedCommand) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.Exec(
		`INSERT INTO rejected_commands (id, kind, source, state, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Kind, c.Source, c.State, c.CreatedAt,
	)
	return err
}

// RecentSystemTransitions retrieves the newest run-state changes, newest first.
func (r *EventRepository) RecentSystemTransitions(limit int) ([]*SystemTransition, error) {
	rows, err := r.db.Query(
		`SELECT id, from_state, to_state, command, source, created_at
		 FROM system_transitions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SystemTransition
	for rows.Next() {
		t := &SystemTransition{}
		if err := rows.Scan(&t.ID, &t.FromState, &t.ToState, &t.Command, &t.Source, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentPostureTransitions retrieves the newest posture-machine changes,
// newest first.
func (r *EventRepository) RecentPostureTransitions(limit int) ([]*PostureTransition, error) {
	rows, err := r.db.Query(
		`SELECT id, from_state, to_state, reason, created_at
		 FROM posture_transitions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PostureTransition
	for rows.Next() {
		t := &PostureTransition{}
		if err := rows.Scan(&t.ID, &t.FromState, &t.ToState, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentAlerts retrieves the newest alerts, newest first.
func (r *EventRepository) RecentAlerts(limit int) ([]*Alert, error) {
	rows, err := r.db.Query(
		`SELECT id, alert_number, created_at FROM alerts
		 ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		a := &Alert{}
		if err := rows.Scan(&a.ID, &a.AlertNumber, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecentRejectedCommands retrieves the newest rejections, newest first.
func (r *EventRepository) RecentRejectedCommands(limit int) ([]*RejectedCommand, error) {
	rows, err := r.db.Query(
		`SELECT id, kind, source, state, created_at FROM rejected_commands
		 ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RejectedCommand
	for rows.Next() {
		c := &RejectedCommand{}
		if err := rows.Scan(&c.ID, &c.Kind, &c.Source, &c.State, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AlertCountSince counts alerts recorded at or after the given time.
func (r *EventRepository) AlertCountSince(since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM alerts WHERE created_at >= ?`, since,
	).Scan(&n)
	return n, err
}
