// Package command provides the monitoring command queue and the arbiter that
// applies queued commands to the system run state.
package command

import (
	"time"

	"github.com/google/uuid"
)

// Kind is a monitoring control command.
type Kind string

const (
	Start  Kind = "start"
	Stop   Kind = "stop"
	Pause  Kind = "pause"
	Resume Kind = "resume"
)

// Valid reports whether k is a recognized command kind.
func (k Kind) Valid() bool {
	switch k {
	case Start, Stop, Pause, Resume:
		return true
	}
	return false
}

// Source identifies where a command came from.
type Source string

const (
	SourceGesture Source = "gesture"
	SourceRemote  Source = "remote"
	// SourceSystem marks commands the engine issues itself, such as the
	// auto-resume after a pause timeout.
	SourceSystem Source = "system"
)

// Command is a single control request awaiting arbitration.
type Command struct {
	ID     string
	Kind   Kind
	Source Source
	Time   time.Time
}

// New builds a command with a fresh ID.
func New(kind Kind, source Source, at time.Time) Command {
	return Command{ID: uuid.NewString(), Kind: kind, Source: source, Time: at}
}

// Queue is a bounded FIFO of pending commands. Producers on any goroutine
// enqueue; the tick loop drains it exactly once per tick.
type Queue struct {
	ch chan Command
}

// NewQueue creates a queue holding at most capacity pending commands.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 16
	}
	return &Queue{ch: make(chan Command, capacity)}
}

// Enqueue adds cmd without blocking. It reports false if the queue is full,
// in which case the command is dropped.
func (q *Queue) Enqueue(cmd Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		return false
	}
}

// DrainInto empties the queue in arrival order and returns the pending
// commands. It never blocks.
func (q *Queue) DrainInto(buf []Command) []Command {
	for {
		select {
		case cmd := <-q.ch:
			buf = append(buf, cmd)
		default:
			return buf
		}
	}
}

// Len reports the number of commands currently pending.
func (q *Queue) Len() int {
	return len(q.ch)
}
