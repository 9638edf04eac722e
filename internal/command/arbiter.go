package command

// SystemState is the top-level run state of the monitor.
type SystemState string

const (
	WaitingForStart  SystemState = "WAITING_FOR_START"
	ActiveMonitoring SystemState = "ACTIVE_MONITORING"
	Paused           SystemState = "PAUSED"
)

// Result records the outcome of arbitrating one command.
type Result struct {
	Command Command
	Applied bool
	From    SystemState
	To      SystemState
}

// Arbiter owns the system state and applies commands against it in order.
type Arbiter struct {
	state SystemState
}

// NewArbiter starts in WAITING_FOR_START.
func NewArbiter() *Arbiter {
	return &Arbiter{state: WaitingForStart}
}

// State returns the current system state.
func (a *Arbiter) State() SystemState {
	return a.state
}

// Apply arbitrates a single command. Commands that do not fit the current
// state are rejected and leave the state unchanged.
func (a *Arbiter) Apply(cmd Command) Result {
	res := Result{Command: cmd, From: a.state, To: a.state}

	next, ok := transition(a.state, cmd.Kind)
	if !ok {
		return res
	}

	a.state = next
	res.Applied = true
	res.To = next
	return res
}

// ApplyAll arbitrates a drained batch in FIFO order. Every command in the
// batch is applied against the state left by the one before it, so the last
// applicable command wins.
func (a *Arbiter) ApplyAll(cmds []Command) []Result {
	results := make([]Result, 0, len(cmds))
	for _, cmd := range cmds {
		results = append(results, a.Apply(cmd))
	}
	return results
}

func transition(state SystemState, kind Kind) (SystemState, bool) {
	switch state {
	case WaitingForStart:
		if kind == Start {
			return ActiveMonitoring, true
		}
	case ActiveMonitoring:
		switch kind {
		case Pause:
			return Paused, true
		case Stop:
			return WaitingForStart, true
		}
	case Paused:
		switch kind {
		case Resume:
			return ActiveMonitoring, true
		case Stop:
			return WaitingForStart, true
		}
	}
	return state, false
}
