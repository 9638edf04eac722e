package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// StateEvents contains all run-state changes that were published.
	StateEvents []StateEvent

	// PostureEvents contains all posture-machine changes that were published.
	PostureEvents []PostureEvent

	// AlertEvents contains all alerts that were published.
	AlertEvents []AlertEvent

	// StatsEvents contains all status summaries that were published.
	StatsEvents []Stats

	// PublishError, if set, will be returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishState records the run-state change.
func (f *FakePublisher) PublishState(event StateEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.StateEvents = append(f.StateEvents, event)
	return nil
}

// PublishPosture records the posture-machine change.
func (f *FakePublisher) PublishPosture(event PostureEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.PostureEvents = append(f.PostureEvents, event)
	return nil
}

// PublishAlert records the alert.
func (f *FakePublisher) PublishAlert(event AlertEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.AlertEvents = append(f.AlertEvents, event)
	return nil
}

// PublishStats records the status summary.
func (f *FakePublisher) PublishStats(stats Stats) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.StatsEvents = append(f.StatsEvents, stats)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
