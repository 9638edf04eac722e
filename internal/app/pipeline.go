package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/seniorcare/nightwatchman/internal/command"
	"github.com/seniorcare/nightwatchman/internal/engine"
	"github.com/seniorcare/nightwatchman/internal/mqtt"
	"github.com/seniorcare/nightwatchman/internal/store"
)

// run is the main pipeline loop. Each tick reads a frame, runs detection,
// advances the engine, and dispatches whatever the engine decided.
func (a *App) run(stopCh chan struct{}) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.Tick(time.Now())
		}
	}
}

// Tick processes one frame. Hand detection runs on every frame so control
// gestures always work; pose detection only runs while monitoring is active.
// Exposed so tests and tools can drive the pipeline with a controlled clock.
func (a *App) Tick(now time.Time) {
	var input engine.Input

	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		// The engine still ticks so queued commands and timers advance.
		a.log.Debug("reading frame", zap.Error(err))
	} else {
		hands, err := a.config.HandDetector.DetectHands(frame)
		if err != nil {
			a.log.Warn("hand detection failed", zap.Error(err))
		} else if len(hands) > 0 {
			input.Hand = &hands[0]
		}

		if a.config.Engine.State() == command.ActiveMonitoring {
			pose, err := a.config.PoseDetector.DetectPose(frame)
			if err != nil {
				a.log.Warn("pose detection failed", zap.Error(err))
			} else {
				input.Pose = pose
			}
		}
		frame.Close()
	}

	a.dispatch(input, a.config.Engine.Tick(input, now), now)
}

// dispatch fans the tick result out to the log, the store, the broker, the
// alert sound, and the UI surfaces.
func (a *App) dispatch(input engine.Input, res engine.Result, now time.Time) {
	if input.Pose != nil && !a.personSeen {
		a.personSeen = true
		a.log.Info("person detected in frame")
	}

	stateChanged := false
	for _, cr := range res.Commands {
		if cr.Applied {
			stateChanged = true
			a.handleStateChange(cr, now)
		} else {
			a.handleRejectedCommand(cr, now)
		}
	}

	if res.Posture != nil {
		a.handlePostureTransition(res, now)
	}
	if res.AlertFired {
		a.handleAlert(now)
	}

	if stateChanged || res.Posture != nil {
		a.broadcast(now)
	}
	a.maybePublishStats(now)
}

func (a *App) handleStateChange(cr command.Result, now time.Time) {
	a.log.Info("system state changed",
		zap.String("from", string(cr.From)),
		zap.String("to", string(cr.To)),
		zap.String("command", string(cr.Command.Kind)),
		zap.String("source", string(cr.Command.Source)))

	// A new session starts with a fresh first-detection notice.
	if cr.To == command.WaitingForStart {
		a.personSeen = false
	}

	if a.config.Store != nil {
		err := a.config.Store.Events().RecordSystemTransition(&store.SystemTransition{
			FromState: string(cr.From),
			ToState:   string(cr.To),
			Command:   string(cr.Command.Kind),
			Source:    string(cr.Command.Source),
			CreatedAt: now,
		})
		if err != nil {
			a.log.Error("recording system transition", zap.Error(err))
		}
	}

	if a.config.Publisher != nil {
		err := a.config.Publisher.PublishState(mqtt.StateEvent{
			Timestamp: now,
			From:      string(cr.From),
			To:        string(cr.To),
			Command:   string(cr.Command.Kind),
			Source:    string(cr.Command.Source),
		})
		if err != nil {
			a.log.Error("publishing state change", zap.Error(err))
		}
	}

	a.mu.Lock()
	onState := a.onState
	a.mu.Unlock()
	if onState != nil {
		snap := a.config.Engine.Snapshot(now)
		onState(snap.SystemState, snap.AlertCount)
	}
}

func (a *App) handleRejectedCommand(cr command.Result, now time.Time) {
	a.log.Warn("command rejected",
		zap.String("command", string(cr.Command.Kind)),
		zap.String("source", string(cr.Command.Source)),
		zap.String("state", string(cr.From)))

	if a.config.Store != nil {
		err := a.config.Store.Events().RecordRejectedCommand(&store.RejectedCommand{
			Kind:      string(cr.Command.Kind),
			Source:    string(cr.Command.Source),
			State:     string(cr.From),
			CreatedAt: now,
		})
		if err != nil {
			a.log.Error("recording rejected command", zap.Error(err))
		}
	}
}

func (a *App) handlePostureTransition(res engine.Result, now time.Time) {
	tr := res.Posture
	a.log.Info("posture state changed",
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("reason", tr.Reason),
		zap.String("category", string(res.Category)))

	if a.config.Store != nil {
		err := a.config.Store.Events().RecordPostureTransition(&store.PostureTransition{
			FromState: string(tr.From),
			ToState:   string(tr.To),
			Reason:    tr.Reason,
			CreatedAt: now,
		})
		if err != nil {
			a.log.Error("recording posture transition", zap.Error(err))
		}
	}

	if a.config.Publisher != nil {
		err := a.config.Publisher.PublishPosture(mqtt.PostureEvent{
			Timestamp: now,
			From:      string(tr.From),
			To:        string(tr.To),
			Reason:    tr.Reason,
		})
		if err != nil {
			a.log.Error("publishing posture transition", zap.Error(err))
		}
	}
}

func (a *App) handleAlert(now time.Time) {
	snap := a.config.Engine.Snapshot(now)
	a.log.Warn("sit-up alert",
		zap.Int("alert_number", snap.AlertCount))

	a.config.Sounder.Alert(snap.AlertCount)

	if a.config.Store != nil {
		err := a.config.Store.Events().RecordAlert(&store.Alert{
			AlertNumber: snap.AlertCount,
			CreatedAt:   now,
		})
		if err != nil {
			a.log.Error("recording alert", zap.Error(err))
		}
	}

	if a.config.Publisher != nil {
		err := a.config.Publisher.PublishAlert(mqtt.AlertEvent{
			Timestamp:   now,
			AlertNumber: snap.AlertCount,
		})
		if err != nil {
			a.log.Error("publishing alert", zap.Error(err))
		}
	}
}

// broadcast pushes the current snapshot to WebSocket clients.
func (a *App) broadcast(now time.Time) {
	if a.config.Hub != nil {
		a.config.Hub.Broadcast(a.config.Engine.Snapshot(now))
	}
}

// maybePublishStats publishes a periodic status summary.
func (a *App) maybePublishStats(now time.Time) {
	if now.Sub(a.lastStats) < a.config.StatsInterval {
		return
	}
	a.lastStats = now

	snap := a.config.Engine.Snapshot(now)
	if a.config.Publisher != nil {
		err := a.config.Publisher.PublishStats(mqtt.Stats{
			Timestamp:    now,
			SystemState:  string(snap.SystemState),
			PostureState: string(snap.PostureState),
			Category:     string(snap.Category),
			AlertCount:   snap.AlertCount,
			AngleDeg:     snap.Metrics.AngleDeg,
			VerticalDiff: snap.Metrics.VerticalDiff,
		})
		if err != nil {
			a.log.Error("publishing stats", zap.Error(err))
		}
	}
	a.broadcast(now)
}
