// Package app wires the capture, detection, and decision layers of the
// Nightwatchman posture monitor into a running pipeline.
package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seniorcare/nightwatchman/internal/capture"
	"github.com/seniorcare/nightwatchman/internal/command"
	"github.com/seniorcare/nightwatchman/internal/detector"
	"github.com/seniorcare/nightwatchman/internal/engine"
	"github.com/seniorcare/nightwatchman/internal/mqtt"
	"github.com/seniorcare/nightwatchman/internal/notify"
	"github.com/seniorcare/nightwatchman/internal/server"
	"github.com/seniorcare/nightwatchman/internal/store"
)

// Default pipeline timing.
const (
	// DefaultTickInterval is the frame cadence when none is configured.
	DefaultTickInterval = 100 * time.Millisecond
	// DefaultStatsInterval is how often a status summary is published.
	DefaultStatsInterval = 30 * time.Second
)

// Config holds the pipeline's collaborators. Camera, PoseDetector,
// HandDetector, Engine, and Logger are required; the rest are optional.
type Config struct {
	Camera       capture.Camera
	PoseDetector detector.PoseDetector
	HandDetector detector.HandDetector
	Engine       *engine.Engine
	Store        *store.Store
	Publisher    mqtt.Publisher
	Sounder      notify.Sounder
	Hub          *server.StateHub
	Logger       *zap.Logger

	TickInterval  time.Duration
	StatsInterval time.Duration
}

// App runs the frame pipeline and dispatches the engine's decisions to the
// store, the broker, the alert sound, and the UI surfaces.
type App struct {
	config Config
	log    *zap.Logger

	mu         sync.Mutex
	stopCh     chan struct{}
	wg         sync.WaitGroup
	personSeen bool
	lastStats  time.Time

	onState func(state command.SystemState, alertCount int)
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.StatsInterval <= 0 {
		config.StatsInterval = DefaultStatsInterval
	}
	if config.Sounder == nil {
		config.Sounder = notify.Silent{}
	}
	return &App{
		config: config,
		log:    config.Logger,
	}
}

// OnStateChange sets a callback invoked after every applied command, for the
// tray to mirror the run state.
func (a *App) OnStateChange(fn func(state command.SystemState, alertCount int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onState = fn
}

// Start opens the camera and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.wg.Add(1)
	go a.run(a.stopCh)

	a.log.Info("pipeline started",
		zap.Duration("tick_interval", a.config.TickInterval))
	return nil
}

// Stop halts the pipeline and releases capture and detection resources.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	a.mu.Unlock()

	a.wg.Wait()

	if err := a.config.Camera.Close(); err != nil {
		a.log.Error("closing camera", zap.Error(err))
	}
	if err := a.config.PoseDetector.Close(); err != nil {
		a.log.Error("closing pose detector", zap.Error(err))
	}
	if err := a.config.HandDetector.Close(); err != nil {
		a.log.Error("closing hand detector", zap.Error(err))
	}

	a.log.Info("pipeline stopped")
}
