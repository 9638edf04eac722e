// Package notify plays the audible sit-up alert by invoking an external
// sound player with timeout support.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sounder plays the alert sound. Implementations must be safe to call from
// the pipeline goroutine.
type Sounder interface {
	// Alert plays the alert sound sequence for the given alert number.
	Alert(alertNumber int)
}

// Config holds the sound player settings.
type Config struct {
	// Command is the player binary, e.g. "afplay" or "aplay".
	Command string
	// SoundPath is the audio file passed to the player.
	SoundPath string
	// Repeat is how many times the sound plays per alert.
	Repeat int
	// Timeout bounds a single player invocation.
	Timeout time.Duration
}

// Player shells out to a sound player. Playback happens on its own goroutine
// so an alert never stalls the frame pipeline.
type Player struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	playing bool
}

// NewPlayer creates a Player with the given configuration.
func NewPlayer(cfg Config, log *zap.Logger) *Player {
	if cfg.Repeat <= 0 {
		cfg.Repeat = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Player{cfg: cfg, log: log}
}

// Alert plays the configured sound Repeat times in the background. A second
// alert while one is still playing is dropped rather than overlapped.
func (p *Player) Alert(alertNumber int) {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		p.log.Warn("alert sound already playing, skipping",
			zap.Int("alert_number", alertNumber))
		return
	}
	p.playing = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			p.playing = false
			p.mu.Unlock()
		}()

		for i := 0; i < p.cfg.Repeat; i++ {
			if err := p.playOnce(); err != nil {
				p.log.Error("alert sound failed",
					zap.Error(err),
					zap.Int("alert_number", alertNumber))
				return
			}
		}
	}()
}

// playOnce runs the player binary once with the configured timeout.
func (p *Player) playOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.cfg.Command, p.cfg.SoundPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("sound player timeout after %v", p.cfg.Timeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("sound player failed: %w, stderr: %s", err, stderr.String())
		}
		return fmt.Errorf("sound player failed: %w", err)
	}
	return nil
}

// Silent is a Sounder that does nothing, for headless deployments and tests.
type Silent struct{}

// Alert is a no-op.
func (Silent) Alert(int) {}
