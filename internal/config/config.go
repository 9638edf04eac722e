// Package config loads the Nightwatchman configuration from a YAML file with
// sensible defaults for every field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seniorcare/nightwatchman/internal/engine"
	"github.com/seniorcare/nightwatchman/internal/gesture"
	"github.com/seniorcare/nightwatchman/internal/posture"
)

// Config is the full application configuration.
type Config struct {
	Camera  CameraConfig  `yaml:"camera"`
	Monitor MonitorConfig `yaml:"monitor"`
	Gesture GestureConfig `yaml:"gesture"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Alert   AlertConfig   `yaml:"alert"`
	Log     LogConfig     `yaml:"log"`
}

// CameraConfig selects the capture device and frame cadence.
type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	FPS      int `yaml:"fps"`
}

// MonitorConfig holds the posture decision thresholds.
type MonitorConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	PersistenceSeconds  float64 `yaml:"persistence_seconds"`
	CooldownSeconds     float64 `yaml:"cooldown_seconds"`
	// PauseTimeoutSeconds auto-resumes monitoring after a pause has lasted
	// this long; zero disables the timeout.
	PauseTimeoutSeconds float64 `yaml:"pause_timeout_seconds"`
}

// GestureConfig holds the gesture debouncing thresholds.
type GestureConfig struct {
	// HoldSeconds is the shared hold duration for both gestures. The
	// per-kind keys below override it individually when set.
	HoldSeconds      float64 `yaml:"hold_seconds"`
	BeginHoldSeconds float64 `yaml:"begin_hold_seconds"`
	PauseHoldSeconds float64 `yaml:"pause_hold_seconds"`
	GraceSeconds     float64 `yaml:"grace_seconds"`
	MinHandSize      float64 `yaml:"min_hand_size"`
}

// beginHold and pauseHold resolve the per-kind hold durations against the
// shared default.
func (g GestureConfig) beginHold() float64 {
	if g.BeginHoldSeconds > 0 {
		return g.BeginHoldSeconds
	}
	return g.HoldSeconds
}

func (g GestureConfig) pauseHold() float64 {
	if g.PauseHoldSeconds > 0 {
		return g.PauseHoldSeconds
	}
	return g.HoldSeconds
}

// MQTTConfig configures the broker connection for remote status and control.
type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	BaseTopic string `yaml:"base_topic"`
}

// ServerConfig configures the local HTTP status server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StoreConfig locates the event database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AlertConfig configures the audible alert.
type AlertConfig struct {
	// SoundCommand is the player binary, e.g. "afplay" or "aplay".
	SoundCommand string `yaml:"sound_command"`
	SoundPath    string `yaml:"sound_path"`
	Repeat       int    `yaml:"repeat"`
	// TimeoutSeconds bounds a single player invocation.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	cfg := Config{
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    640,
			Height:   480,
			FPS:      10,
		},
		Monitor: MonitorConfig{
			ConfidenceThreshold: 0.5,
			PersistenceSeconds:  10,
			CooldownSeconds:     900,
		},
		Gesture: GestureConfig{
			HoldSeconds:  2.0,
			GraceSeconds: 0.4,
			MinHandSize:  0.15,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			ClientID:  "nightwatchman",
			BaseTopic: "nightwatchman",
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Alert: AlertConfig{
			SoundCommand:   "afplay",
			SoundPath:      "/System/Library/Sounds/Glass.aiff",
			Repeat:         3,
			TimeoutSeconds: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}

	if home, err := os.UserHomeDir(); err == nil {
		cfg.Store.Path = filepath.Join(home, ".nightwatchman", "nightwatchman.db")
	} else {
		cfg.Store.Path = "nightwatchman.db"
	}
	return cfg
}

// Load reads the configuration file at path over the defaults. An empty path
// returns the defaults unchanged. Broker credentials can also come from the
// MQTT_USERNAME and MQTT_PASSWORD environment variables, which take
// precedence over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the whole configuration, delegating the decision thresholds
// to the engine's own validation.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution %dx%d invalid", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera fps must be positive, got %d", c.Camera.FPS)
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt enabled without a broker address")
		}
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt enabled without a client id")
		}
		if c.MQTT.BaseTopic == "" {
			return fmt.Errorf("mqtt enabled without a base topic")
		}
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server enabled without a listen address")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path must not be empty")
	}
	if c.Alert.Repeat < 0 {
		return fmt.Errorf("alert repeat count must not be negative, got %d", c.Alert.Repeat)
	}
	return c.EngineConfig().Validate()
}

// EngineConfig converts the monitor and gesture sections into the engine's
// configuration, keeping the built-in classification bounds.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.ConfidenceThreshold = c.Monitor.ConfidenceThreshold
	ec.Bounds = posture.DefaultBounds()
	ec.Persistence = seconds(c.Monitor.PersistenceSeconds)
	ec.Cooldown = seconds(c.Monitor.CooldownSeconds)
	ec.PauseTimeout = seconds(c.Monitor.PauseTimeoutSeconds)
	ec.Gesture = gesture.Config{
		BeginHold: seconds(c.Gesture.beginHold()),
		PauseHold: seconds(c.Gesture.pauseHold()),
		Grace:     seconds(c.Gesture.GraceSeconds),
	}
	ec.MinHandSize = c.Gesture.MinHandSize
	return ec
}

// TickInterval returns the frame cadence derived from the camera FPS.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Camera.FPS)
}

// AlertTimeout returns the per-invocation bound for the alert sound player.
func (c *Config) AlertTimeout() time.Duration {
	return seconds(c.Alert.TimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
