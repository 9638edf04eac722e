package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/seniorcare/nightwatchman/internal/app"
	"github.com/seniorcare/nightwatchman/internal/capture"
	"github.com/seniorcare/nightwatchman/internal/command"
	"github.com/seniorcare/nightwatchman/internal/config"
	"github.com/seniorcare/nightwatchman/internal/detector"
	"github.com/seniorcare/nightwatchman/internal/engine"
	"github.com/seniorcare/nightwatchman/internal/logger"
	"github.com/seniorcare/nightwatchman/internal/mqtt"
	"github.com/seniorcare/nightwatchman/internal/notify"
	"github.com/seniorcare/nightwatchman/internal/server"
	"github.com/seniorcare/nightwatchman/internal/store"
	"github.com/seniorcare/nightwatchman/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		zlog.Fatal("creating data directory", zap.Error(err))
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		zlog.Fatal("opening event store", zap.Error(err))
	}
	defer st.Close()

	eng, err := engine.New(cfg.EngineConfig())
	if err != nil {
		zlog.Fatal("creating decision engine", zap.Error(err))
	}

	camera := capture.NewCamera(capture.Settings{
		DeviceID: cfg.Camera.DeviceID,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
	})

	poseDet, handDet := newDetectors(zlog)

	var publisher mqtt.Publisher
	if cfg.MQTT.Enabled {
		real, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:    cfg.MQTT.Broker,
			ClientID:  cfg.MQTT.ClientID,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			BaseTopic: cfg.MQTT.BaseTopic,
		}, zlog)
		if err != nil {
			zlog.Fatal("connecting to mqtt broker", zap.Error(err))
		}
		defer real.Close()

		err = real.SubscribeCommands(func(kind command.Kind) {
			if err := eng.EnqueueRemote(kind, time.Now()); err != nil {
				zlog.Warn("dropping remote command", zap.Error(err))
			}
		})
		if err != nil {
			zlog.Fatal("subscribing to command topic", zap.Error(err))
		}
		publisher = real
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(server.Config{
			Engine: eng,
			Store:  st,
			Camera: camera,
			Logger: zlog,
		})
		go func() {
			zlog.Info("http server listening", zap.String("addr", cfg.Server.Addr))
			if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
				zlog.Error("http server stopped", zap.Error(err))
			}
		}()
	}

	sounder := notify.NewPlayer(notify.Config{
		Command:   cfg.Alert.SoundCommand,
		SoundPath: cfg.Alert.SoundPath,
		Repeat:    cfg.Alert.Repeat,
		Timeout:   cfg.AlertTimeout(),
	}, zlog)

	appCfg := app.Config{
		Camera:       camera,
		PoseDetector: poseDet,
		HandDetector: handDet,
		Engine:       eng,
		Store:        st,
		Publisher:    publisher,
		Sounder:      sounder,
		Logger:       zlog,
		TickInterval: cfg.TickInterval(),
	}
	if srv != nil {
		appCfg.Hub = srv.Hub()
	}
	a := app.New(appCfg)

	tr := tray.New()
	a.OnStateChange(func(state command.SystemState, alertCount int) {
		tr.SetState(state)
		tr.SetAlertCount(alertCount)
	})
	tr.OnCommand(func(kind command.Kind) {
		if err := eng.EnqueueRemote(kind, time.Now()); err != nil {
			zlog.Warn("dropping tray command", zap.Error(err))
		}
	})
	tr.OnStatus(func() {
		openBrowser(statusURL(cfg.Server.Addr), zlog)
	})
	tr.OnQuit(func() {
		a.Stop()
	})

	if err := a.Start(); err != nil {
		zlog.Fatal("starting pipeline", zap.Error(err))
	}

	// Blocks until the quit menu item is clicked.
	tr.Run()
}

// newDetectors prefers the MediaPipe sidecar and degrades to the mock
// detectors so the control surfaces still run without it.
func newDetectors(zlog *zap.Logger) (detector.PoseDetector, detector.HandDetector) {
	sidecar, err := detector.NewSidecarDetector(detector.DefaultConfig())
	if err != nil {
		zlog.Warn("landmark sidecar unavailable, detection disabled", zap.Error(err))
		return detector.NewMockPoseDetector(), detector.NewMockHandDetector()
	}
	return sidecar, sidecar
}

// openBrowser opens url with the platform's default browser.
func openBrowser(url string, zlog *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		zlog.Warn("opening status page", zap.String("url", url), zap.Error(err))
	}
}

// statusURL turns a listen address into a browsable URL.
func statusURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return fmt.Sprintf("http://localhost%s/api/status", addr)
	}
	return fmt.Sprintf("http://%s/api/status", addr)
}
