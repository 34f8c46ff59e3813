// Package app runs the capture loop: camera frames go through the hand
// detector into the frame pipeline.
package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/pipeline"
)

// ErrNoCamera is returned by Start when no camera is configured.
var ErrNoCamera = errors.New("no camera configured")

// FrameHandler consumes detector results one frame at a time.
type FrameHandler interface {
	OnResults(ctx context.Context, res pipeline.Results)
}

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Handler  FrameHandler
	Logger   zerolog.Logger
}

// App is the capture loop that feeds detections to the frame pipeline.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	handler  FrameHandler
	logger   zerolog.Logger

	enabled bool
	mu      sync.RWMutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a new App instance with the given configuration. Detection
// starts enabled.
func New(config Config) *App {
	return &App{
		config:   config,
		camera:   config.Camera,
		detector: config.Detector,
		handler:  config.Handler,
		logger:   config.Logger.With().Str("component", "app").Logger(),
		enabled:  true,
	}
}

// SetEnabled enables or disables detection. Frames are not read while
// disabled.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Start opens the camera and begins the capture loop. It returns once the
// loop is running; the loop ends when ctx is canceled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}
	if a.camera == nil {
		return ErrNoCamera
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(loopCtx, a.done)

	a.logger.Info().Int("fps", a.camera.FPS()).Msg("capture loop started")
	return nil
}

// Stop halts the capture loop and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing camera")
		}
	}

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing detector")
		}
	}

	a.logger.Info().Msg("capture loop stopped")
}
