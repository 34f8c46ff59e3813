package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/pipeline"
)

// runPipeline reads a frame every tick, runs hand detection on it and
// passes the results on. Read and detection failures skip the frame.
func (a *App) runPipeline(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if err := a.ProcessFrame(ctx); err != nil {
				if errors.Is(err, capture.ErrCameraNotOpen) {
					return
				}
				a.logger.Debug().Err(err).Msg("frame skipped")
			}
		}
	}
}

// ProcessFrame reads one frame, detects hands in it and hands the results
// to the frame handler.
func (a *App) ProcessFrame(ctx context.Context) error {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	d := a.Detector()
	if d == nil {
		return nil
	}

	hands, err := d.Detect(frame)
	if err != nil {
		a.logger.Warn().Err(err).Msg("hand detection failed")
		return err
	}

	if a.handler != nil {
		a.handler.OnResults(ctx, pipeline.Results{Image: frame, Hands: hands})
	}
	return nil
}
