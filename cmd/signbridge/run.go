package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/display"
	"github.com/ayusman/signbridge/internal/logging"
	"github.com/ayusman/signbridge/internal/pipeline"
	"github.com/ayusman/signbridge/internal/predict"
	"github.com/ayusman/signbridge/internal/server"
	"github.com/ayusman/signbridge/internal/tray"
	"github.com/ayusman/signbridge/internal/voice"
)

var (
	runWithPredict bool
	runNoCamera    bool
	runNoTray      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the camera client with the local UI",
	Args:  cobra.NoArgs,
	RunE:  runClient,
}

func init() {
	runCmd.Flags().BoolVar(&runWithPredict, "predict", false, "also run the prediction service in-process")
	runCmd.Flags().BoolVar(&runNoCamera, "no-camera", false, "skip camera capture (voice and UI only)")
	runCmd.Flags().BoolVar(&runNoTray, "no-tray", false, "do not show the system tray menu")
	rootCmd.AddCommand(runCmd)
}

// services runs long-lived servers and remembers the first failure.
type services struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

func (s *services) Go(fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			s.once.Do(func() { s.err = err })
			s.cancel()
		}
	}()
}

func (s *services) Wait() error {
	s.wg.Wait()
	return s.err
}

func runClient(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	log := logger.Zerolog()

	resolver, err := newResolver(cfg.Assets)
	if err != nil {
		return err
	}

	surface := display.NewSurface()
	hub := server.NewHub(surface.Snapshot, log)
	defer surface.Subscribe(hub.PublishState)()

	rec, err := voice.NewRecognizer(cfg.Speech.Recognizer, cfg.Speech.Lang, hub, os.Stdin)
	if err != nil {
		return err
	}
	synth, err := voice.NewSynthesizer(cfg.Speech.Synthesizer, hub)
	if err != nil {
		return err
	}
	bridge := voice.NewBridge(rec, synth, resolver, surface, cfg.Speech.Rate, log)

	submitter := predict.NewSubmitter(predict.Config{
		Endpoint: cfg.Client.Endpoint,
		Interval: cfg.Client.Interval,
		Timeout:  cfg.Client.Timeout,
	}, resolver, surface, log)

	if _, err := config.Watch(configPath, logger.Component("config"), func(c *config.Config) {
		submitter.SetInterval(c.Client.Interval)
		if logLevel == "" {
			if level, err := logging.ParseLevel(c.Log.Level); err == nil {
				logger.SetLevel(level)
			}
		}
	}); err != nil {
		return err
	}

	canvas := pipeline.NewCanvas()
	defer canvas.Close()

	srvCfg := server.Config{
		StaticDir: findWebDir(cfg.Server.StaticDir),
		Logger:    log,
		Surface:   surface,
		Hub:       hub,
		Voice:     bridge,
		Frames:    canvas,
	}
	if br, ok := rec.(*voice.BrowserRecognizer); ok {
		srvCfg.Transcripts = br
	}
	if srvCfg.StaticDir != "" {
		log.Info().Str("dir", srvCfg.StaticDir).Msg("serving static files")
	}

	svcs := &services{cancel: cancel}
	srv := server.New(srvCfg)
	svcs.Go(func() error { return srv.ListenAndServe(ctx, cfg.Server.Addr) })

	if runWithPredict {
		svc, err := openPredictService(logger.Component("predict"))
		if err != nil {
			return err
		}
		defer svc.Close()
		svcs.Go(func() error { return svc.Serve(ctx, cfg.Predict.Addr) })
	}

	var loop *app.App
	if !runNoCamera {
		loop, err = startCapture(ctx, canvas, submitter, log)
		if err != nil {
			cancel()
			svcs.Wait()
			return err
		}
	}

	if cfg.Server.Tray && !runNoTray {
		runTray(ctx, cancel, surface, loop, bridge, log)
	} else {
		<-ctx.Done()
	}

	cancel()
	if loop != nil {
		loop.Stop()
	}
	bridge.CancelSpeech()
	bridge.Wait()
	submitter.Wait()
	return svcs.Wait()
}

func startCapture(ctx context.Context, canvas *pipeline.Canvas, submitter *predict.Submitter, log zerolog.Logger) (*app.App, error) {
	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		ModelComplexity: cfg.Detector.ModelComplexity,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTracking,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("hand detector unavailable: %w", err)
	}

	loop := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
		}),
		Detector: det,
		Handler:  pipeline.New(canvas, submitter),
		Logger:   log,
	})
	if err := loop.Start(ctx); err != nil {
		det.Close()
		return nil, fmt.Errorf("failed to start camera: %w", err)
	}
	return loop, nil
}

// runTray blocks in the tray event loop until Quit is chosen or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, surface *display.Surface, loop *app.App, bridge *voice.Bridge, log zerolog.Logger) {
	t := tray.New()
	defer surface.Subscribe(t.Update)()

	t.OnToggle(func(enabled bool) {
		if loop != nil {
			loop.SetEnabled(enabled)
		}
		log.Info().Bool("enabled", enabled).Msg("detection toggled")
	})
	t.OnListen(func() {
		if err := bridge.StartListening(ctx); err != nil {
			log.Debug().Err(err).Msg("listen request not started")
		}
	})
	t.OnSpeak(func() { bridge.SpeakPrediction(ctx) })
	t.OnOpenUI(func() { openBrowser(uiURL(cfg.Server.Addr), log) })
	t.OnQuit(cancel)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func uiURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string, log zerolog.Logger) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		log.Warn().Str("os", runtime.GOOS).Msg("cannot open browser")
		return
	}

	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
		return
	}
	go cmd.Wait()
}
