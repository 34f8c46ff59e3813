// Package server provides the HTTP surfaces of SignBridge: the local UI
// server and the prediction service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ayusman/signbridge/internal/display"
	"github.com/ayusman/signbridge/internal/server/api"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/internal/voice"
)

// VoiceControl is the part of the voice bridge driven over HTTP.
type VoiceControl interface {
	StartListening(ctx context.Context) error
	SpeakPrediction(ctx context.Context) bool
}

// ListenAvailability is implemented by voice controls whose listen control
// follows the capabilities browsers report.
type ListenAvailability interface {
	SetListenAvailable(available bool)
}

// Config holds the server configuration. Every field is optional; routes
// are registered only for the parts that are present.
type Config struct {
	StaticDir string
	Logger    zerolog.Logger

	// Local UI.
	Surface *display.Surface
	Hub     *Hub
	Voice   VoiceControl
	Frames  FrameSource

	// Transcripts receives recognition results from browsers, if
	// recognition runs there.
	Transcripts TranscriptSink

	// Prediction service.
	Store          *store.Store
	Predictor      api.Predictor
	OnSignsChanged func()
}

// Server represents the HTTP server for SignBridge.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger zerolog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger.With().Str("component", "server").Logger(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	if s.config.Surface != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
	}
	if s.config.Hub != nil {
		s.mux.Handle("/api/ws", s.config.Hub)
		if s.config.Voice != nil {
			s.config.Hub.OnMessage(VoiceMessages(context.Background(), s.config.Voice, s.config.Transcripts, s.logger))
		}
		if l, ok := s.config.Voice.(ListenAvailability); ok && s.config.Transcripts != nil {
			s.config.Hub.OnCapabilities(l.SetListenAvailable)
		}
	}
	if s.config.Voice != nil {
		s.mux.HandleFunc("/api/listen", s.handleListen)
		s.mux.HandleFunc("/api/speak", s.handleSpeak)
	}
	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.Predictor != nil || s.config.Store != nil {
		s.mux.Handle("/predict", api.NewPredictHandler(s.config.Predictor, s.config.Logger))
	}
	if s.config.Store != nil {
		signs := api.NewSignHandler(s.config.Store, s.config.OnSignsChanged)
		s.mux.Handle("/api/signs", signs)
		s.mux.Handle("/api/signs/", signs)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleState handles GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.Surface.Snapshot())
}

// handleListen handles POST /api/listen.
func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := s.config.Voice.StartListening(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]bool{"listening": true})
	case errors.Is(err, voice.ErrUnsupported):
		writeJSON(w, http.StatusConflict, map[string]string{"error": display.UnsupportedLabel})
	default:
		s.logger.Warn().Err(err).Msg("start listening failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": display.NotUnderstoodText})
	}
}

// handleSpeak handles POST /api/speak.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	speaking := s.config.Voice.SpeakPrediction(r.Context())
	status := http.StatusOK
	if speaking {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]bool{"speaking": speaking})
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.config.Hub != nil {
			s.config.Hub.Close()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
