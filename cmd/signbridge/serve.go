package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/signbridge/internal/classifier"
	"github.com/ayusman/signbridge/internal/server"
	"github.com/ayusman/signbridge/internal/store"
)

var serveAddr string

// storeSettle groups the writes of one sign add or delete into one reload.
const storeSettle = 250 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prediction service backed by the sign template store",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Predict.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		svc, err := openPredictService(logger.Component("predict"))
		if err != nil {
			return err
		}
		defer svc.Close()

		return svc.Serve(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from predict.addr)")
	rootCmd.AddCommand(serveCmd)
}

// predictService is the /predict endpoint together with the sign API.
type predictService struct {
	store      *store.Store
	classifier *classifier.Classifier
	server     *server.Server
	logger     zerolog.Logger
}

func openPredictService(log zerolog.Logger) (*predictService, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	svc := &predictService{
		store:      st,
		classifier: classifier.New(cfg.Predict.Tolerance),
		logger:     log,
	}
	svc.reload()

	svc.server = server.New(server.Config{
		Logger:         log,
		Store:          st,
		Predictor:      svc.classifier,
		OnSignsChanged: svc.reload,
	})
	return svc, nil
}

// reload rebuilds the classifier from the store.
func (s *predictService) reload() {
	if err := s.classifier.Load(s.store.Signs()); err != nil {
		s.logger.Warn().Err(err).Msg("sign templates partially loaded")
	}
	s.logger.Info().Int("templates", s.classifier.Len()).Msg("sign templates loaded")
}

// Serve answers requests until ctx is done. Signs added or deleted from
// another process are picked up when the database file changes.
func (s *predictService) Serve(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watchStore(ctx)

	s.logger.Info().Str("addr", addr).Str("db", s.store.Path()).Msg("prediction service listening")
	return s.server.ListenAndServe(ctx, addr)
}

func (s *predictService) watchStore(ctx context.Context) {
	err := s.store.Watch(ctx, storeSettle, func() {
		s.logger.Debug().Msg("sign store changed")
		s.reload()
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("sign store changes from other processes will not be seen")
	}
}

func (s *predictService) Close() error {
	return s.store.Close()
}

func openStore() (*store.Store, error) {
	dbPath := cfg.Predict.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}
