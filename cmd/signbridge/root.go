package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/logging"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg and logger are set up before any subcommand runs.
	cfg    *config.Config
	logger *logging.Logger

	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "signbridge",
	Short:         "Sign language to text, animation and speech",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			File:   cfg.Log.File,
			Out:    os.Stderr,
		})
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

// Execute runs the root command with a context canceled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml or ~/.signbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}
