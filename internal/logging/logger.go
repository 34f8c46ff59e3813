// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn or error (default: info)
	Format string // console or json (default: console)
	File   string // optional log file, written in addition to Out
	Out    io.Writer
}

// DefaultConfig returns console logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatConsole,
		Out:    os.Stderr,
	}
}

// Logger wraps a zerolog.Logger together with its optional log file. The
// minimum level lives in the shared writer, so SetLevel also applies to
// loggers derived before the change.
type Logger struct {
	zlog   zerolog.Logger
	filter *levelFilter
	file   *os.File
}

// levelFilter drops events below a level that can change at runtime.
type levelFilter struct {
	out   zerolog.LevelWriter
	level atomic.Int32
}

func (f *levelFilter) Write(p []byte) (int, error) {
	return f.out.Write(p)
}

func (f *levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.Level(f.level.Load()) {
		return len(p), nil
	}
	return f.out.WriteLevel(level, p)
}

// New creates a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	case FormatJSON:
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	l := &Logger{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		out = zerolog.MultiLevelWriter(out, f)
	}

	l.filter = &levelFilter{out: zerolog.MultiLevelWriter(out)}
	l.filter.level.Store(int32(level))

	l.zlog = zerolog.New(l.filter).With().
		Timestamp().
		Str("app", "signbridge").
		Logger()
	return l, nil
}

// ParseLevel converts a level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level: %s", name)
	}
	return level, nil
}

// Component returns a logger with the component field set.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// Zerolog returns the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// SetLevel changes the minimum level of this logger and every logger
// derived from it. It is safe to call while logging.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.filter.level.Store(int32(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() zerolog.Level {
	return zerolog.Level(l.filter.level.Load())
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
