// Package config loads SignBridge configuration from a YAML file and
// SIGNBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SIGNBRIDGE_CLIENT_INTERVAL.
const EnvPrefix = "SIGNBRIDGE"

// Config holds all application configuration.
type Config struct {
	Client   ClientConfig   `mapstructure:"client"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Detector DetectorConfig `mapstructure:"detector"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Server   ServerConfig   `mapstructure:"server"`
	Predict  PredictConfig  `mapstructure:"predict"`
	Log      LogConfig      `mapstructure:"log"`
}

// ClientConfig configures submissions to the prediction endpoint.
type ClientConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"` // zero waits forever
}

// CameraConfig configures frame capture.
type CameraConfig struct {
	DeviceID int `mapstructure:"device_id"`
	Width    int `mapstructure:"width"`
	Height   int `mapstructure:"height"`
	FPS      int `mapstructure:"fps"`
}

// DetectorConfig configures the hand landmark service.
type DetectorConfig struct {
	MaxHands        int     `mapstructure:"max_hands"`
	ModelComplexity int     `mapstructure:"model_complexity"`
	MinConfidence   float64 `mapstructure:"min_confidence"`
	MinTracking     float64 `mapstructure:"min_tracking"`
}

// AssetsConfig configures animation lookup.
type AssetsConfig struct {
	Base      string `mapstructure:"base"`
	WordsFile string `mapstructure:"words_file"` // optional YAML word table
}

// SpeechConfig configures recognition and synthesis.
type SpeechConfig struct {
	Recognizer  string  `mapstructure:"recognizer"`  // none, auto, browser, stdin
	Synthesizer string  `mapstructure:"synthesizer"` // none, auto, browser, espeak, say
	Rate        float64 `mapstructure:"rate"`
	Lang        string  `mapstructure:"lang"`
}

// ServerConfig configures the local UI server.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
	Tray      bool   `mapstructure:"tray"`
}

// PredictConfig configures the bundled prediction endpoint.
type PredictConfig struct {
	Addr      string  `mapstructure:"addr"`
	DBPath    string  `mapstructure:"db_path"`
	Tolerance float64 `mapstructure:"tolerance"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint: "http://localhost:5000/predict",
			Interval: 400 * time.Millisecond,
		},
		Camera: CameraConfig{
			Width:  640,
			Height: 480,
			FPS:    15,
		},
		Detector: DetectorConfig{
			MaxHands:        1,
			ModelComplexity: 1,
			MinConfidence:   0.6,
			MinTracking:     0.6,
		},
		Assets: AssetsConfig{
			Base: "/static/animations",
		},
		Speech: SpeechConfig{
			Recognizer:  "auto",
			Synthesizer: "auto",
			Rate:        1.0,
			Lang:        "en-US",
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			StaticDir: "web",
			Tray:      true,
		},
		Predict: PredictConfig{
			Addr:      ":5000",
			DBPath:    filepath.Join(Dir(), "signs.db"),
			Tolerance: 2.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Dir returns the per-user SignBridge directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signbridge"
	}
	return filepath.Join(home, ".signbridge")
}

// Load reads configuration from path, or from config.yaml in the current or
// per-user directory when path is empty. A missing default file is not an
// error.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := readIn(v, path); err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch loads configuration like Load and calls onChange with the new
// configuration each time the file changes. Invalid edits are logged and
// skipped. It returns the initial configuration.
func Watch(path string, logger zerolog.Logger, onChange func(*Config)) (*Config, error) {
	v := newViper(path)
	if err := readIn(v, path); err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name).Msg("ignoring invalid config change")
			return
		}
		logger.Info().Str("file", e.Name).Msg("config reloaded")
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readIn(v *viper.Viper, path string) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if path == "" && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Client.Interval < 0:
		return fmt.Errorf("client.interval must not be negative: %s", c.Client.Interval)
	case c.Client.Timeout < 0:
		return fmt.Errorf("client.timeout must not be negative: %s", c.Client.Timeout)
	case c.Camera.FPS <= 0:
		return fmt.Errorf("camera.fps must be positive: %d", c.Camera.FPS)
	case c.Speech.Rate <= 0:
		return fmt.Errorf("speech.rate must be positive: %g", c.Speech.Rate)
	case c.Predict.Tolerance <= 0:
		return fmt.Errorf("predict.tolerance must be positive: %g", c.Predict.Tolerance)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("client.endpoint", d.Client.Endpoint)
	v.SetDefault("client.interval", d.Client.Interval)
	v.SetDefault("client.timeout", d.Client.Timeout)

	v.SetDefault("camera.device_id", d.Camera.DeviceID)
	v.SetDefault("camera.width", d.Camera.Width)
	v.SetDefault("camera.height", d.Camera.Height)
	v.SetDefault("camera.fps", d.Camera.FPS)

	v.SetDefault("detector.max_hands", d.Detector.MaxHands)
	v.SetDefault("detector.model_complexity", d.Detector.ModelComplexity)
	v.SetDefault("detector.min_confidence", d.Detector.MinConfidence)
	v.SetDefault("detector.min_tracking", d.Detector.MinTracking)

	v.SetDefault("assets.base", d.Assets.Base)
	v.SetDefault("assets.words_file", d.Assets.WordsFile)

	v.SetDefault("speech.recognizer", d.Speech.Recognizer)
	v.SetDefault("speech.synthesizer", d.Speech.Synthesizer)
	v.SetDefault("speech.rate", d.Speech.Rate)
	v.SetDefault("speech.lang", d.Speech.Lang)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.tray", d.Server.Tray)

	v.SetDefault("predict.addr", d.Predict.Addr)
	v.SetDefault("predict.db_path", d.Predict.DBPath)
	v.SetDefault("predict.tolerance", d.Predict.Tolerance)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}
