package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:5000/predict", cfg.Client.Endpoint)
	assert.Equal(t, 400*time.Millisecond, cfg.Client.Interval)
	assert.Zero(t, cfg.Client.Timeout)
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 480, cfg.Camera.Height)
	assert.Equal(t, 1, cfg.Detector.MaxHands)
	assert.Equal(t, 0.6, cfg.Detector.MinConfidence)
	assert.Equal(t, "/static/animations", cfg.Assets.Base)
	assert.Equal(t, 1.0, cfg.Speech.Rate)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
client:
  endpoint: http://predict.local/predict
  interval: 250ms
  timeout: 2s
camera:
  device_id: 1
speech:
  recognizer: stdin
  rate: 1.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://predict.local/predict", cfg.Client.Endpoint)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.Interval)
	assert.Equal(t, 2*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 1, cfg.Camera.DeviceID)
	assert.Equal(t, 640, cfg.Camera.Width, "unset keys keep defaults")
	assert.Equal(t, "stdin", cfg.Speech.Recognizer)
	assert.Equal(t, 1.5, cfg.Speech.Rate)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "client:\n  interval: 250ms\n")
	t.Setenv("SIGNBRIDGE_CLIENT_INTERVAL", "1s")
	t.Setenv("SIGNBRIDGE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Client.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "speech:\n  rate: -1\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "speech.rate")
	})

	t.Run("negative interval", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "client:\n  interval: -5ms\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "client.interval")
	})
}

func TestWatch_ReloadsInterval(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "client:\n  interval: 400ms\n")

	var mu sync.Mutex
	var got []time.Duration
	cfg, err := Watch(path, zerolog.Nop(), func(c *Config) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c.Client.Interval)
	})
	require.NoError(t, err)
	assert.Equal(t, 400*time.Millisecond, cfg.Client.Interval)

	require.NoError(t, os.WriteFile(path, []byte("client:\n  interval: 100ms\n"), 0644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1] == 100*time.Millisecond
	}, 3*time.Second, 20*time.Millisecond)
}
