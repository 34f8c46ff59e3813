package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/asset"
	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/classifier"
	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/display"
	"github.com/ayusman/signbridge/internal/pipeline"
	"github.com/ayusman/signbridge/internal/predict"
	"github.com/ayusman/signbridge/internal/server"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/internal/voice"
	"github.com/ayusman/signbridge/testdata"
)

// predictService starts the prediction endpoint over a fresh store.
func predictService(t *testing.T, tolerance float64) *httptest.Server {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "signs.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clf := classifier.New(tolerance)
	srv := server.New(server.Config{
		Logger:    zerolog.Nop(),
		Store:     s,
		Predictor: clf,
		OnSignsChanged: func() {
			if err := clf.Load(s.Signs()); err != nil {
				t.Errorf("reload templates: %v", err)
			}
		},
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func addSign(t *testing.T, ts *httptest.Server, name string) {
	t.Helper()

	sg, err := testdata.LoadSign(name)
	if err != nil {
		t.Fatalf("LoadSign(%q) error = %v", name, err)
	}
	body, _ := json.Marshal(sg)

	resp, err := ts.Client().Post(ts.URL+"/api/signs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create sign error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create sign status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

type client struct {
	surface   *display.Surface
	submitter *predict.Submitter
	detector  *detector.MockDetector
	app       *app.App
}

// newClient wires the camera loop to the submitter with an unthrottled
// interval so every frame is sent.
func newClient(t *testing.T, endpoint string) *client {
	t.Helper()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	surface := display.NewSurface()
	submitter := predict.NewSubmitter(predict.Config{Endpoint: endpoint}, asset.Default(), surface, zerolog.Nop())
	mockDetector := detector.NewMockDetector()

	return &client{
		surface:   surface,
		submitter: submitter,
		detector:  mockDetector,
		app: app.New(app.Config{
			Camera:   cam,
			Detector: mockDetector,
			Handler:  pipeline.New(nil, submitter),
			Logger:   zerolog.Nop(),
		}),
	}
}

func (c *client) sign(t *testing.T, hand detector.HandLandmarks) display.Snapshot {
	t.Helper()

	c.detector.SetHands([]detector.HandLandmarks{hand})
	if err := c.app.ProcessFrame(context.Background()); err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	c.submitter.Wait()
	return c.surface.Snapshot()
}

func TestE2E_SignToDisplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	ts := predictService(t, classifier.DefaultTolerance)
	addSign(t, ts, "a")
	addSign(t, ts, "hello")

	c := newClient(t, ts.URL+"/predict")

	t.Run("Fist", func(t *testing.T) {
		snap := c.sign(t, detector.FistLandmarks())
		if snap.Prediction != "A" {
			t.Errorf("prediction = %q, want A", snap.Prediction)
		}
		if !snap.AssetVisible || snap.AssetSrc != "/static/animations/A.gif" {
			t.Errorf("asset = %q (visible %v), want /static/animations/A.gif", snap.AssetSrc, snap.AssetVisible)
		}
	})

	t.Run("OpenPalm", func(t *testing.T) {
		snap := c.sign(t, detector.OpenPalmLandmarks())
		if snap.Prediction != "HELLO" {
			t.Errorf("prediction = %q, want HELLO", snap.Prediction)
		}
		if snap.AssetSrc != "/static/animations/hello.gif" {
			t.Errorf("asset = %q, want /static/animations/hello.gif", snap.AssetSrc)
		}
	})

	t.Run("NoHand", func(t *testing.T) {
		before := c.surface.Snapshot()
		c.detector.SetHands(nil)
		if err := c.app.ProcessFrame(context.Background()); err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
		c.submitter.Wait()
		if got := c.surface.Snapshot(); got != before {
			t.Errorf("display changed without a hand: %+v", got)
		}
	})
}

func TestE2E_UnknownSignClearsDisplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	ts := predictService(t, 0.01)
	addSign(t, ts, "a")

	c := newClient(t, ts.URL+"/predict")

	if snap := c.sign(t, detector.FistLandmarks()); snap.Prediction != "A" {
		t.Fatalf("prediction = %q, want A", snap.Prediction)
	}

	snap := c.sign(t, detector.OpenPalmLandmarks())
	if snap.Prediction != display.Placeholder {
		t.Errorf("prediction = %q, want placeholder", snap.Prediction)
	}
	if snap.AssetVisible {
		t.Error("asset should be hidden after a low-confidence answer")
	}
}

func TestE2E_PredictionServiceDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	ts := predictService(t, classifier.DefaultTolerance)
	addSign(t, ts, "a")
	c := newClient(t, ts.URL+"/predict")

	c.sign(t, detector.FistLandmarks())
	before := c.surface.Snapshot()

	ts.Close()
	if got := c.sign(t, detector.OpenPalmLandmarks()); got != before {
		t.Errorf("transport failure changed the display: %+v", got)
	}
}

func TestE2E_SpeechToAnimation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	surface := display.NewSurface()
	rec := voice.NewLineRecognizer(strings.NewReader("well thank you\n"))
	bridge := voice.NewBridge(rec, voice.Unsupported{}, asset.Default(), surface, voice.DefaultRate, zerolog.Nop())

	srv := server.New(server.Config{Logger: zerolog.Nop(), Surface: surface, Voice: bridge})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/listen", "application/json", nil)
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("listen status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !surface.Snapshot().AssetVisible {
		if time.Now().After(deadline) {
			t.Fatalf("transcript not shown, speech text = %q", surface.Snapshot().SpeechText)
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err = ts.Client().Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("state error = %v", err)
	}
	defer resp.Body.Close()

	var state display.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.SpeechText != "well thank you" {
		t.Errorf("speech text = %q, want the transcript", state.SpeechText)
	}
	if state.AssetSrc != "/static/animations/thanks.gif" || !state.AssetVisible {
		t.Errorf("state asset = %q (visible %v), want thanks.gif", state.AssetSrc, state.AssetVisible)
	}
}
