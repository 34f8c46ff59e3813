// Package predict sends landmark vectors to a prediction endpoint and shows
// the answers on the display surface.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/signbridge/internal/metrics"
)

// Defaults for the prediction client.
const (
	DefaultEndpoint = "http://localhost:5000/predict"
	DefaultInterval = 400 * time.Millisecond
)

// Request is the body posted to the prediction endpoint.
type Request struct {
	Landmarks []float64 `json:"landmarks"`
}

// Response is the body returned by the prediction endpoint. Exactly one of
// the fields is expected to be set.
type Response struct {
	Prediction string `json:"prediction,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Presenter is the part of the display surface the submitter drives.
type Presenter interface {
	ShowPrediction(label, assetPath string)
	ClearPrediction()
}

// Resolver maps a label to its animation.
type Resolver interface {
	Resolve(label string) (string, bool)
}

// Config holds the prediction client settings.
type Config struct {
	Endpoint string
	// Interval is the minimum gap between two transmissions.
	Interval time.Duration
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Interval: DefaultInterval,
	}
}

// Option customizes a Submitter.
type Option func(*Submitter)

// WithHTTPClient sets the HTTP client used for transmissions.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) { s.client = c }
}

// WithClock replaces time.Now for throttle decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

// Submitter rate-limits landmark submissions. Attempts arriving sooner than
// the interval after the last accepted one are dropped. Accepted attempts are
// transmitted in the background; several may be in flight at once and their
// responses are applied in arrival order.
type Submitter struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	resolver Resolver
	view     Presenter
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	interval time.Duration
	lastSent time.Time

	inflight sync.WaitGroup
}

// NewSubmitter creates a Submitter that posts to cfg.Endpoint.
func NewSubmitter(cfg Config, resolver Resolver, view Presenter, logger zerolog.Logger, opts ...Option) *Submitter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}

	s := &Submitter{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		interval: cfg.Interval,
		client:   http.DefaultClient,
		resolver: resolver,
		view:     view,
		logger:   logger.With().Str("component", "submitter").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetInterval changes the minimum gap between transmissions.
// Negative values are ignored.
func (s *Submitter) SetInterval(d time.Duration) {
	if d < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// Interval returns the minimum gap between transmissions.
func (s *Submitter) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// LastSent returns when the last transmission was accepted.
func (s *Submitter) LastSent() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSent
}

// Submit transmits landmarks unless the last accepted submission was less
// than the interval ago. It reports whether a transmission was started and
// never blocks on the network.
func (s *Submitter) Submit(ctx context.Context, landmarks []float64) bool {
	if !s.acquire() {
		metrics.Submissions.WithLabelValues(metrics.SubmissionThrottled).Inc()
		return false
	}
	metrics.Submissions.WithLabelValues(metrics.SubmissionSent).Inc()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.transmit(ctx, landmarks)
	}()
	return true
}

// Wait blocks until every started transmission has finished.
func (s *Submitter) Wait() {
	s.inflight.Wait()
}

// acquire records a transmission slot if the interval has elapsed.
// The timestamp moves before any response arrives.
func (s *Submitter) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.lastSent.IsZero() && now.Sub(s.lastSent) < s.interval {
		return false
	}
	s.lastSent = now
	return true
}

func (s *Submitter) transmit(ctx context.Context, landmarks []float64) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.post(ctx, landmarks)
	metrics.PredictLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Predictions.WithLabelValues(metrics.PredictionTransport).Inc()
		s.logger.Error().Err(err).Msg("sending landmarks")
		return
	}

	s.logger.Debug().Str("prediction", resp.Prediction).Str("error", resp.Error).Msg("predict response")
	s.apply(resp)
}

func (s *Submitter) post(ctx context.Context, landmarks []float64) (*Response, error) {
	body, err := json.Marshal(Request{Landmarks: landmarks})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", s.endpoint, err)
	}
	defer httpResp.Body.Close()

	// Error statuses still carry a JSON body worth reading.
	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
	}
	return &resp, nil
}

func (s *Submitter) apply(resp *Response) {
	if resp.Prediction == "" {
		metrics.Predictions.WithLabelValues(metrics.PredictionNoLabel).Inc()
		s.view.ClearPrediction()
		if resp.Error != "" {
			s.logger.Warn().Str("error", resp.Error).Msg("predict error")
		}
		return
	}

	metrics.Predictions.WithLabelValues(metrics.PredictionLabel).Inc()
	assetPath, ok := s.resolver.Resolve(resp.Prediction)
	if !ok {
		assetPath = ""
	}
	s.view.ShowPrediction(resp.Prediction, assetPath)
}
