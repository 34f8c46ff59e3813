// Package pipeline turns per-frame hand detections into overlay graphics and
// landmark submissions.
package pipeline

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/metrics"
)

// Results is what the detector produced for one video frame.
type Results struct {
	// Image is the source frame. It may be nil when no image is rendered.
	Image *gocv.Mat
	// Hands holds every detected hand in detector order.
	Hands []detector.HandLandmarks
}

// Renderer draws a frame and, when hand is non-nil, its skeleton overlay.
type Renderer interface {
	Render(frame *gocv.Mat, hand *detector.HandLandmarks)
}

// Sink receives well-formed landmark vectors.
type Sink interface {
	Submit(ctx context.Context, landmarks []float64) bool
}

// Pipeline handles detector results one frame at a time. Only the first
// detected hand is drawn and submitted.
type Pipeline struct {
	renderer Renderer
	sink     Sink
}

// New creates a Pipeline. renderer may be nil for headless operation.
func New(renderer Renderer, sink Sink) *Pipeline {
	return &Pipeline{renderer: renderer, sink: sink}
}

// OnResults processes one frame's results. Vectors that do not hold exactly
// detector.VectorLen values are dropped without further notice.
func (p *Pipeline) OnResults(ctx context.Context, res Results) {
	var hand *detector.HandLandmarks
	if len(res.Hands) > 0 {
		hand = &res.Hands[0]
	}

	if p.renderer != nil {
		p.renderer.Render(res.Image, hand)
	}

	if hand == nil {
		metrics.FramesProcessed.WithLabelValues("no").Inc()
		return
	}
	metrics.FramesProcessed.WithLabelValues("yes").Inc()

	flat := hand.Flatten()
	if len(flat) != detector.VectorLen {
		metrics.MalformedVectors.Inc()
		return
	}

	p.sink.Submit(ctx, flat)
}
