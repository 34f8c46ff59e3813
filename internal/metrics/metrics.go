// Package metrics exposes Prometheus counters for the sign pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	SubmissionSent      = "sent"
	SubmissionThrottled = "throttled"
)

// Prediction outcomes on the client.
const (
	PredictionLabel     = "label"
	PredictionNoLabel   = "no_label"
	PredictionTransport = "transport_error"
)

var (
	FramesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signbridge_frames_total",
			Help: "Frames handled by the frame pipeline, by whether a hand was present",
		},
		[]string{"hand"},
	)

	MalformedVectors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signbridge_malformed_vectors_total",
			Help: "Landmark vectors discarded for having the wrong length",
		},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signbridge_submissions_total",
			Help: "Landmark submissions by throttle outcome",
		},
		[]string{"outcome"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signbridge_predictions_total",
			Help: "Prediction responses by outcome",
		},
		[]string{"outcome"},
	)

	PredictLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "signbridge_predict_latency_seconds",
			Help: "Round trip time of prediction requests",
		},
	)

	ServedPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signbridge_served_predictions_total",
			Help: "Predictions answered by the prediction endpoint, by HTTP status",
		},
		[]string{"status"},
	)

	Utterances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signbridge_utterances_total",
			Help: "Speech synthesis attempts by result",
		},
		[]string{"result"},
	)
)
