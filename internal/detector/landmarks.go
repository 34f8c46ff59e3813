// Package detector provides hand detection interfaces and types for sign recognition.
package detector

import (
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// VectorLen is the length of a flattened landmark vector (x, y, z per point).
const VectorLen = NumLandmarks * 3

// HandConnections lists the landmark pairs joined when drawing a hand skeleton.
var HandConnections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// Point3D represents a landmark in normalized image coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand. A well-formed hand has NumLandmarks
// points, but detector output is not trusted to be well-formed.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// NewHandLandmarks returns a hand with NumLandmarks zeroed points.
func NewHandLandmarks(handedness string, score float64) HandLandmarks {
	return HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: handedness,
		Score:      score,
	}
}

// Flatten returns the points as x0, y0, z0, x1, y1, z1, ...
func (h *HandLandmarks) Flatten() []float64 {
	if h == nil {
		return nil
	}
	flat := make([]float64, 0, len(h.Points)*3)
	for _, p := range h.Points {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return flat
}

// FromVector rebuilds a hand from a flattened landmark vector.
func FromVector(vector []float64) (*HandLandmarks, error) {
	if len(vector) != VectorLen {
		return nil, fmt.Errorf("expected %d values, got %d", VectorLen, len(vector))
	}

	hand := NewHandLandmarks("", 0)
	for i := 0; i < NumLandmarks; i++ {
		hand.Points[i] = Point3D{X: vector[i*3], Y: vector[i*3+1], Z: vector[i*3+2]}
	}
	return &hand, nil
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
// Returns nil for a nil hand or one with fewer than NumLandmarks points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil || len(h.Points) < NumLandmarks {
		return nil
	}

	normalized := &HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])

	// Avoid division by zero
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
