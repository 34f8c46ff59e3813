package pipeline

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/signbridge/internal/detector"
)

// ErrNoFrame is returned when the canvas has not drawn anything yet.
var ErrNoFrame = errors.New("canvas has no frame")

// Overlay styling.
var (
	connectorColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	landmarkColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

const (
	connectorWidth = 2
	landmarkRadius = 4
	landmarkFill   = -1
)

// Canvas is the rendering surface: the latest frame with the hand skeleton
// drawn over it. It follows the source resolution frame by frame.
type Canvas struct {
	mu     sync.Mutex
	mat    gocv.Mat
	width  int
	height int
}

// NewCanvas creates an empty canvas.
func NewCanvas() *Canvas {
	return &Canvas{mat: gocv.NewMat()}
}

// Render redraws the canvas from frame and overlays hand when non-nil.
func (c *Canvas) Render(frame *gocv.Mat, hand *detector.HandLandmarks) {
	if frame == nil || frame.Empty() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	width, height := frame.Cols(), frame.Rows()
	if width != c.width || height != c.height || c.mat.Type() != frame.Type() {
		c.mat.Close()
		c.mat = gocv.NewMatWithSize(height, width, frame.Type())
		c.width, c.height = width, height
	}

	c.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
	frame.CopyTo(&c.mat)

	if hand != nil {
		drawHand(&c.mat, hand, width, height)
	}
}

// Size returns the current canvas dimensions.
func (c *Canvas) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// JPEG encodes the current canvas.
func (c *Canvas) JPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mat.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// Close releases the canvas image.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mat.Close()
}

func drawHand(mat *gocv.Mat, hand *detector.HandLandmarks, width, height int) {
	n := len(hand.Points)
	toPixel := func(p detector.Point3D) image.Point {
		return image.Point{X: int(p.X * float64(width)), Y: int(p.Y * float64(height))}
	}

	for _, conn := range detector.HandConnections {
		if conn[0] >= n || conn[1] >= n {
			continue
		}
		gocv.Line(mat, toPixel(hand.Points[conn[0]]), toPixel(hand.Points[conn[1]]), connectorColor, connectorWidth)
	}

	for _, p := range hand.Points {
		gocv.Circle(mat, toPixel(p), landmarkRadius, landmarkColor, landmarkFill)
	}
}
