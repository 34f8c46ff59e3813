package pipeline

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/signbridge/internal/detector"
)

func TestCanvas_FollowsFrameSize(t *testing.T) {
	c := NewCanvas()
	defer c.Close()

	sizes := []struct {
		width, height int
	}{
		{640, 480},
		{320, 240},
		{1280, 720},
	}

	for _, sz := range sizes {
		frame := gocv.NewMatWithSize(sz.height, sz.width, gocv.MatTypeCV8UC3)
		hand := detector.OpenPalmLandmarks()
		c.Render(&frame, &hand)
		frame.Close()

		w, h := c.Size()
		if w != sz.width || h != sz.height {
			t.Errorf("canvas size = %dx%d, want %dx%d", w, h, sz.width, sz.height)
		}
	}
}

func TestCanvas_IgnoresEmptyFrame(t *testing.T) {
	c := NewCanvas()
	defer c.Close()

	c.Render(nil, nil)
	empty := gocv.NewMat()
	defer empty.Close()
	c.Render(&empty, nil)

	if w, h := c.Size(); w != 0 || h != 0 {
		t.Errorf("canvas size = %dx%d, want 0x0", w, h)
	}
	if _, err := c.JPEG(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("JPEG() error = %v, want ErrNoFrame", err)
	}
}

func TestCanvas_DrawsOverlay(t *testing.T) {
	c := NewCanvas()
	defer c.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	hand := detector.OpenPalmLandmarks()

	c.Render(&frame, &hand)

	data, err := c.JPEG()
	if err != nil {
		t.Fatalf("JPEG() error = %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatal("expected JPEG data")
	}

	// The wrist sits at (0.5, 0.8) and is drawn in red on a black frame.
	c.mu.Lock()
	px := c.mat.GetVecbAt(int(0.8*480), int(0.5*640))
	c.mu.Unlock()
	if px[2] == 0 {
		t.Errorf("expected red channel at wrist, got %v", px)
	}
}

func TestCanvas_DrawsPartialHand(t *testing.T) {
	c := NewCanvas()
	defer c.Close()

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	hand := detector.HandLandmarks{Points: detector.FistLandmarks().Points[:5]}

	c.Render(&frame, &hand)

	if w, h := c.Size(); w != 160 || h != 120 {
		t.Errorf("canvas size = %dx%d, want 160x120", w, h)
	}
}
