package preprocess

import (
	"image"
	"testing"
)

func TestNewTransform(t *testing.T) {

	tests := []struct {
		canvasW, canvasH int
		videoW, videoH   int
		expectScale      float64
		expectOffX       float64
		expectOffY       float64
	}{
		{800, 600, 400, 300, 2, 0, 0},
		{800, 600, 640, 480, 1.25, 0, 0},
		// pillar box
		{800, 600, 300, 300, 2, 100, 0},
		// letter box
		{1280, 1280, 1280, 720, 1, 0, 280},
		// downscale
		{640, 360, 1920, 1080, 1.0 / 3, 0, 0},
	}

	for _, tc := range tests {
		tr := NewTransform(tc.canvasW, tc.canvasH, tc.videoW, tc.videoH)

		if !tr.Valid() {
			t.Errorf("canvas %dx%d video %dx%d: expected valid transform",
				tc.canvasW, tc.canvasH, tc.videoW, tc.videoH)
		}

		if tr.Scale != tc.expectScale || tr.OffsetX != tc.expectOffX ||
			tr.OffsetY != tc.expectOffY {
			t.Errorf("canvas %dx%d video %dx%d: expected scale=%f off=(%f,%f), got scale=%f off=(%f,%f)",
				tc.canvasW, tc.canvasH, tc.videoW, tc.videoH,
				tc.expectScale, tc.expectOffX, tc.expectOffY,
				tr.Scale, tr.OffsetX, tr.OffsetY)
		}
	}
}

func TestTransformIdempotent(t *testing.T) {

	a := NewTransform(1024, 768, 1920, 1080)
	b := NewTransform(1024, 768, 1920, 1080)

	if a != b {
		t.Errorf("expected identical transforms, got %+v and %+v", a, b)
	}
}

func TestTransformUnknownDimensions(t *testing.T) {

	tests := [][4]int{
		{800, 600, 0, 0},
		{0, 600, 640, 480},
		{800, 0, 640, 480},
	}

	for _, tc := range tests {
		tr := NewTransform(tc[0], tc[1], tc[2], tc[3])

		if tr.Valid() {
			t.Errorf("%v: expected invalid transform", tc)
		}

		if tr.Scale != 0 {
			t.Errorf("%v: expected zero scale, got %f", tc, tr.Scale)
		}
	}
}

func TestTransformApplyInvert(t *testing.T) {

	tr := NewTransform(800, 600, 300, 300)

	x, y := tr.Apply(150, 150)

	if x != 400 || y != 300 {
		t.Errorf("expected video center to map to canvas center, got (%f,%f)", x, y)
	}

	vx, vy := tr.Invert(x, y)

	if vx != 150 || vy != 150 {
		t.Errorf("expected inverse to return (150,150), got (%f,%f)", vx, vy)
	}

	if r := tr.VideoRect(); r != image.Rect(100, 0, 700, 600) {
		t.Errorf("expected video rect (100,0)-(700,600), got %v", r)
	}
}
