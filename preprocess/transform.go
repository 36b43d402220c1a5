package preprocess

import (
	"image"
	"math"
)

// Transform is the uniform scale and centering offset that maps video pixel
// space onto canvas pixel space whilst preserving the video aspect ratio
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
	// dimensions the transform was calculated from
	canvasW, canvasH int
	videoW, videoH   int
}

// NewTransform calculates the transform for fitting a video of the given
// native size centered inside the canvas.  It is cheap and must be
// recalculated every frame as the canvas or video dimensions may change
func NewTransform(canvasW, canvasH, videoW, videoH int) Transform {

	t := Transform{
		canvasW: canvasW,
		canvasH: canvasH,
		videoW:  videoW,
		videoH:  videoH,
	}

	if !t.Valid() {
		return t
	}

	t.Scale = math.Min(float64(canvasW)/float64(videoW),
		float64(canvasH)/float64(videoH))

	t.OffsetX = (float64(canvasW) - float64(videoW)*t.Scale) / 2
	t.OffsetY = (float64(canvasH) - float64(videoH)*t.Scale) / 2

	return t
}

// Identity returns a transform that leaves coordinates unchanged
func Identity() Transform {
	return Transform{Scale: 1}
}

// Valid reports if all dimensions used to calculate the transform are known
func (t Transform) Valid() bool {
	return t.canvasW > 0 && t.canvasH > 0 && t.videoW > 0 && t.videoH > 0
}

// VideoSize returns the video dimensions the transform was made for
func (t Transform) VideoSize() (int, int) {
	return t.videoW, t.videoH
}

// Apply maps a point in video pixel space to canvas pixel space
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.Scale + t.OffsetX, y*t.Scale + t.OffsetY
}

// Invert maps a point in canvas pixel space back to video pixel space
func (t Transform) Invert(x, y float64) (float64, float64) {

	if t.Scale == 0 {
		return 0, 0
	}

	return (x - t.OffsetX) / t.Scale, (y - t.OffsetY) / t.Scale
}

// Rect maps a video pixel space rectangle to canvas pixel space, rounding
// outwards to whole pixels
func (t Transform) Rect(x, y, w, h float64) image.Rectangle {

	x0, y0 := t.Apply(x, y)
	x1, y1 := t.Apply(x+w, y+h)

	return image.Rect(int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x1)), int(math.Ceil(y1)))
}

// VideoRect returns the area of the canvas the scaled video occupies
func (t Transform) VideoRect() image.Rectangle {
	return t.Rect(0, 0, float64(t.videoW), float64(t.videoH))
}
