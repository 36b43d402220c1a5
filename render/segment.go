package render

import (
	"fmt"
	"github.com/swdee/go-poseoverlay/result"
	"image"
	"image/color"
	"math"
)

// maskScratch is the offscreen buffer the colorized mask is written to
// before scaling onto the canvas.  It is kept between frames and resized
// in place, only growing its backing array when a larger mask arrives
type maskScratch struct {
	img image.NRGBA
}

// resize sets the scratch dimensions, reusing the backing array when it
// has the capacity
func (s *maskScratch) resize(width, height int) *image.NRGBA {

	n := width * height * 4

	if cap(s.img.Pix) < n {
		s.img.Pix = make([]uint8, n)
	} else {
		s.img.Pix = s.img.Pix[:n]
	}

	s.img.Stride = width * 4
	s.img.Rect = image.Rect(0, 0, width, height)

	return &s.img
}

// ColorizeMask converts the mask confidence values into translucent pixels
// of the given color in dst, which must be the same size as the mask.  Each
// pixel's alpha is the color's alpha multiplied by the cell confidence and
// the opacity, producing a heat map of the subject
func ColorizeMask(dst *image.NRGBA, mask *result.SegmentationMask,
	clr color.RGBA, opacity float64) error {

	if err := mask.Validate(); err != nil {
		return err
	}

	if dst.Rect.Dx() != mask.Width || dst.Rect.Dy() != mask.Height {
		return fmt.Errorf("scratch buffer %dx%d does not match mask %dx%d",
			dst.Rect.Dx(), dst.Rect.Dy(), mask.Width, mask.Height)
	}

	opacity = clamp01(opacity)
	base := float64(clr.A)

	for y := 0; y < mask.Height; y++ {

		row := dst.Pix[y*dst.Stride : y*dst.Stride+mask.Width*4]
		conf := mask.Confidence[y*mask.Width : (y+1)*mask.Width]

		for x, c := range conf {
			a := math.Floor(base * clamp01(float64(c)) * opacity)

			row[x*4+0] = clr.R
			row[x*4+1] = clr.G
			row[x*4+2] = clr.B
			row[x*4+3] = uint8(a)
		}
	}

	return nil
}

// clamp01 restricts the value to [0,1], NaN becomes 0
func clamp01(v float64) float64 {

	if !(v > 0) {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// SegmentMask colorizes the mask and draws it scaled over the full video
// area of the canvas.  The canvas must have the video transform pushed
func (o *Overlay) SegmentMask(mask *result.SegmentationMask, videoW, videoH int) error {

	if err := mask.Validate(); err != nil {
		return err
	}

	scratch := o.scratch.resize(mask.Width, mask.Height)

	err := ColorizeMask(scratch, mask, o.style.MaskColor, o.style.MaskOpacity)

	if err != nil {
		return err
	}

	o.canvas.DrawScaled(scratch, 0, 0, float64(videoW), float64(videoH))

	return nil
}
