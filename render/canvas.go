package render

import (
	"github.com/swdee/go-poseoverlay/preprocess"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
	"image"
	"image/color"
	"math"
)

const (
	// circleSegments is the number of polygon edges used to approximate
	// a circle
	circleSegments = 24
)

// Canvas is a transparent RGBA pixel buffer layered over the video.  All
// drawing methods take coordinates in the space of the current transform,
// which is video pixel space while rendering an overlay.  Line thickness
// and point radius are in canvas pixels so overlays keep a constant weight
// regardless of video resolution
type Canvas struct {
	img *image.RGBA
	// ras is the anti aliased rasterizer reused for every shape
	ras *vector.Rasterizer
	// transforms is the stack of pushed coordinate transforms
	transforms []preprocess.Transform
}

// NewCanvas returns a transparent canvas of the given size
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.Resize(width, height)
	return c
}

// Resize changes the canvas dimensions, the pixel buffer is reused when it
// has the capacity.  Canvas contents are cleared
func (c *Canvas) Resize(width, height int) {

	if width < 0 {
		width = 0
	}

	if height < 0 {
		height = 0
	}

	n := width * height * 4

	if c.img == nil {
		c.img = &image.RGBA{}
	}

	if cap(c.img.Pix) < n {
		c.img.Pix = make([]uint8, n)
	} else {
		c.img.Pix = c.img.Pix[:n]
	}

	c.img.Stride = width * 4
	c.img.Rect = image.Rect(0, 0, width, height)

	if width > 0 && height > 0 {
		if c.ras == nil {
			c.ras = vector.NewRasterizer(width, height)
		} else {
			c.ras.Reset(width, height)
		}
	}

	c.Clear()
}

// Image returns the canvas pixel buffer
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Size returns the canvas width and height
func (c *Canvas) Size() (int, int) {
	return c.img.Rect.Dx(), c.img.Rect.Dy()
}

// Empty reports if the canvas has zero area
func (c *Canvas) Empty() bool {
	return c.img.Rect.Empty()
}

// Clear sets every pixel on the canvas to fully transparent
func (c *Canvas) Clear() {
	clear(c.img.Pix)
}

// PushTransform makes the given transform current until the matching
// PopTransform
func (c *Canvas) PushTransform(t preprocess.Transform) {
	c.transforms = append(c.transforms, t)
}

// PopTransform restores the previously current transform
func (c *Canvas) PopTransform() {
	if len(c.transforms) > 0 {
		c.transforms = c.transforms[:len(c.transforms)-1]
	}
}

// Transform returns the current transform, which is the identity mapping
// to device pixels when none has been pushed
func (c *Canvas) Transform() preprocess.Transform {

	if len(c.transforms) == 0 {
		return preprocess.Identity()
	}

	return c.transforms[len(c.transforms)-1]
}

// fill rasterizes the current path in the given color
func (c *Canvas) fill(clr color.RGBA) {
	c.ras.Draw(c.img, c.img.Bounds(), image.NewUniform(clr), image.Point{})
}

// begin resets the rasterizer, returning false if there is nothing to draw
// on
func (c *Canvas) begin() bool {

	if c.Empty() {
		return false
	}

	w, h := c.Size()
	c.ras.Reset(w, h)

	return true
}

// Line draws a line segment of the given thickness between two points
func (c *Canvas) Line(x1, y1, x2, y2 float64, clr color.RGBA, thickness float64) {

	if !c.begin() {
		return
	}

	t := c.Transform()
	ax, ay := t.Apply(x1, y1)
	bx, by := t.Apply(x2, y2)

	c.quad(ax, ay, bx, by, thickness/2)
	c.fill(clr)
}

// quad adds a rectangle of half width hw around the segment a-b to the
// current path
func (c *Canvas) quad(ax, ay, bx, by, hw float64) {

	dx := bx - ax
	dy := by - ay
	length := math.Hypot(dx, dy)

	if length == 0 {
		// zero length segment, draw a square dot
		dx, dy, length = 1, 0, 1
	}

	nx := -dy / length * hw
	ny := dx / length * hw

	c.ras.MoveTo(float32(ax+nx), float32(ay+ny))
	c.ras.LineTo(float32(bx+nx), float32(by+ny))
	c.ras.LineTo(float32(bx-nx), float32(by-ny))
	c.ras.LineTo(float32(ax-nx), float32(ay-ny))
	c.ras.ClosePath()
}

// StrokeRect draws the outline of a rectangle given its top left corner
// and size
func (c *Canvas) StrokeRect(x, y, w, h float64, clr color.RGBA, thickness float64) {

	if !c.begin() {
		return
	}

	t := c.Transform()
	x0, y0 := t.Apply(x, y)
	x1, y1 := t.Apply(x+w, y+h)
	hw := thickness / 2

	// extend horizontal edges so the corners are filled
	c.quad(x0-hw, y0, x1+hw, y0, hw)
	c.quad(x0-hw, y1, x1+hw, y1, hw)
	c.quad(x0, y0, x0, y1, hw)
	c.quad(x1, y0, x1, y1, hw)
	c.fill(clr)
}

// FillRect draws a solid rectangle in device pixels, ignoring the current
// transform
func (c *Canvas) FillRect(r image.Rectangle, clr color.RGBA) {
	draw.Draw(c.img, r, image.NewUniform(clr), image.Point{}, draw.Over)
}

// FillCircle draws a filled circle with the given radius in canvas pixels
// centered on x,y
func (c *Canvas) FillCircle(x, y, radius float64, clr color.RGBA) {

	if !c.begin() || radius <= 0 {
		return
	}

	cx, cy := c.Transform().Apply(x, y)

	c.ras.MoveTo(float32(cx+radius), float32(cy))

	for i := 1; i < circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		c.ras.LineTo(float32(cx+radius*math.Cos(a)), float32(cy+radius*math.Sin(a)))
	}

	c.ras.ClosePath()
	c.fill(clr)
}

// DrawScaled scales the source image onto the rectangle at x,y of size w,h
// in the current coordinate space
func (c *Canvas) DrawScaled(src image.Image, x, y, w, h float64) {

	if c.Empty() {
		return
	}

	dr := c.Transform().Rect(x, y, w, h)
	draw.ApproxBiLinear.Scale(c.img, dr, src, src.Bounds(), draw.Over, nil)
}
