package render

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"image"
	"image/color"
)

// Font defines the parameters for rendering text labels on the canvas
type Font struct {
	Face  font.Face
	Color color.RGBA
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      basicfont.Face7x13,
		Color:     White,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    2,
		BottomPad: 3,
	}
}

// Label draws text on a filled box whose bottom left corner is at the given
// device pixel position
func (c *Canvas) Label(text string, at image.Point, bg color.RGBA, f Font) {

	if c.Empty() || text == "" || f.Face == nil {
		return
	}

	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(f.Color),
		Face: f.Face,
	}

	metrics := f.Face.Metrics()
	textW := d.MeasureString(text).Ceil()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	// keep label inside the top of the canvas
	top := at.Y - ascent - descent - f.TopPad - f.BottomPad

	if top < 0 {
		at.Y -= top
		top = 0
	}

	box := image.Rect(at.X, top, at.X+textW+f.LeftPad+f.RightPad, at.Y)
	c.FillRect(box, bg)

	d.Dot = fixed.P(at.X+f.LeftPad, at.Y-f.BottomPad-descent)
	d.DrawString(text)
}
