package preprocess

import (
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"math"
)

// Resizer defines the struct used for letterboxing video frames onto a
// destination size, either the model input tensor size or the output canvas
type Resizer struct {
	transform Transform
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad int
	yPad int
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling an image of the source
// dimensions to fit the destination dimensions
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		tempMat: gocv.NewMat(),
	}

	r.preCalc(srcWidth, srcHeight, destWidth, destHeight)

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// Update recalculates the scaling parameters when the source or destination
// size has changed.  Nothing is recalculated if the sizes are the same
func (r *Resizer) Update(srcWidth, srcHeight, destWidth, destHeight int) {

	vw, vh := r.transform.VideoSize()

	if vw == srcWidth && vh == srcHeight &&
		r.transform.canvasW == destWidth && r.transform.canvasH == destHeight {
		return
	}

	r.preCalc(srcWidth, srcHeight, destWidth, destHeight)
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc(srcWidth, srcHeight, destWidth, destHeight int) {

	r.transform = NewTransform(destWidth, destHeight, srcWidth, srcHeight)

	if !r.transform.Valid() {
		r.resizeW, r.resizeH, r.xPad, r.yPad = 0, 0, 0, 0
		return
	}

	r.resizeW = int(math.Round(float64(srcWidth) * r.transform.Scale))
	r.resizeH = int(math.Round(float64(srcHeight) * r.transform.Scale))

	if r.resizeW > destWidth {
		r.resizeW = destWidth
	}

	if r.resizeH > destHeight {
		r.resizeH = destHeight
	}

	r.xPad = (destWidth - r.resizeW) / 2  // padding width / 2
	r.yPad = (destHeight - r.resizeH) / 2 // padding height / 2
}

// LetterBoxResize resizes the input image to the destination dimensions
// whilst maintaining image aspect.  Color is that used for letter box
// padding
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	if !r.transform.Valid() {
		return
	}

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.transform.canvasH-r.resizeH-r.yPad,
		r.xPad, r.transform.canvasW-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// Transform returns the transform used for letterboxing
func (r *Resizer) Transform() Transform {
	return r.transform
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return float32(r.transform.Scale)
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.transform.videoW
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.transform.videoH
}
