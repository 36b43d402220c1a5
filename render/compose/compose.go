// Package compose letterboxes video frames onto the output canvas size and
// blends the transparent overlay canvas over them for streaming
package compose

import (
	"fmt"
	"github.com/swdee/go-poseoverlay/preprocess"
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// Compositor combines video frames with the overlay canvas.  It keeps its
// Mats between frames and is not safe for concurrent use
type Compositor struct {
	resizer *preprocess.Resizer
	frame   gocv.Mat
	boxed   gocv.Mat
	// Background is the letterbox padding color
	Background color.RGBA
	// Quality is the JPEG encoding quality
	Quality int
}

// NewCompositor returns a compositor
func NewCompositor() *Compositor {
	return &Compositor{
		resizer:    preprocess.NewResizer(0, 0, 0, 0),
		frame:      gocv.NewMat(),
		boxed:      gocv.NewMat(),
		Background: color.RGBA{A: 255},
		Quality:    80,
	}
}

// Close frees the Mats held by the compositor
func (c *Compositor) Close() error {
	c.frame.Close()
	c.boxed.Close()
	return c.resizer.Close()
}

// Compose letterboxes the frame to the overlay size, blends the overlay on
// top and returns the result JPEG encoded
func (c *Compositor) Compose(frame image.Image, overlay *image.RGBA) ([]byte, error) {

	ow := overlay.Rect.Dx()
	oh := overlay.Rect.Dy()

	if ow == 0 || oh == 0 {
		return nil, fmt.Errorf("overlay has zero area")
	}

	src, err := gocv.ImageToMatRGB(frame)

	if err != nil {
		return nil, fmt.Errorf("error converting frame to Mat: %w", err)
	}

	defer src.Close()

	c.resizer.Update(src.Cols(), src.Rows(), ow, oh)
	c.resizer.LetterBoxResize(src, &c.boxed, c.Background)

	if c.boxed.Cols() != ow || c.boxed.Rows() != oh {
		return nil, fmt.Errorf("letterboxed frame %dx%d does not match overlay %dx%d",
			c.boxed.Cols(), c.boxed.Rows(), ow, oh)
	}

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the frame and blend the bytes
	// directly before copying back to a Mat
	data := c.boxed.ToBytes()
	BlendBGR(data, overlay)

	out, err := gocv.NewMatFromBytes(oh, ow, gocv.MatTypeCV8UC3, data)

	if err != nil {
		return nil, fmt.Errorf("error creating output Mat: %w", err)
	}

	defer out.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, out,
		[]int{gocv.IMWriteJpegQuality, c.Quality})

	if err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}

	defer buf.Close()

	// copy out of C memory before the buffer is closed
	jpg := make([]byte, buf.Len())
	copy(jpg, buf.GetBytes())

	return jpg, nil
}

// BlendBGR blends the premultiplied RGBA overlay over BGR pixel data of the
// same dimensions in place
func BlendBGR(bgr []byte, overlay *image.RGBA) {

	w := overlay.Rect.Dx()
	h := overlay.Rect.Dy()

	for y := 0; y < h; y++ {

		src := overlay.Pix[y*overlay.Stride : y*overlay.Stride+w*4]
		dst := bgr[y*w*3 : (y+1)*w*3]

		for x := 0; x < w; x++ {
			a := uint32(src[x*4+3])

			if a == 0 {
				continue
			}

			inv := 255 - a

			dst[x*3+0] = uint8((uint32(dst[x*3+0])*inv)/255 + uint32(src[x*4+2]))
			dst[x*3+1] = uint8((uint32(dst[x*3+1])*inv)/255 + uint32(src[x*4+1]))
			dst[x*3+2] = uint8((uint32(dst[x*3+2])*inv)/255 + uint32(src[x*4+0]))
		}
	}
}
