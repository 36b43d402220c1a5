package detector

import (
	"fmt"
	"github.com/swdee/go-poseoverlay/result"
	"gocv.io/x/gocv"
)

// Foreground produces a subject confidence mask by background subtraction
// over consecutive video frames
type Foreground struct {
	mog2 gocv.BackgroundSubtractorMOG2
	fg   gocv.Mat
}

// NewForeground returns a background subtractor remembering history frames
func NewForeground(history int) *Foreground {
	return &Foreground{
		mog2: gocv.NewBackgroundSubtractorMOG2WithParams(history, 16, false),
		fg:   gocv.NewMat(),
	}
}

// Mask applies the frame to the background model and returns the foreground
// as a confidence mask of the frame size.  The mask data is owned by a Mat
// which is closed when the mask is released
func (f *Foreground) Mask(frame gocv.Mat) (*result.SegmentationMask, error) {

	f.mog2.Apply(frame, &f.fg)

	if f.fg.Empty() {
		return nil, fmt.Errorf("background subtractor produced no output")
	}

	conf := gocv.NewMat()
	f.fg.ConvertToWithParams(&conf, gocv.MatTypeCV32F, 1.0/255, 0)

	data, err := conf.DataPtrFloat32()

	if err != nil {
		conf.Close()
		return nil, fmt.Errorf("error accessing mask data: %w", err)
	}

	mask := result.NewSegmentationMask(conf.Cols(), conf.Rows(), data, func() {
		conf.Close()
	})

	if err := mask.Validate(); err != nil {
		mask.Release()
		return nil, err
	}

	return mask, nil
}

// Close frees the background model
func (f *Foreground) Close() error {
	f.fg.Close()
	return f.mog2.Close()
}
