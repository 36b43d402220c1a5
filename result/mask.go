package result

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMalformedMask is returned when a segmentation mask's dimensions do not
// match its confidence data
var ErrMalformedMask = errors.New("malformed segmentation mask")

// SegmentationMask is a dense map of per pixel confidence values in the
// range [0,1] indicating subject versus background.  The mask dimensions
// are independent of both the video and canvas dimensions.
//
// The Confidence slice may be backed by memory owned by the detector, in
// which case it is only valid until Release is called.  A mask must not be
// retained beyond the frame it was produced for.
type SegmentationMask struct {
	Width  int
	Height int
	// Confidence values stored row major, length Width*Height
	Confidence []float32
	// release frees the externally owned backing buffer
	release func()
	once    sync.Once
}

// NewSegmentationMask returns a mask over the given confidence data.  The
// release function is optional and is called at most once by Release
func NewSegmentationMask(width, height int, confidence []float32,
	release func()) *SegmentationMask {

	return &SegmentationMask{
		Width:      width,
		Height:     height,
		Confidence: confidence,
		release:    release,
	}
}

// Validate checks the mask dimensions agree with the confidence data
func (m *SegmentationMask) Validate() error {

	if m == nil {
		return fmt.Errorf("%w: nil mask", ErrMalformedMask)
	}

	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrMalformedMask,
			m.Width, m.Height)
	}

	if len(m.Confidence) != m.Width*m.Height {
		return fmt.Errorf("%w: %d values for %dx%d", ErrMalformedMask,
			len(m.Confidence), m.Width, m.Height)
	}

	return nil
}

// At returns the confidence value at mask cell x,y
func (m *SegmentationMask) At(x, y int) float32 {
	return m.Confidence[y*m.Width+x]
}

// Release frees the backing buffer.  It is safe to call multiple times,
// the release function only runs once
func (m *SegmentationMask) Release() {

	if m == nil {
		return
	}

	m.once.Do(func() {
		if m.release != nil {
			m.release()
		}
		m.Confidence = nil
	})
}
