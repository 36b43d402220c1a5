package source

import (
	"fmt"
	"gocv.io/x/gocv"
	"image"
)

// device is a frame producer read from the capture goroutine only
type device interface {
	// read decodes the next frame, false when no frame could be read
	read() (image.Image, bool)
	// rewind seeks back to the first frame, false if unsupported
	rewind() bool
	// dimensions returns the native frame size if the device reports it
	dimensions() (int, int)
	// fps returns the native frame rate, zero if unknown
	fps() float64
	close() error
}

// videoDevice reads frames through an OpenCV VideoCapture
type videoDevice struct {
	vc  *gocv.VideoCapture
	img gocv.Mat
}

// openFile opens a video file or stream URL
func openFile(path string) (*videoDevice, error) {

	vc, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return nil, fmt.Errorf("error opening video %s: %w", path, err)
	}

	return &videoDevice{vc: vc, img: gocv.NewMat()}, nil
}

// openCamera opens a webcam by device index
func openCamera(id int) (*videoDevice, error) {

	vc, err := gocv.VideoCaptureDevice(id)

	if err != nil {
		return nil, fmt.Errorf("error opening camera %d: %w", id, err)
	}

	return &videoDevice{vc: vc, img: gocv.NewMat()}, nil
}

func (v *videoDevice) read() (image.Image, bool) {

	if ok := v.vc.Read(&v.img); !ok || v.img.Empty() {
		return nil, false
	}

	// copy out of the reused Mat so consumers own the frame
	img, err := v.img.ToImage()

	if err != nil {
		return nil, false
	}

	return img, true
}

func (v *videoDevice) rewind() bool {
	v.vc.Set(gocv.VideoCapturePosFrames, 0)
	return v.vc.Get(gocv.VideoCapturePosFrames) == 0
}

func (v *videoDevice) dimensions() (int, int) {
	return int(v.vc.Get(gocv.VideoCaptureFrameWidth)),
		int(v.vc.Get(gocv.VideoCaptureFrameHeight))
}

func (v *videoDevice) fps() float64 {
	return v.vc.Get(gocv.VideoCaptureFPS)
}

func (v *videoDevice) close() error {
	v.img.Close()
	return v.vc.Close()
}
