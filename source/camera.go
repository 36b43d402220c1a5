package source

import (
	"fmt"
	"image"
)

// Camera streams frames from a webcam.  Opening the device succeeds before
// any frame is delivered so readiness is latched on the first frame read
type Camera struct {
	id  int
	cap *capture
}

// NewCamera opens the webcam with the given device index
func NewCamera(id int) (*Camera, error) {

	dev, err := openCamera(id)

	if err != nil {
		return nil, err
	}

	return newCamera(id, dev), nil
}

func newCamera(id int, dev device) *Camera {
	// the device read blocks at the camera frame rate
	return &Camera{
		id:  id,
		cap: newCapture(dev, 0, false),
	}
}

// Kind returns the source type
func (c *Camera) Kind() string {
	return "camera"
}

// String returns the camera name
func (c *Camera) String() string {
	return fmt.Sprintf("camera %d", c.id)
}

// Ready reports if the camera has delivered its first frame
func (c *Camera) Ready() bool {
	return c.cap.ready()
}

// Frame returns the most recent camera frame
func (c *Camera) Frame() (image.Image, error) {
	return c.cap.latest()
}

// Dimensions returns the camera frame size
func (c *Camera) Dimensions() (int, int) {
	return c.cap.dimensions()
}

// Close stops streaming and releases the device
func (c *Camera) Close() error {
	return c.cap.close()
}
