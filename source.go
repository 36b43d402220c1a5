package poseoverlay

import (
	"image"
)

// Source is a playable video frame source such as a file or webcam.
// Implementations must allow Close to be called concurrently with the other
// methods
type Source interface {
	// Ready reports if the source can supply the current frame: it is not
	// paused or ended, has buffered a decodable frame and, for a camera,
	// has delivered its first frame
	Ready() bool
	// Frame returns the current frame
	Frame() (image.Image, error)
	// Dimensions returns the native pixel size of the video, zero until
	// the video metadata is known
	Dimensions() (width, height int)
	// Close stops the source and releases its resources
	Close() error
}
