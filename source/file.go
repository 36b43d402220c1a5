package source

import (
	"image"
	"time"
)

// defaultFPS is used when a video does not report its frame rate
const defaultFPS = 25

// FileOptions are the playback settings for a video file
type FileOptions struct {
	// Loop restarts playback from the first frame on reaching the end
	Loop bool
	// FPS overrides the frame rate reported by the file when non zero
	FPS float64
}

// File plays a video file paced at its native frame rate
type File struct {
	path string
	cap  *capture
}

// NewFile opens the video file and starts decoding
func NewFile(path string, opts FileOptions) (*File, error) {

	dev, err := openFile(path)

	if err != nil {
		return nil, err
	}

	return newFile(path, dev, opts), nil
}

func newFile(path string, dev device, opts FileOptions) *File {

	fps := opts.FPS

	if fps <= 0 {
		fps = dev.fps()
	}

	if fps <= 0 {
		fps = defaultFPS
	}

	interval := time.Duration(float64(time.Second) / fps)

	return &File{
		path: path,
		cap:  newCapture(dev, interval, opts.Loop),
	}
}

// Kind returns the source type
func (f *File) Kind() string {
	return "file"
}

// Path returns the file the video is played from
func (f *File) Path() string {
	return f.path
}

// Ready reports if a frame is buffered and playback is neither paused nor
// ended
func (f *File) Ready() bool {
	return f.cap.ready()
}

// Frame returns the current frame
func (f *File) Frame() (image.Image, error) {
	return f.cap.latest()
}

// Dimensions returns the native video size
func (f *File) Dimensions() (int, int) {
	return f.cap.dimensions()
}

// Pause halts decoding, the source is not ready whilst paused
func (f *File) Pause() {
	f.cap.setPaused(true)
}

// Resume continues decoding after Pause
func (f *File) Resume() {
	f.cap.setPaused(false)
}

// Paused reports if playback is paused
func (f *File) Paused() bool {
	return f.cap.isPaused()
}

// Ended reports if playback reached the end of a non looping video
func (f *File) Ended() bool {
	return f.cap.hasEnded()
}

// Dropped returns the number of decoded frames that were never displayed
func (f *File) Dropped() uint64 {
	return f.cap.dropped()
}

// Close stops playback and releases the video
func (f *File) Close() error {
	return f.cap.close()
}
