package poseoverlay

import (
	"context"
	"errors"
	"fmt"
	"github.com/swdee/go-poseoverlay/result"
	"image"
	"sync"
)

var (
	// ErrNotInitialized is returned when detecting before the detector has
	// been successfully initialized
	ErrNotInitialized = errors.New("detector not initialized")
	// ErrClosed is returned when using a Runtime after Close
	ErrClosed = errors.New("runtime closed")
)

// Detector is the pose inference capability.  Implementations fetch any
// model assets they need during Initialize
type Detector interface {
	// Initialize loads the model with the given options
	Initialize(ctx context.Context, opts Options) error
	// Detect runs pose detection on the frame.  Timestamps must increase
	// between calls in video running mode
	Detect(frame image.Image, timestampMicros int64) (*result.DetectionResult, error)
	// Close frees the model resources
	Close() error
}

// Tracker assigns stable identities to poses across frames
type Tracker interface {
	Update(res *result.DetectionResult)
	Reset()
}

// Runtime owns a Detector and its lifecycle.  It is passed explicitly to the
// Scheduler, multiple independent runtimes may exist at once
type Runtime struct {
	detector Detector
	opts     Options
	tracker  Tracker

	mu          sync.Mutex
	initialized bool
	closed      bool
}

// NewRuntime returns a runtime for the detector configured with the given
// options.  Initialize must be called before Detect
func NewRuntime(detector Detector, opts Options) (*Runtime, error) {

	if detector == nil {
		return nil, errors.New("detector is nil")
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	return &Runtime{
		detector: detector,
		opts:     opts,
	}, nil
}

// SetTracker sets the tracker applied to detection results in video
// running mode
func (r *Runtime) SetTracker(t Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker = t
}

// Options returns the detector options
func (r *Runtime) Options() Options {
	return r.opts
}

// Initialize initializes the detector.  A failure is fatal, detection can
// not start and the call is not retried
func (r *Runtime) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if r.initialized {
		return nil
	}

	if err := r.detector.Initialize(ctx, r.opts); err != nil {
		return fmt.Errorf("error initializing detector: %w", err)
	}

	r.initialized = true

	return nil
}

// Initialized reports if the detector is ready for use
func (r *Runtime) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.initialized && !r.closed
}

// Detect runs pose detection on the frame.  The result is capped to the
// configured number of poses and masks are dropped if they were not
// requested
func (r *Runtime) Detect(frame image.Image, timestampMicros int64) (*result.DetectionResult, error) {

	r.mu.Lock()
	closed, initialized, tracker := r.closed, r.initialized, r.tracker
	r.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	if !initialized {
		return nil, ErrNotInitialized
	}

	res, err := r.detector.Detect(frame, timestampMicros)

	if err != nil {
		return nil, err
	}

	if res == nil {
		res = &result.DetectionResult{}
	}

	res.TimestampMicros = timestampMicros

	if len(res.Poses) > r.opts.NumPoses {
		res.Poses = res.Poses[:r.opts.NumPoses]
	}

	if !r.opts.OutputSegmentationMasks && len(res.Masks) > 0 {
		res.Release()
		res.Masks = nil
	}

	if tracker != nil && r.opts.RunningMode == RunningModeVideo {
		tracker.Update(res)
	}

	return res, nil
}

// ResetTracking clears tracking history, eg: when the video source changes
func (r *Runtime) ResetTracking() {
	r.mu.Lock()
	tracker := r.tracker
	r.mu.Unlock()

	if tracker != nil {
		tracker.Reset()
	}
}

// Close frees the detector resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	r.initialized = false

	return r.detector.Close()
}
