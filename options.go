package poseoverlay

import (
	"fmt"
)

// RunningMode defines if the detector processes a continuous stream of
// frames or independent single images
type RunningMode int

const (
	// RunningModeVideo processes frames as a stream with increasing
	// timestamps, allowing subjects to be tracked between frames
	RunningModeVideo RunningMode = iota
	// RunningModeImage processes every frame independently
	RunningModeImage
)

// String returns a readable name of the running mode
func (m RunningMode) String() string {
	switch m {
	case RunningModeVideo:
		return "video"
	case RunningModeImage:
		return "image"
	default:
		return fmt.Sprintf("unknown running mode %d", int(m))
	}
}

// ParseRunningMode converts a running mode name to a RunningMode
func ParseRunningMode(s string) (RunningMode, error) {
	switch s {
	case "video", "":
		return RunningModeVideo, nil
	case "image":
		return RunningModeImage, nil
	default:
		return 0, fmt.Errorf("unknown running mode %q, use 'video' or 'image'", s)
	}
}

// Options are the detector configuration parameters
type Options struct {
	// NumPoses is the maximum number of subjects detected per frame
	NumPoses int
	// MinDetectionConfidence is the minimum score for a subject to be
	// considered detected
	MinDetectionConfidence float32
	// MinPresenceConfidence is the minimum score for a landmark to be
	// considered present
	MinPresenceConfidence float32
	// MinTrackingConfidence is the minimum overlap for a subject to be
	// considered the same subject as in the previous frame
	MinTrackingConfidence float32
	// RunningMode is either streaming video or single shot images
	RunningMode RunningMode
	// OutputSegmentationMasks enables producing a subject confidence mask
	OutputSegmentationMasks bool
}

// DefaultOptions returns Options configured with:
// - Number of Poses: 2
// - Detection, Presence and Tracking Confidence: 0.5
// - Running Mode: video
// - Segmentation Masks: enabled
func DefaultOptions() Options {
	return Options{
		NumPoses:                2,
		MinDetectionConfidence:  0.5,
		MinPresenceConfidence:   0.5,
		MinTrackingConfidence:   0.5,
		RunningMode:             RunningModeVideo,
		OutputSegmentationMasks: true,
	}
}

// Validate checks the option values are within range
func (o Options) Validate() error {

	if o.NumPoses < 1 {
		return fmt.Errorf("num poses must be at least 1, got %d", o.NumPoses)
	}

	thresholds := []struct {
		name string
		val  float32
	}{
		{"min detection confidence", o.MinDetectionConfidence},
		{"min presence confidence", o.MinPresenceConfidence},
		{"min tracking confidence", o.MinTrackingConfidence},
	}

	for _, th := range thresholds {
		if !(th.val >= 0 && th.val <= 1) {
			return fmt.Errorf("%s must be in range [0,1], got %f", th.name, th.val)
		}
	}

	if o.RunningMode != RunningModeVideo && o.RunningMode != RunningModeImage {
		return fmt.Errorf("invalid running mode: %s", o.RunningMode)
	}

	return nil
}
