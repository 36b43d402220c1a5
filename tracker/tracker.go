package tracker

import (
	"github.com/swdee/go-poseoverlay/result"
	"log"
	"sort"
	"sync"
)

// PoseTracker associates poses between frames by bounding box overlap and
// assigns each subject a stable track ID.  Landmark positions of tracked
// subjects are optionally smoothed with a Kalman filter
type PoseTracker struct {
	mu sync.Mutex
	// minIoU is the minimum box overlap for a pose to continue a track
	minIoU float32
	// maxAge is the number of consecutive frames a track may go unmatched
	// before being dropped
	maxAge int
	// kf is nil when smoothing is disabled
	kf     *KalmanFilter
	tracks []*track
	nextID int
}

// track is a subject being followed across frames
type track struct {
	id     int
	box    result.BoundingBox
	missed int
	points []*PointState
}

// Config holds the tracker parameters
type Config struct {
	// MinIoU is the association threshold, normally the runtime's
	// MinTrackingConfidence
	MinIoU float32
	// MaxAge in frames
	MaxAge int
	// Smooth enables landmark smoothing
	Smooth bool
}

// DefaultConfig returns the tracker defaults
func DefaultConfig() Config {
	return Config{
		MinIoU: 0.5,
		MaxAge: 30,
		Smooth: true,
	}
}

// NewPoseTracker returns a tracker with the given configuration
func NewPoseTracker(cfg Config) *PoseTracker {

	if cfg.MaxAge < 0 {
		cfg.MaxAge = 0
	}

	t := &PoseTracker{
		minIoU: cfg.MinIoU,
		maxAge: cfg.MaxAge,
		nextID: 1,
	}

	if cfg.Smooth {
		t.kf = NewKalmanFilter(0.005, 0.001, 0.01)
	}

	return t
}

// candidate is a possible track to pose assignment
type candidate struct {
	track int
	pose  int
	iou   float32
}

// Update assigns TrackIDs to the poses of the result in place and smooths
// their landmarks
func (t *PoseTracker) Update(res *result.DetectionResult) {

	if res == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	boxes := make([]result.BoundingBox, len(res.Poses))
	valid := make([]bool, len(res.Poses))

	for i, p := range res.Poses {
		boxes[i], valid[i] = result.ComputeBoundingBox(p.Landmarks)
	}

	// build all pairs above threshold and match greedily highest overlap first
	var cands []candidate

	for ti, tr := range t.tracks {
		for pi := range res.Poses {
			if !valid[pi] {
				continue
			}

			iou := tr.box.IoU(boxes[pi])

			if iou > 0 && iou >= t.minIoU {
				cands = append(cands, candidate{track: ti, pose: pi, iou: iou})
			}
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].iou > cands[j].iou
	})

	trackUsed := make([]bool, len(t.tracks))
	poseUsed := make([]bool, len(res.Poses))

	for _, c := range cands {
		if trackUsed[c.track] || poseUsed[c.pose] {
			continue
		}

		trackUsed[c.track] = true
		poseUsed[c.pose] = true

		tr := t.tracks[c.track]
		tr.missed = 0
		tr.box = boxes[c.pose]

		t.smooth(tr, &res.Poses[c.pose])
		res.Poses[c.pose].TrackID = tr.id
	}

	// age out unmatched tracks
	kept := t.tracks[:0]

	for i, tr := range t.tracks {
		if !trackUsed[i] {
			tr.missed++

			if tr.missed > t.maxAge {
				continue
			}
		}

		kept = append(kept, tr)
	}

	t.tracks = kept

	// unmatched poses start new tracks
	for pi := range res.Poses {
		if poseUsed[pi] || !valid[pi] {
			continue
		}

		tr := &track{
			id:  t.nextID,
			box: boxes[pi],
		}
		t.nextID++

		t.smooth(tr, &res.Poses[pi])
		res.Poses[pi].TrackID = tr.id
		t.tracks = append(t.tracks, tr)
	}
}

// smooth runs the landmarks of the pose through the track's filters
func (t *PoseTracker) smooth(tr *track, pose *result.Pose) {

	if t.kf == nil {
		return
	}

	// topology changed so filters can not carry over
	if len(tr.points) != len(pose.Landmarks) {
		tr.points = make([]*PointState, len(pose.Landmarks))

		for i, lm := range pose.Landmarks {
			tr.points[i] = t.kf.Initiate(float64(lm.X), float64(lm.Y))
		}

		return
	}

	for i := range pose.Landmarks {
		lm := &pose.Landmarks[i]
		st := tr.points[i]

		t.kf.Predict(st)

		if err := t.kf.Update(st, float64(lm.X), float64(lm.Y)); err != nil {
			log.Printf("Landmark smoothing failed, resetting track %d point %d: %v",
				tr.id, i, err)
			tr.points[i] = t.kf.Initiate(float64(lm.X), float64(lm.Y))
			continue
		}

		lm.X = float32(st.Mean[0])
		lm.Y = float32(st.Mean[1])
	}
}

// Reset drops all tracks, track IDs continue to increase so identities are
// never reused within the tracker's lifetime
func (t *PoseTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracks = nil
}

// Len returns the number of live tracks
func (t *PoseTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tracks)
}
