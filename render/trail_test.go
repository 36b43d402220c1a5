package render

import (
	"github.com/swdee/go-poseoverlay/result"
	"testing"
)

func trackedPose(id int, x, y float32) result.Pose {
	p := singlePoint(x, y)
	p.TrackID = id
	return p
}

func TestTrailRecordsTrackedPoses(t *testing.T) {

	o := NewOverlay(100, 100, DefaultStyle())
	trail := NewTrail(3)
	o.SetTrail(trail, DefaultTrailStyle())

	for i := 0; i < 5; i++ {
		res := &result.DetectionResult{
			Poses: []result.Pose{
				trackedPose(1, 0.1+float32(i)*0.1, 0.5),
				singlePoint(0.5, 0.5),
			},
		}

		if err := o.Render(res, 100, 100); err != nil {
			t.Fatalf("render failed: %v", err)
		}
	}

	// untracked pose has no trail and history is capped
	if trail.Len() != 1 || trail.Points(1) != 3 {
		t.Fatalf("expected 1 trail of 3 points, got %d trails of %d", trail.Len(), trail.Points(1))
	}

	// segment between the last two positions at x=40 and x=50
	if alphaAt(o.Canvas(), 45, 50) == 0 {
		t.Error("expected trail line to be drawn")
	}
}

func TestTrailForgetsGoneSubjects(t *testing.T) {

	o := NewOverlay(100, 100, DefaultStyle())
	trail := NewTrail(2)
	o.SetTrail(trail, DefaultTrailStyle())

	o.Render(&result.DetectionResult{Poses: []result.Pose{trackedPose(7, 0.5, 0.5)}}, 100, 100)

	for i := 0; i < 3; i++ {
		o.Render(&result.DetectionResult{}, 100, 100)
	}

	if trail.Len() != 0 {
		t.Errorf("expected trail to be forgotten, got %d", trail.Len())
	}

	o.Render(&result.DetectionResult{Poses: []result.Pose{trackedPose(8, 0.5, 0.5)}}, 100, 100)
	trail.Reset()

	if trail.Len() != 0 || trail.Points(8) != 0 {
		t.Errorf("expected reset trail to be empty")
	}
}
