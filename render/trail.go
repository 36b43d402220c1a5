package render

import (
	"github.com/swdee/go-poseoverlay/result"
	"image/color"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the trail line should be the
	// same color as that of the subject.  If set to false then use
	// the color specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness float64
	// CircleSame defines if the color of the current position circle should
	// be the same color as that of the subject.  If set to false then use
	// the color specified at CircleColor
	CircleSame   bool
	CircleColor  color.RGBA
	CircleRadius float64
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleSame:    true,
		CircleColor:   Pink,
		CircleRadius:  3,
	}
}

// trailPoint is a normalized box center
type trailPoint struct {
	x, y float32
}

// trailHistory is the movement of one tracked subject
type trailHistory struct {
	points   []trailPoint
	lastSeen uint64
}

// Trail records the recent box centers of tracked subjects so their path
// can be drawn.  Subjects without a track ID have no trail
type Trail struct {
	maxPoints int
	frame     uint64
	history   map[int]*trailHistory
}

// NewTrail returns a trail keeping up to maxPoints positions per subject.
// A subject not seen for maxPoints frames is forgotten
func NewTrail(maxPoints int) *Trail {

	if maxPoints < 2 {
		maxPoints = 2
	}

	return &Trail{
		maxPoints: maxPoints,
		history:   make(map[int]*trailHistory),
	}
}

// add records the pose position for the current frame
func (t *Trail) add(trackID int, box result.BoundingBox) {

	h, ok := t.history[trackID]

	if !ok {
		h = &trailHistory{}
		t.history[trackID] = h
	}

	h.points = append(h.points, trailPoint{
		x: (box.MinX + box.MaxX) / 2,
		y: (box.MinY + box.MaxY) / 2,
	})

	if len(h.points) > t.maxPoints {
		h.points = h.points[len(h.points)-t.maxPoints:]
	}

	h.lastSeen = t.frame
}

// next advances the frame counter and forgets subjects that have gone
func (t *Trail) next() {

	t.frame++

	for id, h := range t.history {
		if t.frame-h.lastSeen > uint64(t.maxPoints) {
			delete(t.history, id)
		}
	}
}

// Len returns the number of subjects with a trail
func (t *Trail) Len() int {
	return len(t.history)
}

// Points returns the number of recorded positions of the subject
func (t *Trail) Points(trackID int) int {

	if h, ok := t.history[trackID]; ok {
		return len(h.points)
	}

	return 0
}

// Reset clears all trail data
func (t *Trail) Reset() {
	t.history = make(map[int]*trailHistory)
}

// SetTrail enables drawing subject trails, nil disables them
func (o *Overlay) SetTrail(trail *Trail, style TrailStyle) {
	o.trail = trail
	o.trailStyle = style
}

// PoseTrail draws the trail line showing the subject's tracking history
// ending with a circle on its current position
func (o *Overlay) PoseTrail(trackID int, videoW, videoH int, objClr color.RGBA) {

	if o.trail == nil {
		return
	}

	h, ok := o.trail.history[trackID]

	if !ok || len(h.points) < 2 {
		return
	}

	style := o.trailStyle
	lineClr := objClr
	circleClr := objClr

	if !style.LineSame {
		lineClr = style.LineColor
	}

	if !style.CircleSame {
		circleClr = style.CircleColor
	}

	vw := float64(videoW)
	vh := float64(videoH)
	pts := h.points

	for i := 1; i < len(pts); i++ {
		o.canvas.Line(float64(pts[i-1].x)*vw, float64(pts[i-1].y)*vh,
			float64(pts[i].x)*vw, float64(pts[i].y)*vh,
			lineClr, style.LineThickness)
	}

	last := pts[len(pts)-1]
	o.canvas.FillCircle(float64(last.x)*vw, float64(last.y)*vh,
		style.CircleRadius, circleClr)
}
