package render

import (
	"fmt"
	"github.com/swdee/go-poseoverlay/preprocess"
	"github.com/swdee/go-poseoverlay/result"
	"image/color"
)

// SizeFilter suppresses implausibly small or large detections by their
// normalized bounding box size
type SizeFilter struct {
	Enabled bool
	// MinSize is the smallest normalized width or height allowed
	MinSize float32
	// MaxSize is the largest normalized width or height allowed
	MaxSize float32
}

// Allow reports if the box falls within the size band
func (f SizeFilter) Allow(box result.BoundingBox) bool {

	if !f.Enabled {
		return true
	}

	w := box.Width()
	h := box.Height()

	return w >= f.MinSize && w <= f.MaxSize &&
		h >= f.MinSize && h <= f.MaxSize
}

// Style defines the parameters used for drawing the overlay
type Style struct {
	// LineThickness of the skeleton connector lines in canvas pixels
	LineThickness float64
	// PointRadius of the landmark points in canvas pixels
	PointRadius float64
	// BoxThickness of the bounding box outline in canvas pixels
	BoxThickness float64
	// MaskColor is the highlight color of the segmentation mask
	MaskColor color.RGBA
	// MaskOpacity is the global opacity multiplier applied to the mask
	MaskOpacity float64
	// DrawBoxes enables drawing the pose bounding boxes
	DrawBoxes bool
	// DrawLabels enables drawing the track ID and score above each box
	DrawLabels bool
	Font       Font
	SizeFilter SizeFilter
}

// DefaultStyle returns default style settings
func DefaultStyle() Style {
	return Style{
		LineThickness: 2,
		PointRadius:   3,
		BoxThickness:  2,
		MaskColor:     Highlight,
		MaskOpacity:   0.7,
		DrawBoxes:     true,
		DrawLabels:    false,
		Font:          DefaultFont(),
		SizeFilter: SizeFilter{
			Enabled: false,
			MinSize: 0.05,
			MaxSize: 1.0,
		},
	}
}

// Overlay renders detection results onto a transparent canvas aligned with
// the displayed video area
type Overlay struct {
	canvas     *Canvas
	style      Style
	scratch    maskScratch
	trail      *Trail
	trailStyle TrailStyle
}

// NewOverlay returns an overlay renderer with a canvas of the given size
func NewOverlay(width, height int, style Style) *Overlay {
	return &Overlay{
		canvas: NewCanvas(width, height),
		style:  style,
	}
}

// Canvas returns the canvas the overlay is drawn on
func (o *Overlay) Canvas() *Canvas {
	return o.canvas
}

// Style returns the overlay style
func (o *Overlay) Style() Style {
	return o.style
}

// Resize changes the canvas size, eg: when the output window changes
func (o *Overlay) Resize(width, height int) {

	w, h := o.canvas.Size()

	if w == width && h == height {
		return
	}

	o.canvas.Resize(width, height)
}

// Clear removes the overlay from the canvas
func (o *Overlay) Clear() {
	o.canvas.Clear()
}

// Render draws one detection result.  The canvas is always cleared first so
// stale overlays never persist, and all masks held by the result are
// released before returning regardless of the outcome.  Mask drawing
// errors are returned after the poses have been drawn
func (o *Overlay) Render(res *result.DetectionResult, videoW, videoH int) (err error) {

	defer res.Release()

	o.canvas.Clear()

	if res == nil || videoW <= 0 || videoH <= 0 || o.canvas.Empty() {
		// video metadata not loaded yet or nothing to draw on
		return nil
	}

	cw, ch := o.canvas.Size()
	o.canvas.PushTransform(preprocess.NewTransform(cw, ch, videoW, videoH))
	defer o.canvas.PopTransform()

	// the mask is a single full frame background layer so is drawn once
	// before any pose
	if mask := res.FirstMask(); mask != nil {
		if mErr := o.SegmentMask(mask, videoW, videoH); mErr != nil {
			err = fmt.Errorf("error drawing segment mask: %w", mErr)
		}
	}

	for i, pose := range res.Poses {

		box, ok := result.ComputeBoundingBox(pose.Landmarks)

		if !ok {
			continue
		}

		if !o.style.SizeFilter.Allow(box) {
			continue
		}

		clr := SubjectColor(pose.TrackID, i)

		if o.style.DrawBoxes {
			o.PoseBox(box, videoW, videoH, clr)
		}

		if o.trail != nil && pose.TrackID > 0 {
			o.trail.add(pose.TrackID, box)
			o.PoseTrail(pose.TrackID, videoW, videoH, clr)
		}

		o.PoseKeyPoints(pose, videoW, videoH)

		if o.style.DrawLabels {
			o.PoseLabel(pose, box, videoW, videoH, clr)
		}
	}

	if o.trail != nil {
		o.trail.next()
	}

	return err
}

// PoseKeyPoints draws the skeleton connector lines then the landmark points
// on top of them.  When the detector reports presence, absent landmarks and
// any connector touching them are skipped
func (o *Overlay) PoseKeyPoints(pose result.Pose, videoW, videoH int) {

	vw := float64(videoW)
	vh := float64(videoH)
	lms := pose.Landmarks
	gated := reportsPresence(lms)

	absent := func(lm result.Landmark) bool {
		return gated && lm.Presence <= 0
	}

	skel, known := SkeletonFor(len(lms))

	if known {
		for j, conn := range skel.Connections {
			a := lms[conn[0]]
			b := lms[conn[1]]

			if absent(a) || absent(b) {
				continue
			}

			o.canvas.Line(float64(a.X)*vw, float64(a.Y)*vh,
				float64(b.X)*vw, float64(b.Y)*vh,
				skel.LimbColors[j], o.style.LineThickness)
		}
	}

	for j, lm := range lms {
		if absent(lm) {
			continue
		}

		clr := White

		if known {
			clr = skel.PointColors[j]
		}

		o.canvas.FillCircle(float64(lm.X)*vw, float64(lm.Y)*vh,
			o.style.PointRadius, clr)
	}
}

// reportsPresence is true if any landmark carries a presence score, detectors
// that do not score presence leave it zero for every landmark
func reportsPresence(lms []result.Landmark) bool {

	for _, lm := range lms {
		if lm.Presence > 0 {
			return true
		}
	}

	return false
}
