package render

import (
	"fmt"
	"github.com/swdee/go-poseoverlay/result"
	"image"
	"image/color"
	"math"
)

// PoseBox draws the stroked bounding box of a pose.  Coordinates are scaled
// by the native video dimensions, the canvas transform maps them onto the
// canvas
func (o *Overlay) PoseBox(box result.BoundingBox, videoW, videoH int, clr color.RGBA) {

	vw := float64(videoW)
	vh := float64(videoH)

	o.canvas.StrokeRect(float64(box.MinX)*vw, float64(box.MinY)*vh,
		float64(box.Width())*vw, float64(box.Height())*vh,
		clr, o.style.BoxThickness)
}

// PoseLabel draws the pose's track ID and score above its bounding box
func (o *Overlay) PoseLabel(pose result.Pose, box result.BoundingBox,
	videoW, videoH int, clr color.RGBA) {

	text := fmt.Sprintf("%.2f", pose.Score)

	if pose.TrackID > 0 {
		text = fmt.Sprintf("#%d %.2f", pose.TrackID, pose.Score)
	}

	x, y := o.canvas.Transform().Apply(float64(box.MinX)*float64(videoW),
		float64(box.MinY)*float64(videoH))

	half := int(math.Ceil(o.style.BoxThickness / 2))

	o.canvas.Label(text, image.Pt(int(x)-half, int(y)-half), clr, o.style.Font)
}
