package result

// Landmark is a single keypoint on a detected subject's skeleton.  X and Y
// are normalized to [0,1] relative to the source frame width and height
type Landmark struct {
	X float32
	Y float32
	// Z is the depth estimate if the detector provides one
	Z float32
	// Visibility is the likelihood the landmark is visible in the frame
	Visibility float32
	// Presence is the likelihood the landmark is present in the frame
	Presence float32
}

// Pose is the ordered set of landmarks for one detected subject.  The
// cardinality is fixed by the detector's skeleton topology
type Pose struct {
	Landmarks []Landmark
	// Score is the detection confidence of the subject
	Score float32
	// TrackID is a stable identifier across frames assigned by a tracker,
	// zero when the pose has not been tracked
	TrackID int
}

// Valid reports whether the pose can be drawn
func (p Pose) Valid() bool {
	return len(p.Landmarks) > 0
}

// BoundingBox is the axis aligned box enclosing a pose's landmarks in
// normalized coordinates
type BoundingBox struct {
	MinX float32
	MinY float32
	MaxX float32
	MaxY float32
}

// Width returns the normalized width of the box
func (b BoundingBox) Width() float32 {
	return b.MaxX - b.MinX
}

// Height returns the normalized height of the box
func (b BoundingBox) Height() float32 {
	return b.MaxY - b.MinY
}

// WellFormed reports whether the min coordinates do not exceed the max
func (b BoundingBox) WellFormed() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// IoU calculates the Intersection over Union of two boxes
func (b BoundingBox) IoU(other BoundingBox) float32 {

	iw := min32(b.MaxX, other.MaxX) - max32(b.MinX, other.MinX)

	if iw <= 0 {
		return 0
	}

	ih := min32(b.MaxY, other.MaxY) - max32(b.MinY, other.MinY)

	if ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := b.Width()*b.Height() + other.Width()*other.Height() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// ComputeBoundingBox returns the bounding box of the given landmarks.  The
// second return value is false when there are no landmarks, in which case
// there is no box
func ComputeBoundingBox(landmarks []Landmark) (BoundingBox, bool) {

	if len(landmarks) == 0 {
		return BoundingBox{}, false
	}

	box := BoundingBox{
		MinX: landmarks[0].X,
		MinY: landmarks[0].Y,
		MaxX: landmarks[0].X,
		MaxY: landmarks[0].Y,
	}

	for _, lm := range landmarks[1:] {
		box.MinX = min32(box.MinX, lm.X)
		box.MinY = min32(box.MinY, lm.Y)
		box.MaxX = max32(box.MaxX, lm.X)
		box.MaxY = max32(box.MaxY, lm.Y)
	}

	// NaN coordinates fail every comparison above and leave a box that
	// is not well formed
	if !box.WellFormed() {
		return BoundingBox{}, false
	}

	return box, true
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
