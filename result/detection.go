package result

// DetectionResult is produced once per processed frame by the detector.
// Its lifetime is scoped to that frame
type DetectionResult struct {
	// Poses in the detector's order, which is not stable across frames
	Poses []Pose
	// Masks are the optional segmentation masks, only the first is drawn
	Masks []*SegmentationMask
	// TimestampMicros is the timestamp the frame was detected with
	TimestampMicros int64
}

// FirstMask returns the first segmentation mask or nil if the result
// has none
func (r *DetectionResult) FirstMask() *SegmentationMask {

	if r == nil || len(r.Masks) == 0 {
		return nil
	}

	return r.Masks[0]
}

// Release frees all externally owned mask buffers held by the result
func (r *DetectionResult) Release() {

	if r == nil {
		return
	}

	for _, m := range r.Masks {
		m.Release()
	}
}
