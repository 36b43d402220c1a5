package detector

import (
	"github.com/swdee/go-poseoverlay"
	"github.com/swdee/go-poseoverlay/preprocess"
	"github.com/swdee/go-poseoverlay/result"
	"sort"
)

// DecodeParams are the YOLOv8 pose output tensor parameters
type DecodeParams struct {
	// NMSThreshold is the maximum allowed Intersection Over Union (IoU)
	// between two subject boxes for both to be kept
	NMSThreshold float32
	// KeyPoints is the number of keypoints per subject the model outputs
	KeyPoints int
}

// COCOParams returns the decode parameters for a model trained on the COCO
// keypoints dataset featuring:
// - NMS Threshold: 0.45
// - KeyPoints Number: 17
func COCOParams() DecodeParams {
	return DecodeParams{
		NMSThreshold: 0.45,
		KeyPoints:    17,
	}
}

// candidate is a subject that passed the confidence filter
type candidate struct {
	box    [4]float32 // x1, y1, x2, y2 in model input pixels
	score  float32
	anchor int
}

// DecodePoses converts the raw model output into poses.  The output is
// laid out channel first as [4+1+KeyPoints*3][anchors] with boxes as centre
// x, centre y, width, height in model input pixels followed by the subject
// score and keypoint triples of x, y, score.  The transform maps video
// pixels onto the model input and is used to normalize keypoints to the
// source frame
func DecodePoses(output []float32, anchors int, p DecodeParams,
	opts poseoverlay.Options, tf preprocess.Transform) []result.Pose {

	channels := 5 + p.KeyPoints*3

	if anchors <= 0 || len(output) < channels*anchors || !tf.Valid() {
		return nil
	}

	at := func(ch, a int) float32 {
		return output[ch*anchors+a]
	}

	var cands []candidate

	for a := 0; a < anchors; a++ {
		score := at(4, a)

		if score < opts.MinDetectionConfidence {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)

		cands = append(cands, candidate{
			box:    [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
			score:  score,
			anchor: a,
		})
	}

	keep := nms(cands, p.NMSThreshold)

	vw, vh := tf.VideoSize()
	poses := make([]result.Pose, 0, len(keep))

	for _, c := range keep {
		if len(poses) >= opts.NumPoses {
			break
		}

		pose := result.Pose{
			Landmarks: make([]result.Landmark, p.KeyPoints),
			Score:     c.score,
		}

		present := 0

		for k := 0; k < p.KeyPoints; k++ {
			base := 5 + k*3
			x, y := tf.Invert(float64(at(base, c.anchor)), float64(at(base+1, c.anchor)))
			conf := at(base+2, c.anchor)

			lm := result.Landmark{
				X: float32(x / float64(vw)),
				Y: float32(y / float64(vh)),
			}

			// landmarks keep their position to preserve the skeleton
			// topology but are flagged as absent below the threshold
			if conf >= opts.MinPresenceConfidence {
				lm.Visibility = conf
				lm.Presence = conf
				present++
			}

			pose.Landmarks[k] = lm
		}

		if present == 0 {
			continue
		}

		poses = append(poses, pose)
	}

	return poses
}

// nms sorts candidates by score and performs Non-Maximum Suppression
// returning the kept candidates highest score first
func nms(cands []candidate, threshold float32) []candidate {

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	suppressed := make([]bool, len(cands))
	keep := make([]candidate, 0, len(cands))

	for i := range cands {
		if suppressed[i] {
			continue
		}

		keep = append(keep, cands[i])

		for j := i + 1; j < len(cands); j++ {
			if suppressed[j] {
				continue
			}

			if overlap(cands[i].box, cands[j].box) > threshold {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// overlap works out the Intersection over Union (IoU) of two boxes
func overlap(a, b [4]float32) float32 {

	w := min(a[2], b[2]) - max(a[0], b[0])
	h := min(a[3], b[3]) - max(a[1], b[1])

	if w <= 0 || h <= 0 {
		return 0
	}

	inter := w * h
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}
