package emitter

import (
	"encoding/json"
	"github.com/swdee/go-poseoverlay/result"
)

// Message is the JSON document published for each frame
type Message struct {
	Instance        string        `json:"instance"`
	TimestampMicros int64         `json:"timestamp_us"`
	Poses           []PoseMessage `json:"poses"`
}

// PoseMessage is a single subject
type PoseMessage struct {
	TrackID   int          `json:"track_id,omitempty"`
	Score     float32      `json:"score"`
	Box       [4]float32   `json:"box"` // min x, min y, max x, max y
	Landmarks [][5]float32 `json:"landmarks"`
}

// Marshal encodes the poses of the result, masks are not published.  Poses
// without landmarks are left out
func Marshal(instance string, res *result.DetectionResult) ([]byte, error) {

	msg := Message{
		Instance:        instance,
		TimestampMicros: res.TimestampMicros,
		Poses:           make([]PoseMessage, 0, len(res.Poses)),
	}

	for _, p := range res.Poses {
		box, ok := result.ComputeBoundingBox(p.Landmarks)

		if !ok {
			continue
		}

		pm := PoseMessage{
			TrackID:   p.TrackID,
			Score:     p.Score,
			Box:       [4]float32{box.MinX, box.MinY, box.MaxX, box.MaxY},
			Landmarks: make([][5]float32, len(p.Landmarks)),
		}

		for i, lm := range p.Landmarks {
			pm.Landmarks[i] = [5]float32{lm.X, lm.Y, lm.Z, lm.Visibility, lm.Presence}
		}

		msg.Poses = append(msg.Poses, pm)
	}

	return json.Marshal(msg)
}
