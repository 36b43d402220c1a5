package detector

import (
	"github.com/swdee/go-poseoverlay"
	"github.com/swdee/go-poseoverlay/preprocess"
	"math"
	"testing"
)

// subject describes one anchor of a synthetic model output
type subject struct {
	cx, cy, w, h float32
	score        float32
	kps          [][3]float32
}

// buildOutput lays out subjects channel first as the model does
func buildOutput(keyPoints int, subjects []subject) []float32 {

	anchors := len(subjects)
	channels := 5 + keyPoints*3
	out := make([]float32, channels*anchors)

	for a, s := range subjects {
		out[0*anchors+a] = s.cx
		out[1*anchors+a] = s.cy
		out[2*anchors+a] = s.w
		out[3*anchors+a] = s.h
		out[4*anchors+a] = s.score

		for k, kp := range s.kps {
			for i := 0; i < 3; i++ {
				out[(5+k*3+i)*anchors+a] = kp[i]
			}
		}
	}

	return out
}

func testParams() DecodeParams {
	return DecodeParams{NMSThreshold: 0.45, KeyPoints: 2}
}

func TestDecodeNormalizesKeyPoints(t *testing.T) {

	// 640x480 video letterboxed into a 640x640 input, 80 pixels padding top
	tf := preprocess.NewTransform(640, 640, 640, 480)

	out := buildOutput(2, []subject{
		{cx: 320, cy: 320, w: 100, h: 200, score: 0.9,
			kps: [][3]float32{{320, 320, 0.8}, {160, 80, 0.9}}},
	})

	opts := poseoverlay.DefaultOptions()
	poses := DecodePoses(out, 1, testParams(), opts, tf)

	if len(poses) != 1 {
		t.Fatalf("expected 1 pose, got %d", len(poses))
	}

	lms := poses[0].Landmarks

	expect := [][2]float32{{0.5, 0.5}, {0.25, 0}}

	for i, e := range expect {
		if math.Abs(float64(lms[i].X-e[0])) > 1e-5 || math.Abs(float64(lms[i].Y-e[1])) > 1e-5 {
			t.Errorf("landmark %d expected %v, got (%v, %v)", i, e, lms[i].X, lms[i].Y)
		}
	}

	if poses[0].Score != 0.9 {
		t.Errorf("expected score 0.9, got %v", poses[0].Score)
	}
}

func TestDecodeThresholdsAndCap(t *testing.T) {

	tf := preprocess.NewTransform(640, 640, 640, 640)
	kps := [][3]float32{{10, 10, 0.9}, {20, 20, 0.9}}

	subjects := []subject{
		{cx: 100, cy: 100, w: 50, h: 50, score: 0.6, kps: kps},
		{cx: 300, cy: 300, w: 50, h: 50, score: 0.95, kps: kps},
		{cx: 500, cy: 500, w: 50, h: 50, score: 0.8, kps: kps},
		// below detection confidence
		{cx: 200, cy: 500, w: 50, h: 50, score: 0.3, kps: kps},
		// overlaps the best subject and is suppressed
		{cx: 302, cy: 302, w: 50, h: 50, score: 0.7, kps: kps},
	}

	out := buildOutput(2, subjects)

	tests := []struct {
		name     string
		numPoses int
		expect   []float32
	}{
		{"capped", 2, []float32{0.95, 0.8}},
		{"all kept", 10, []float32{0.95, 0.8, 0.6}},
	}

	for _, tc := range tests {
		opts := poseoverlay.DefaultOptions()
		opts.NumPoses = tc.numPoses

		poses := DecodePoses(out, len(subjects), testParams(), opts, tf)

		if len(poses) != len(tc.expect) {
			t.Errorf("%s: expected %d poses, got %d", tc.name, len(tc.expect), len(poses))
			continue
		}

		for i, s := range tc.expect {
			if poses[i].Score != s {
				t.Errorf("%s: pose %d expected score %v, got %v", tc.name, i, s, poses[i].Score)
			}
		}
	}
}

func TestDecodePresence(t *testing.T) {

	tf := preprocess.NewTransform(640, 640, 640, 640)

	out := buildOutput(2, []subject{
		{cx: 100, cy: 100, w: 50, h: 50, score: 0.9,
			kps: [][3]float32{{10, 10, 0.9}, {20, 20, 0.2}}},
		{cx: 400, cy: 400, w: 50, h: 50, score: 0.9,
			kps: [][3]float32{{10, 10, 0.1}, {20, 20, 0.2}}},
	})

	poses := DecodePoses(out, 2, testParams(), poseoverlay.DefaultOptions(), tf)

	// second subject has no present landmarks
	if len(poses) != 1 {
		t.Fatalf("expected 1 pose, got %d", len(poses))
	}

	lms := poses[0].Landmarks

	if len(lms) != 2 {
		t.Fatalf("expected topology to be kept with 2 landmarks, got %d", len(lms))
	}

	if lms[0].Presence != 0.9 || lms[0].Visibility != 0.9 {
		t.Errorf("expected first landmark present, got %+v", lms[0])
	}

	if lms[1].Presence != 0 || lms[1].Visibility != 0 {
		t.Errorf("expected second landmark absent, got %+v", lms[1])
	}
}

func TestDecodeInvalidInput(t *testing.T) {

	opts := poseoverlay.DefaultOptions()
	tf := preprocess.NewTransform(640, 640, 640, 640)

	if p := DecodePoses(nil, 10, testParams(), opts, tf); p != nil {
		t.Errorf("expected no poses for short output, got %d", len(p))
	}

	out := buildOutput(2, []subject{{cx: 1, cy: 1, w: 1, h: 1, score: 1}})

	if p := DecodePoses(out, 1, testParams(), opts, preprocess.Transform{}); p != nil {
		t.Errorf("expected no poses for unknown video size, got %d", len(p))
	}
}

func TestOverlap(t *testing.T) {

	tests := []struct {
		a, b   [4]float32
		expect float32
	}{
		{[4]float32{0, 0, 10, 10}, [4]float32{0, 0, 10, 10}, 1},
		{[4]float32{0, 0, 10, 10}, [4]float32{20, 20, 30, 30}, 0},
		{[4]float32{0, 0, 10, 10}, [4]float32{5, 0, 15, 10}, 1.0 / 3},
	}

	for i, tc := range tests {
		if got := overlap(tc.a, tc.b); math.Abs(float64(got-tc.expect)) > 1e-6 {
			t.Errorf("case %d expected %v, got %v", i, tc.expect, got)
		}
	}
}
