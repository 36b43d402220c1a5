package render

import (
	"image/color"
)

// Skeleton defines a detector's landmark topology
type Skeleton struct {
	Name string
	// Points is the number of landmarks in a pose
	Points int
	// Connections are the zero based landmark index pairs to draw lines
	// between
	Connections [][2]int
	// LimbColors correspond to the Connections
	LimbColors []color.RGBA
	// PointColors correspond to each landmark
	PointColors []color.RGBA
}

/* COCO skeleton keypoints
0: Nose
1: Left Eye
2: Right Eye
3: Left Ear
4: Right Ear
5: Left Shoulder
6: Right Shoulder
7: Left Elbow
8: Right Elbow
9: Left Wrist
10: Right Wrist
11: Left Hip
12: Right Hip
13: Left Knee
14: Right Knee
15: Left Ankle
16: Right Ankle
*/

// COCO is the 17 keypoint skeleton produced by YOLO pose models
var COCO = Skeleton{
	Name:   "coco",
	Points: 17,
	Connections: [][2]int{
		{15, 13}, {13, 11}, {16, 14}, {14, 12}, {11, 12}, {5, 11}, {6, 12},
		{5, 6}, {5, 7}, {6, 8}, {7, 9}, {8, 10}, {1, 2}, {0, 1}, {0, 2},
		{1, 3}, {2, 4}, {3, 5}, {4, 6},
	},
	LimbColors: []color.RGBA{
		posePalette[0], posePalette[0], posePalette[0], posePalette[0], posePalette[7],
		posePalette[7], posePalette[7], posePalette[9], posePalette[9], posePalette[9],
		posePalette[9], posePalette[9], posePalette[16], posePalette[16], posePalette[16],
		posePalette[16], posePalette[16], posePalette[16], posePalette[16],
	},
	PointColors: []color.RGBA{
		posePalette[16], posePalette[16], posePalette[16], posePalette[16], posePalette[16],
		posePalette[9], posePalette[9], posePalette[9], posePalette[9], posePalette[9],
		posePalette[9], posePalette[0], posePalette[0], posePalette[0], posePalette[0],
		posePalette[0], posePalette[0],
	},
}

// BlazePose is the 33 landmark skeleton.  Odd landmarks are on the left of
// the body, even ones on the right, 0 is the nose
var BlazePose = newSidedSkeleton("blazepose", 33, [][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 7}, {0, 4}, {4, 5}, {5, 6}, {6, 8},
	{9, 10}, {11, 12}, {11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21},
	{17, 19}, {12, 14}, {14, 16}, {16, 18}, {16, 20}, {16, 22}, {18, 20},
	{11, 23}, {12, 24}, {23, 24}, {23, 25}, {24, 26}, {25, 27}, {26, 28},
	{27, 29}, {28, 30}, {29, 31}, {30, 32}, {27, 31}, {28, 32},
})

// skeletons known to the renderer, matched on landmark count
var skeletons = []Skeleton{COCO, BlazePose}

// newSidedSkeleton builds a skeleton colored by body side using the odd is
// left, even is right landmark convention
func newSidedSkeleton(name string, points int, conns [][2]int) Skeleton {

	side := func(i int) color.RGBA {
		switch {
		case i == 0:
			return centerColor
		case i%2 == 1:
			return leftColor
		default:
			return rightColor
		}
	}

	s := Skeleton{
		Name:        name,
		Points:      points,
		Connections: conns,
		LimbColors:  make([]color.RGBA, len(conns)),
		PointColors: make([]color.RGBA, points),
	}

	for i := range s.PointColors {
		s.PointColors[i] = side(i)
	}

	for i, c := range conns {
		a, b := side(c[0]), side(c[1])

		if a == b {
			s.LimbColors[i] = a
		} else {
			s.LimbColors[i] = centerColor
		}
	}

	return s
}

// SkeletonFor returns the skeleton topology for a pose with the given
// number of landmarks.  The second return value is false when the topology
// is unknown, in which case only the landmark points can be drawn
func SkeletonFor(points int) (Skeleton, bool) {

	for _, s := range skeletons {
		if s.Points == points {
			return s, true
		}
	}

	return Skeleton{}, false
}
