package editor

import "math"

// Divisions allowed for the snap grid, in subdivisions per beat.
var Divisions = []int{1, 2, 4, 8, 16}

// ValidDivision reports whether d is one of Divisions.
func ValidDivision(d int) bool {
	for _, v := range Divisions {
		if v == d {
			return true
		}
	}
	return false
}

// SnapConfig 吸附设置
type SnapConfig struct {
	Enabled  bool `json:"enabled"`
	Division int  `json:"division"`
}

// Grid is the set of permitted times offsetMs + k*step.
type Grid struct {
	BPM      float64
	OffsetMs float64
	Division int
}

// Step returns the subdivision length in ms, or 0 when the grid is undefined.
func (g Grid) Step() float64 {
	if g.BPM <= 0 || g.Division <= 0 {
		return 0
	}
	return 60000 / g.BPM / float64(g.Division)
}

// Snap rounds t to the nearest grid line. Results are rounded to the
// microsecond so that exact grid times compare equal.
func (g Grid) Snap(t float64) float64 {
	step := g.Step()
	if step == 0 {
		return t
	}
	k := math.Round((t - g.OffsetMs) / step)
	return math.Round((g.OffsetMs+k*step)*1000) / 1000
}
