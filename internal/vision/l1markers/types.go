package l1markers

import (
	"time"

	"github.com/golang/geo/r2"
)

// MarkerObservation is one detected marker in one frame. Corners are in
// image pixels, in the detector's order; Corners[0]->Corners[1] is the
// printed forward edge of the marker.
type MarkerObservation struct {
	ID      int
	Corners [4]r2.Point
}

// Center returns the mean of the four corners.
func (m MarkerObservation) Center() r2.Point {
	var sum r2.Point
	for _, c := range m.Corners {
		sum = sum.Add(c)
	}
	return sum.Mul(0.25)
}

// Frame is the detector output for one camera frame.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Markers   []MarkerObservation
}

// IDs returns the marker IDs in detection order.
func (f Frame) IDs() []int {
	ids := make([]int, len(f.Markers))
	for i, m := range f.Markers {
		ids[i] = m.ID
	}
	return ids
}
