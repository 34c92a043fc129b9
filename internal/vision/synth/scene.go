// Package synth generates detection frames for a table seen by a camera
// under a known perspective. It drives the gen-detections tool and the
// end-to-end tests.
package synth

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/tablepose/internal/vision/l1markers"
	"github.com/banshee-data/tablepose/internal/vision/l3geometry"
)

// Scene maps table coordinates (origin bottom-left, y away from the
// camera's top edge) to image pixels.
type Scene struct {
	CornerIDs  [4]int  // TL, TR, BR, BL
	Width      float64 // physical units
	Height     float64
	MarkerSize float64 // marker edge length, physical units

	h *l3geometry.Homography
}

// NewScene builds a scene whose corner marker centres appear at imageQuad
// (TL, TR, BR, BL) in the image.
func NewScene(imageQuad [4]r2.Point, cornerIDs [4]int, width, height, markerSize float64) (*Scene, error) {
	if !(markerSize > 0) {
		return nil, fmt.Errorf("marker size %g must be positive", markerSize)
	}
	out := l3geometry.OutputSizeForTable(width, height, 1000)
	h, err := l3geometry.ComputeHomography(imageQuad, width, height, out)
	if err != nil {
		return nil, err
	}
	return &Scene{
		CornerIDs:  cornerIDs,
		Width:      width,
		Height:     height,
		MarkerSize: markerSize,
		h:          h,
	}, nil
}

// ImagePoint returns the image pixel showing the table point (x, y).
func (s *Scene) ImagePoint(x, y float64) (r2.Point, error) {
	out := r2.Point{X: x / s.h.ScaleX, Y: (s.Height - y) / s.h.ScaleY}
	return s.h.Unproject(out)
}

// Marker returns the detection of marker id centred at (x, y) with its
// forward edge (corner 0 to corner 1) pointing along theta.
func (s *Scene) Marker(id int, x, y, theta float64) (l1markers.MarkerObservation, error) {
	half := s.MarkerSize / 2
	sin, cos := math.Sincos(theta)
	local := [4]r2.Point{{X: -half, Y: half}, {X: half, Y: half}, {X: half, Y: -half}, {X: -half, Y: -half}}

	m := l1markers.MarkerObservation{ID: id}
	for i, p := range local {
		px, err := s.ImagePoint(x+p.X*cos-p.Y*sin, y+p.X*sin+p.Y*cos)
		if err != nil {
			return l1markers.MarkerObservation{}, fmt.Errorf("marker %d: %w", id, err)
		}
		m.Corners[i] = px
	}
	return m, nil
}

// CornerMarker returns the detection of the corner marker at position i
// (0=TL, 1=TR, 2=BR, 3=BL), axis-aligned.
func (s *Scene) CornerMarker(i int) (l1markers.MarkerObservation, error) {
	pos := [4]r2.Point{{X: 0, Y: s.Height}, {X: s.Width, Y: s.Height}, {X: s.Width, Y: 0}, {X: 0, Y: 0}}
	if i < 0 || i >= len(pos) {
		return l1markers.MarkerObservation{}, fmt.Errorf("corner index %d out of range", i)
	}
	return s.Marker(s.CornerIDs[i], pos[i].X, pos[i].Y, 0)
}
