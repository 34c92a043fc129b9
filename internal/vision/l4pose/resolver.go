package l4pose

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/tablepose/internal/vision/l3geometry"
)

// orientationProbePx is how far along the marker's forward edge the second
// orientation point is placed, in image pixels.
const orientationProbePx = 20.0

// MarkerPose is a marker pose in table coordinates.
type MarkerPose struct {
	X, Y  float64 // physical units, origin bottom-left
	Angle float64 // radians in (-pi, pi]

	// PixelX, PixelY are the projected centre in output-rectangle pixels
	// (top-left origin), kept for diagnostics and overlays.
	PixelX, PixelY float64
}

// ResolveMarker computes the table pose of a marker from its four image
// corners. Only projection failures are returned, wrapping
// vision.ErrProjectionFailure.
//
// The heading is measured in physical table units, not on the output-pixel
// vector. When the output rectangle does not share the table's aspect ratio
// the two differ: on a 30x30 table rectified to 800x600 px, a marker whose
// forward edge runs at 45 degrees on the table reads -pi/4 here, whereas
// the raw pixel vector would give about -36.87 degrees.
func ResolveMarker(corners [4]r2.Point, h *l3geometry.Homography) (MarkerPose, error) {
	center := l3geometry.Centroid(corners)

	projected, err := h.Project(center)
	if err != nil {
		return MarkerPose{}, fmt.Errorf("project marker centre: %w", err)
	}
	phys := h.ToPhysical(projected)

	edge := corners[1].Sub(corners[0])
	imageAngle := math.Atan2(edge.Y, edge.X)
	probe := center.Add(r2.Point{X: math.Cos(imageAngle), Y: math.Sin(imageAngle)}.Mul(orientationProbePx))

	tip, err := h.Project(probe)
	if err != nil {
		return MarkerPose{}, fmt.Errorf("project marker heading: %w", err)
	}
	d := tip.Sub(projected)
	d = r2.Point{X: d.X * h.ScaleX, Y: d.Y * h.ScaleY}

	return MarkerPose{
		X:      phys.X,
		Y:      h.PhysicalHeight - phys.Y,
		Angle:  NormalizeAngle(math.Atan2(-d.Y, d.X)),
		PixelX: projected.X,
		PixelY: projected.Y,
	}, nil
}
