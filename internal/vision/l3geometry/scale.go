package l3geometry

import "github.com/golang/geo/r2"

// ToPhysical converts output-rectangle pixels into physical units. The
// origin stays at the top-left of the table; axis flipping belongs to the
// pose layer.
func (h *Homography) ToPhysical(p r2.Point) r2.Point {
	return r2.Point{X: p.X * h.ScaleX, Y: p.Y * h.ScaleY}
}

// ToOutputPixels is the inverse of ToPhysical.
func (h *Homography) ToOutputPixels(p r2.Point) r2.Point {
	return r2.Point{X: p.X / h.ScaleX, Y: p.Y / h.ScaleY}
}
