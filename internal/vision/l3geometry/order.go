package l3geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Corner indices of an ordered quadrilateral.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// OrderCorners returns the four points ordered as
// [top-left, top-right, bottom-right, bottom-left] in image coordinates
// (x grows right, y grows down).
//
// Top-left minimises x+y and bottom-right maximises it; ties go to the lesser
// y for top-left and the greater y for bottom-right. Of the two remaining
// points, top-right is the one on the clockwise side of the top-left to
// bottom-right diagonal, so a convex quadrilateral always comes back in the
// same non-crossing winding whatever order its points arrive in.
func OrderCorners(pts [4]r2.Point) [4]r2.Point {
	tl, br := 0, 0
	for i := 1; i < 4; i++ {
		if before(pts[i], pts[tl]) {
			tl = i
		}
		if before(pts[br], pts[i]) {
			br = i
		}
	}
	if br == tl {
		// Identical points: take the next index so the result still uses
		// each input point exactly once.
		br = (tl + 1) % 4
	}

	rest := make([]r2.Point, 0, 2)
	for i := range pts {
		if i != tl && i != br {
			rest = append(rest, pts[i])
		}
	}
	a, b := rest[0], rest[1]

	diag := pts[br].Sub(pts[tl])
	ca := diag.Cross(a.Sub(pts[tl]))
	cb := diag.Cross(b.Sub(pts[tl]))

	// With y pointing down, the clockwise side has a negative cross product.
	tr, bl := a, b
	if cb < ca || (cb == ca && before(a, b)) {
		tr, bl = b, a
	}

	return [4]r2.Point{pts[tl], tr, pts[br], bl}
}

// before orders points by x+y, then y, then x.
func before(p, q r2.Point) bool {
	ps, qs := p.X+p.Y, q.X+q.Y
	if ps != qs {
		return ps < qs
	}
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.X < q.X
}

// Centroid returns the mean of the four points.
func Centroid(pts [4]r2.Point) r2.Point {
	var sum r2.Point
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Mul(0.25)
}

// isFinite reports whether both coordinates are neither NaN nor infinite.
func isFinite(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
