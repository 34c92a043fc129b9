package l3geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// CollinearEpsilon is the minimum (doubled) triangle area any three of the
// four corners must span.
const CollinearEpsilon = 1e-5

// collinear reports whether p1, p2, p3 span less than epsilon of area.
func collinear(p1, p2, p3 r2.Point, epsilon float64) bool {
	area := math.Abs((p2.Y-p1.Y)*(p3.X-p2.X) - (p2.X-p1.X)*(p3.Y-p2.Y))
	return area < epsilon
}

// CheckNonDegenerate returns false if any coordinate is NaN or infinite, or
// if any of the four 3-point subsets is collinear within CollinearEpsilon.
func CheckNonDegenerate(pts [4]r2.Point) bool {
	for _, p := range pts {
		if !isFinite(p) {
			return false
		}
	}
	subsets := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	for _, s := range subsets {
		if collinear(pts[s[0]], pts[s[1]], pts[s[2]], CollinearEpsilon) {
			return false
		}
	}
	return true
}
