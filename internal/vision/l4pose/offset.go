package l4pose

import "math"

// Offset is a rigid-body correction expressed in the marker's local frame:
// X along the marker's forward edge, Y to its left, Theta added to its
// heading.
type Offset struct {
	X, Y  float64
	Theta float64 // radians
}

// IsZero reports whether o is the identity offset.
func (o Offset) IsZero() bool {
	return o.X == 0 && o.Y == 0 && o.Theta == 0
}

// ApplyOffset rotates the offset translation by the pose heading, adds it to
// the position and adds Theta to the heading.
func ApplyOffset(p MarkerPose, o Offset) MarkerPose {
	if o.IsZero() {
		p.Angle = NormalizeAngle(p.Angle)
		return p
	}
	sin, cos := math.Sincos(p.Angle)
	p.X += o.X*cos - o.Y*sin
	p.Y += o.X*sin + o.Y*cos
	p.Angle = NormalizeAngle(p.Angle + o.Theta)
	return p
}

// NormalizeAngle wraps a into (-pi, pi]. -pi maps to pi. Non-finite input is
// returned unchanged.
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	if a > -math.Pi && a <= math.Pi {
		return a
	}
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	a -= math.Pi
	if a <= -math.Pi {
		// rounding can land exactly on -pi
		a = math.Pi
	}
	return a
}
