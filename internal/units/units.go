// Package units provides shared constants and conversions for table lengths
// and marker angles.
package units

import "math"

// Length unit constants
const (
	Metres      = "m"
	Centimetres = "cm"
	Millimetres = "mm"
)

// ValidUnits contains all valid length unit values
var ValidUnits = []string{Metres, Centimetres, Millimetres}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "m, cm, mm"
}

func metresPer(unit string) float64 {
	switch unit {
	case Centimetres:
		return 0.01
	case Millimetres:
		return 0.001
	default:
		return 1 // metres, and unknown units
	}
}

// ToMetres converts a length in unit to metres.
func ToMetres(v float64, unit string) float64 {
	return v * metresPer(unit)
}

// FromMetres converts a length in metres to unit.
func FromMetres(v float64, unit string) float64 {
	return v / metresPer(unit)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
