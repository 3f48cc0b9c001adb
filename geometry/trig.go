package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// atan2Wrapped is math.Atan2 wrapped to [0, 2*pi), the range the
// equatorial angle of the TipTrans gimbal is defined over.
func atan2Wrapped(y, x float64) float64 {
	a := math.Atan2(y, x)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// polarAngle returns the angle from +Z to v.
func polarAngle(v r3.Vector) float64 {
	n := v.Norm()
	return math.Acos(v.Z / n)
}
