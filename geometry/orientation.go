// Package geometry implements the reversible mapping between a six-axis
// mirror orientation and per-actuator/per-encoder linear lengths, honoring
// fixed-length kinematic constraints. The forward direction is direct
// vector arithmetic; the inverse is a constrained nonlinear least-squares
// fit.
package geometry

import "github.com/sdss-legacy/mirrorctl/mverrors"

// Orientation is the six-axis rigid-body pose of a mirror: piston, two
// tilts, two translations, and one rotation, in mm and radians.
type Orientation [NumAxes]float64

// Axis indices into an Orientation. The order is fixed: every mount table,
// telemetry line, and user argument list assumes it.
const (
	AxisPiston = iota
	AxisTiltX
	AxisTiltY
	AxisTransX
	AxisTransY
	AxisRotZ
	NumAxes
)

// Piston, TiltX, TiltY, TransX, TransY and RotZ are read-only accessors for
// the six axes.
func (o Orientation) Piston() float64 { return o[AxisPiston] }
func (o Orientation) TiltX() float64  { return o[AxisTiltX] }
func (o Orientation) TiltY() float64  { return o[AxisTiltY] }
func (o Orientation) TransX() float64 { return o[AxisTransX] }
func (o Orientation) TransY() float64 { return o[AxisTransY] }
func (o Orientation) RotZ() float64   { return o[AxisRotZ] }

// ZeroOrientation is the neutral reference pose.
var ZeroOrientation = Orientation{}

// OrientationFromValues pads a partial user orientation to the full six
// axes with trailing zeros; everything downstream works only with fully
// specified orientations. Only 0, 1, 3, 5, or 6 values make sense as a
// partial orientation (piston; piston+tilts; those plus translations; all
// six); any other count is rejected so a caller that dropped an argument
// fails loudly instead of silently zeroing an axis.
func OrientationFromValues(values []float64) (Orientation, error) {
	switch len(values) {
	case 0, 1, 3, 5, 6:
	default:
		return Orientation{}, mverrors.NewValidationError(
			"%d orientation values; must be 0, 1, 3, 5, or 6", len(values))
	}
	var o Orientation
	copy(o[:], values)
	return o, nil
}

// AlmostEqual reports whether two orientations match within the given
// per-axis tolerances: posTol applies to piston/translation axes, angTol to
// tilt/rotation axes.
func (o Orientation) AlmostEqual(other Orientation, posTol, angTol float64) bool {
	tol := [NumAxes]float64{posTol, angTol, angTol, posTol, posTol, angTol}
	for i := range o {
		d := o[i] - other[i]
		if d < 0 {
			d = -d
		}
		if d > tol[i] {
			return false
		}
	}
	return true
}
