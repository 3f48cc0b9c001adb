// Package userio sits at the boundary between the mirror controller's
// internal mm/rad computation and the user command surface, which speaks
// micrometers and arcseconds: it parses command lines into verbs and
// arguments and converts units both ways.
package userio

import "math"

const (
	mmPerUM      = 1e-3
	radPerArcsec = math.Pi / (180 * 3600)
)

// UMToMM converts a length in micrometers to millimeters.
func UMToMM(um float64) float64 { return um * mmPerUM }

// MMToUM converts a length in millimeters to micrometers.
func MMToUM(mm float64) float64 { return mm / mmPerUM }

// ArcsecToRad converts an angle in arcseconds to radians.
func ArcsecToRad(arcsec float64) float64 { return arcsec * radPerArcsec }

// RadToArcsec converts an angle in radians to arcseconds.
func RadToArcsec(rad float64) float64 { return rad / radPerArcsec }

// orientIsAngle reports whether orientation axis i is an angle (tilt/rotZ)
// rather than a length (piston/transX/transY), by the fixed axis order
// geometry.Orientation defines.
func orientIsAngle(axis int) bool {
	switch axis {
	case 1, 2, 5: // AxisTiltX, AxisTiltY, AxisRotZ
		return true
	default:
		return false
	}
}

// OrientToUserUnits converts a full six-axis orientation (mm/rad) to user
// units (µm/arcsec), in the same axis order.
func OrientToUserUnits(mmRad [6]float64) [6]float64 {
	var out [6]float64
	for i, v := range mmRad {
		if orientIsAngle(i) {
			out[i] = RadToArcsec(v)
		} else {
			out[i] = MMToUM(v)
		}
	}
	return out
}

// OrientFromUserUnits is OrientToUserUnits's inverse, used on user-supplied
// move/offset arguments before they reach the geometry package.
func OrientFromUserUnits(userVals []float64) []float64 {
	out := make([]float64, len(userVals))
	for i, v := range userVals {
		if orientIsAngle(i) {
			out[i] = ArcsecToRad(v)
		} else {
			out[i] = UMToMM(v)
		}
	}
	return out
}
