package presets

import (
	"github.com/golang/geo/r3"

	"github.com/sdss-legacy/mirrorctl/geometry"
)

// Mir25mPrimary builds the SDSS 2.5m primary mirror: three axial actuators,
// one transverse actuator, and two lateral links, all adjustable-length
// (the actuators never tilt relative to the mirror face); no fixed links,
// no encoders.
func Mir25mPrimary() (*geometry.MirrorModel, error) {
	minMount := [6]float64{-120000, -120000, -120000, -90000, -50000, -50000}
	maxMount := [6]float64{120000, 120000, 120000, 90000, 50000, 50000}
	offset := [6]float64{11300, -650, 5500, -1650, -6900, -6900}
	scale := [6]float64{15.696, 15.696, 15.696, 15.696, 33.22, 32.53}

	mirX := [6]float64{0, -749.03, 749.03, 0, 0, 0}
	mirY := [6]float64{864.90, -432.45, -432.45, -1305, -1277, 1277}
	mirZ := [6]float64{251, 251, 251, 238, 262, 262}
	baseX := [6]float64{0, -749.03, 749.03, 0, -698, -698}
	baseY := [6]float64{864.90, -432.45, -432.45, -9e9, -1277, 1277}
	baseZ := [6]float64{9e9, 9e9, 9e9, 238, 262, 262}

	var links [6]geometry.Link
	for i := range links {
		base := r3.Vector{X: baseX[i], Y: baseY[i], Z: baseZ[i]}
		mir := r3.Vector{X: mirX[i], Y: mirY[i], Z: mirZ[i]}
		links[i] = geometry.NewAdjustableLengthLink(base, mir, minMount[i], maxMount[i], scale[i], offset[i])
	}

	return geometry.New("SDSS 2.5m Primary", links, nil, geometry.Direct, 0, 0)
}
