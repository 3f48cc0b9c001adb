package presets

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/sdss-legacy/mirrorctl/geometry"
)

// Mir25mSecondary builds the SDSS 2.5m secondary mirror: three axial
// AdjustableBase actuators, two transverse AdjustableBase actuators tipping
// a central linear bearing, one fixed anti-rotation link, and an axial/
// transverse encoder set offset from their actuators.
func Mir25mSecondary() (*geometry.MirrorModel, error) {
	const zEncOffsetTrans = 0.90 * mmPerInch

	minMount := [5]float64{-7250000, -7250000, -7250000, -18000, -18000}
	maxMount := [5]float64{7250000, 7250000, 7250000, 18000, 18000}
	offset := [5]float64{0, 0, 0, 1700, -1700}
	scale := [5]float64{1259.84, 1259.84, 1259.84, 31.496, 31.496}

	mirX := [5]float64{293.81, -233.08, -60.73, 19.80, -19.80}
	mirY := [5]float64{99.51, 204.69, -304.20, -19.80, -19.80}
	mirZ := [5]float64{-193.00, -193.00, -193.00, -263.80, -263.80}
	baseX := [5]float64{293.81, -233.08, -60.73, 56.57, -56.57}
	baseY := [5]float64{99.51, 204.69, -304.20, -56.57, -56.57}
	baseZ := [5]float64{-280.00, -280.00, -280.00, -263.80, -263.80}

	var links [6]geometry.Link
	encoders := make([]*geometry.Encoder, 5)
	for i := 0; i < 5; i++ {
		base := r3.Vector{X: baseX[i], Y: baseY[i], Z: baseZ[i]}
		mir := r3.Vector{X: mirX[i], Y: mirY[i], Z: mirZ[i]}
		links[i] = geometry.NewAdjustableBaseLink(base, mir, minMount[i], maxMount[i], scale[i], offset[i])

		var encBase, encMir r3.Vector
		if i < 3 {
			radius := math.Hypot(mirX[i], mirY[i])
			theta := math.Atan2(mirY[i], mirX[i])
			deltaTheta := 2 * mmPerInch / radius
			newTheta := theta + deltaTheta
			x := radius * math.Cos(newTheta)
			y := radius * math.Sin(newTheta)
			encBase = r3.Vector{X: x, Y: y, Z: baseZ[i]}
			encMir = r3.Vector{X: x, Y: y, Z: mirZ[i]}
		} else {
			encBase = r3.Vector{X: baseX[i], Y: baseY[i], Z: baseZ[i] + zEncOffsetTrans}
			encMir = r3.Vector{X: mirX[i], Y: mirY[i], Z: mirZ[i] + zEncOffsetTrans}
		}
		encoders[i] = &geometry.Encoder{
			Link:    geometry.NewAdjustableLengthLink(encBase, encMir, minMount[i], maxMount[i], scale[i], offset[i]),
			MinCorr: 50,
			MaxCorr: 1000000,
		}
	}

	fixMir := r3.Vector{X: 0, Y: -17.296 * mmPerInch, Z: -193.0}
	fixBase := r3.Vector{X: 13.125 * mmPerInch, Y: -17.296 * mmPerInch, Z: -193.0}
	links[5] = geometry.NewFixedLink(fixBase, fixMir)

	const ctrMirZ = -135.70
	const ctrBaseZ = -178.40

	return geometry.New("SDSS 2.5m Secondary", links, encoders, geometry.TipTrans, ctrMirZ, ctrBaseZ)
}
