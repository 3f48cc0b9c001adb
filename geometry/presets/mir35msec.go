package presets

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/sdss-legacy/mirrorctl/geometry"
)

// Mir35mSecondary builds the 3.5m APO secondary mirror: three axial
// AdjustableBase actuators (lead screws riding linear bearings) spaced 120
// degrees apart, two transverse AdjustableBase actuators, one fixed
// anti-rotation link, and an encoder set offset radially (axial) or towards
// the glass (transverse) from the actuators. Pivot coordinates are the 2012
// shutdown measurements.
func Mir35mSecondary() (*geometry.MirrorModel, error) {
	const actRad = 9.08 * mmPerInch
	const encRad = 10.25 * mmPerInch
	const zMirAx = -152.806
	const zBaseAx = -256.438
	const zMirTrans = -167.361
	const zBaseTrans = -192.710
	const xyMirTrans = 29.186
	const xyBaseTrans = 284.010
	const zEncOffsetTrans = 0.90 * mmPerInch

	angles := [3]float64{deg(-90 + 180), deg(30 + 180), deg(150 + 180)}

	minMount := [5]float64{-7250000, -7250000, -7250000, -95000, -95000}
	maxMount := [5]float64{7250000, 7250000, 7250000, 95000, 95000}
	scale := [5]float64{1259.843, 1259.843, 1259.843, 31.496, 31.496}
	maxCorr := [5]float64{1000000, 1000000, 1000000, 5000, 5000}

	var links [6]geometry.Link
	encoders := make([]*geometry.Encoder, 5)

	for i, ang := range angles {
		mirAct := r3.Vector{X: math.Cos(ang) * actRad, Y: math.Sin(ang) * actRad, Z: zMirAx}
		baseAct := r3.Vector{X: mirAct.X, Y: mirAct.Y, Z: zBaseAx}
		mirEnc := r3.Vector{X: math.Cos(ang) * encRad, Y: math.Sin(ang) * encRad, Z: zMirAx}
		baseEnc := r3.Vector{X: mirEnc.X, Y: mirEnc.Y, Z: zBaseAx}

		links[i] = geometry.NewAdjustableBaseLink(baseAct, mirAct, minMount[i], maxMount[i], scale[i], 0)
		encoders[i] = &geometry.Encoder{
			Link:    geometry.NewAdjustableLengthLink(baseEnc, mirEnc, minMount[i], maxMount[i], scale[i], 0),
			MinCorr: 50,
			MaxCorr: maxCorr[i],
		}
	}

	// Transverse actuators D and E mirror each other in x; their encoders
	// sit between actuator and glass.
	mult := 1.0
	for i := 3; i < 5; i++ {
		mirAct := r3.Vector{X: xyMirTrans * mult, Y: xyMirTrans, Z: zMirTrans}
		baseAct := r3.Vector{X: xyBaseTrans * mult, Y: xyBaseTrans, Z: zBaseTrans}
		mirEnc := r3.Vector{X: xyMirTrans * mult, Y: xyMirTrans, Z: zMirTrans + zEncOffsetTrans}
		baseEnc := r3.Vector{X: xyBaseTrans * mult, Y: xyBaseTrans, Z: zBaseTrans + zEncOffsetTrans}

		links[i] = geometry.NewAdjustableBaseLink(baseAct, mirAct, minMount[i], maxMount[i], scale[i], 0)
		encoders[i] = &geometry.Encoder{
			Link:    geometry.NewAdjustableLengthLink(baseEnc, mirEnc, minMount[i], maxMount[i], scale[i], 0),
			MinCorr: 50,
			MaxCorr: maxCorr[i],
		}
		mult = -1.0
	}

	const linkLength = 12.36 * mmPerInch
	const mirRadius = 1000.0
	fixMir := r3.Vector{X: 0, Y: -mirRadius, Z: zMirAx}
	fixBase := r3.Vector{X: linkLength, Y: -mirRadius, Z: zMirAx}
	links[5] = geometry.NewFixedLink(fixBase, fixMir)

	return geometry.New("3.5m Secondary", links, encoders, geometry.Direct, 0, 0)
}
