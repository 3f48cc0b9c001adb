package presets

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/sdss-legacy/mirrorctl/geometry"
)

// rotXMinus45 rotates a vector in the mirror-plane coordinate system (z from
// glass to instrument port) into the tertiary's true orientation: -45
// degrees about x.
func rotXMinus45(v r3.Vector) r3.Vector {
	const a = -45.0 * radPerDeg
	c, s := math.Cos(a), math.Sin(a)
	return r3.Vector{
		X: v.X,
		Y: c*v.Y - s*v.Z,
		Z: s*v.Y + c*v.Z,
	}
}

// Mir35mTertiary builds the 3.5m APO tertiary (flat) mirror: three axial
// AdjustableLength actuators arranged 120 degrees apart, three fixed links
// constraining translation and rotation, and a matching encoder set offset
// radially from the actuators.
func Mir35mTertiary() (*geometry.MirrorModel, error) {
	const actRad = 8.96 * mmPerInch
	const encRad = 10.69 * mmPerInch
	const zMir = -0.875 * mmPerInch
	const zBase = -3.375 * mmPerInch

	angles := [3]float64{deg(-90), deg(30), deg(150)}

	minMount := [3]float64{-7250000, -7250000, -7250000}
	maxMount := [3]float64{7250000, 7250000, 7250000}
	offset := [3]float64{0, 0, 0}
	scale := [3]float64{1259.843, 1259.843, 1259.843}

	var links [6]geometry.Link
	encoders := make([]*geometry.Encoder, 3)
	for i, ang := range angles {
		mirAct := r3.Vector{X: math.Cos(ang) * actRad, Y: math.Sin(ang) * actRad, Z: zMir}
		baseAct := r3.Vector{X: mirAct.X, Y: mirAct.Y, Z: zBase}
		mirEnc := r3.Vector{X: math.Cos(ang) * encRad, Y: math.Sin(ang) * encRad, Z: zMir}
		baseEnc := r3.Vector{X: mirEnc.X, Y: mirEnc.Y, Z: zBase}

		links[i] = geometry.NewAdjustableLengthLink(
			rotXMinus45(baseAct), rotXMinus45(mirAct), minMount[i], maxMount[i], scale[i], offset[i])
		encoders[i] = &geometry.Encoder{
			Link: geometry.NewAdjustableLengthLink(
				rotXMinus45(baseEnc), rotXMinus45(mirEnc), minMount[i], maxMount[i], scale[i], offset[i]),
			MinCorr: 50,
			MaxCorr: 1000000,
		}
	}

	// Fixed links 0,1 are transverse (extend towards actuator A), 2 is the
	// anti-rotation link.
	mirFix := [3]r3.Vector{
		{X: -203.2, Y: 0, Z: 0},
		{X: 203.2, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
	}
	baseFix := [3]r3.Vector{
		{X: -203.2, Y: -281.47, Z: 0},
		{X: math.Cos(angles[1]) * actRad, Y: -281.47, Z: zBase},
		{X: 281.47, Y: 0, Z: 0},
	}
	for i := 0; i < 3; i++ {
		links[3+i] = geometry.NewFixedLink(rotXMinus45(baseFix[i]), rotXMinus45(mirFix[i]))
	}

	return geometry.New("3.5m Tertiary", links, encoders, geometry.Direct, 0, 0)
}
