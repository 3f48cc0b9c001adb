package presets

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/sdss-legacy/mirrorctl/geometry"
)

// Mir35mTertiaryLegacy builds the compatibility model of the 3.5m tertiary
// used before true fixed-link geometry was measured: three real actuators
// (A, B, C) plus three "ghost" actuators of near-infinite base distance that
// behave as fixed links without requiring this package's 0/1/3-fixed-link
// constraint. Under this model piston and transY commands are equivalent,
// as they were under the old TCC's assumptions.
func Mir35mTertiaryLegacy() (*geometry.MirrorModel, error) {
	mirPos := [6]r3.Vector{
		{X: 0, Y: -226.105, Z: 194.674},
		{X: 257.673, Y: 89.479, Z: -120.910},
		{X: -257.673, Y: 89.479, Z: -120.910},
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 298, Y: 0, Z: 0},
	}
	basePos := [6]r3.Vector{
		{X: 0, Y: -271.006, Z: 149.773},
		{X: 257.673, Y: 44.578, Z: -165.811},
		{X: -257.673, Y: 44.578, Z: -165.811},
		{X: 1e9, Y: 7.07e8, Z: -7.07e8},
		{X: -1e9, Y: 7.07e8, Z: -7.07e8},
		{X: 298, Y: 7.07e8, Z: -7.07e8},
	}
	minMount := [6]float64{-7250000, -7250000, -7250000, math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	maxMount := [6]float64{7250000, 7250000, 7250000, math.Inf(1), math.Inf(1), math.Inf(1)}
	scale := 1259.843

	var links [6]geometry.Link
	encoders := make([]*geometry.Encoder, 6)
	for i := range links {
		links[i] = geometry.NewAdjustableLengthLink(basePos[i], mirPos[i], minMount[i], maxMount[i], scale, 0)
		encoders[i] = &geometry.Encoder{
			Link:    links[i],
			MinCorr: 50,
			MaxCorr: 1000000,
		}
	}

	return geometry.New("3.5m Tertiary (legacy infinite-link)", links, encoders, geometry.Direct, 0, 0)
}
