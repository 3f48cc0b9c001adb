// Package presets provides concrete MirrorModel configurations for the
// actual SDSS 2.5m and 3.5m telescope mirrors, translated from the
// instrument team's mir.dat-derived Python configuration modules into Go
// struct literals (the Non-goal on "a config file loader" means these
// are compiled-in, not read from disk).
package presets

import (
	"math"
)

// Unit constants shared by the preset tables.
const (
	mmPerMicron = 1.0 / 1000.0
	mmPerInch   = 25.4
	radPerDeg   = math.Pi / 180.0
)

func deg(d float64) float64 { return d * radPerDeg }
