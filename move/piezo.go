package move

import (
	"context"

	"github.com/sdss-legacy/mirrorctl/device"
)

// SessionPiezoCorrector is the PiezoCorrector for the central-bearing
// secondary mirror variants: it issues one LDESPOS.../XQ #LMOVE command
// using the signed residual of the first three actuators, which are the
// only axes with piezo stages.
type SessionPiezoCorrector struct {
	Session *device.Session
}

// Correct sends the piezo fine-correction move.
func (p *SessionPiezoCorrector) Correct(ctx context.Context, actErr []float64) error {
	var corr [3]float64
	copy(corr[:], actErr)
	_, err := p.Session.PiezoMove(ctx, corr)
	return err
}
