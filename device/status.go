package device

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sdss-legacy/mirrorctl/geometry"
)

// Status is the device session's live model of the Galil's reported world:
// what the wire protocol itself tells us, independent of any move-iteration
// bookkeeping (which belongs to move.Controller, layered on top). Updated
// incrementally as replies arrive; a copy is returned by Session.Status so
// callers never race with the event loop.
type Status struct {
	Moving bool
	Homing []bool

	// EncMount is the most recently reported encoder mount; Orient and
	// ActMount are derived from it by solving the inverse geometry. A NaN
	// encoder reading (the Galil's 999999999 sentinel) poisons both to
	// NaN, since further computation can't proceed.
	EncMount []float64
	Orient   geometry.Orientation
	ActMount []float64

	AxisHomed  []bool
	StatusWord []int64

	// MaxDuration is the device's own estimate of how long the in-flight
	// command will take, refreshed whenever a "sec to ..."/"max sec ..."
	// line arrives; Started marks when that estimate's timer began.
	MaxDuration time.Duration
	Started     time.Time

	PiezoStatus int64
	PiezoCorr   []float64

	// Iter/MaxIter mirror move.Controller's iteration counters, fed in via
	// Session.SetIterState so the "state" telemetry keyword can report them
	// without Session itself knowing anything about move iteration.
	Iter    int
	MaxIter int

	// Failed records whether the most recently completed device command
	// ended in error, for the "state" keyword's Failed phase.
	Failed bool
}

func newStatus(nAct int) *Status {
	s := &Status{
		Homing:     make([]bool, nAct),
		EncMount:   make([]float64, nAct),
		ActMount:   make([]float64, nAct),
		AxisHomed:  make([]bool, nAct),
		StatusWord: make([]int64, nAct),
		PiezoCorr:  make([]float64, 0),
		Orient:     nanOrientation(),
	}
	// Mount readings start NaN ("unknown"), not zero: zero is a valid
	// encoder reading, and the move controller must be able to tell "never
	// reported" from "reported at zero" to abort a move whose final
	// position never arrived.
	for i := 0; i < nAct; i++ {
		s.EncMount[i] = math.NaN()
		s.ActMount[i] = math.NaN()
	}
	return s
}

func (s *Status) clone() *Status {
	cp := *s
	cp.Homing = append([]bool(nil), s.Homing...)
	cp.EncMount = append([]float64(nil), s.EncMount...)
	cp.ActMount = append([]float64(nil), s.ActMount...)
	cp.AxisHomed = append([]bool(nil), s.AxisHomed...)
	cp.StatusWord = append([]int64(nil), s.StatusWord...)
	cp.PiezoCorr = append([]float64(nil), s.PiezoCorr...)
	return &cp
}

// String renders a compact diagnostic summary.
func (s *Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "moving=%v encMount=%v actMount=%v orient=%v", s.Moving, s.EncMount, s.ActMount, s.Orient)
	return b.String()
}
