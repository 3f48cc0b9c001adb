package geometry

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/sdss-legacy/mirrorctl/mverrors"
)

// Variant is the mirror geometry family: a mirror whose actuators connect
// directly to the mirror, or one with a central linear bearing (a
// "tip-trans" secondary) whose actuators 3 and 4 tip the bearing instead of
// pushing the mirror face directly.
type Variant int

const (
	Direct Variant = iota
	TipTrans
)

// MirrorModel is a collection of exactly six links (actuators plus fixed),
// an optional per-actuator encoder list, and a mirror variant. It computes
// orientation <-> mount conversions in both directions.
type MirrorModel struct {
	Name string

	// links holds exactly six entries; actuatorIdx and fixedIdx partition
	// their indices.
	links       [6]Link
	actuatorIdx []int
	fixedIdx    []int
	fixedAxes   []int // orientation axis indices constrained by fixedIdx

	// encoders has one entry per actuator; a nil Link-valued entry means
	// "use the actuator as its own encoder" (handled by encoderLinksFor below).
	encoders []*Encoder

	variant           Variant
	ctrMirZ, ctrBaseZ float64 // TipTrans only

	// physMult caches, computed once at construction since links are
	// immutable.
	actuatorMult []float64 // over actuators+fixed combined list
	encoderMult  []float64 // over encoders+fixed combined list
	fixedMult    []float64 // over fixed-only list
}

// New constructs a MirrorModel from six links (order defines actuator
// index), an optional per-actuator encoder list (nil entries fall back to
// the actuator itself), and a variant. encoders may be nil to mean "this
// mirror has no encoders"; mirrors without encoders can never iterate a
// move, since there is nothing to read a residual from.
func New(name string, links [6]Link, encoders []*Encoder, variant Variant, ctrMirZ, ctrBaseZ float64) (*MirrorModel, error) {
	m := &MirrorModel{
		Name:     name,
		links:    links,
		variant:  variant,
		ctrMirZ:  ctrMirZ,
		ctrBaseZ: ctrBaseZ,
	}
	for i, l := range links {
		if l.IsAdjustable() {
			m.actuatorIdx = append(m.actuatorIdx, i)
		} else {
			m.fixedIdx = append(m.fixedIdx, i)
		}
	}
	switch len(m.fixedIdx) {
	case 0:
		m.fixedAxes = nil
	case 1:
		m.fixedAxes = []int{AxisRotZ}
	case 3:
		m.fixedAxes = []int{AxisTransX, AxisTransY, AxisRotZ}
	default:
		return nil, mverrors.NewInternalError(
			"mirror %q has %d fixed links; only 0, 1, or 3 are valid", name, len(m.fixedIdx))
	}
	if encoders != nil && len(encoders) != len(m.actuatorIdx) {
		return nil, mverrors.NewInternalError(
			"mirror %q: %d encoder slots but %d actuators", name, len(encoders), len(m.actuatorIdx))
	}
	m.encoders = encoders

	m.actuatorMult = computePhysMult(m, m.linksFor(append(append([]int{}, m.actuatorIdx...), m.fixedIdx...)))
	m.encoderMult = computePhysMult(m, m.encoderLinksFor(m.fixedIdx))
	if len(m.fixedIdx) > 0 {
		m.fixedMult = computePhysMult(m, m.linksFor(m.fixedIdx))
	}
	return m, nil
}

// NumActuators returns how many of the six links are adjustable.
func (m *MirrorModel) NumActuators() int { return len(m.actuatorIdx) }

// HasEncoders reports whether this mirror has a distinct encoder list (as
// opposed to using actuators as their own encoders).
func (m *MirrorModel) HasEncoders() bool { return m.encoders != nil }

// NumAdjOrient is the count of user-adjustable orientation axes: 6 minus
// however many are constrained by fixed links, capped at 5 because rotZ,
// even when technically adjustable, is never user-commanded.
func (m *MirrorModel) NumAdjOrient() int {
	n := NumAxes - len(m.fixedAxes)
	if n > 5 {
		n = 5
	}
	return n
}

// ActuatorLink returns the Link for actuator i (0-based, in construction
// order among adjustable links).
func (m *MirrorModel) ActuatorLink(i int) Link { return m.links[m.actuatorIdx[i]] }

// ActuatorLinks returns all actuator links in order.
func (m *MirrorModel) ActuatorLinks() []Link {
	out := make([]Link, len(m.actuatorIdx))
	for i, idx := range m.actuatorIdx {
		out[i] = m.links[idx]
	}
	return out
}

// EncoderMinMaxCorr returns the convergence correction bounds for actuator
// i, falling back to zero-width bounds if no encoder exists for it (a
// mirror with no encoders never iterates; that rule lives in the move
// controller, not here).
func (m *MirrorModel) EncoderMinMaxCorr(i int) (min, max float64) {
	if m.encoders == nil || m.encoders[i] == nil {
		return 0, 0
	}
	return m.encoders[i].MinCorr, m.encoders[i].MaxCorr
}

func (m *MirrorModel) linksFor(indices []int) []Link {
	out := make([]Link, len(indices))
	for i, idx := range indices {
		out[i] = m.links[idx]
	}
	return out
}

// encoderLinksFor returns the encoder-basis links for every actuator
// (falling back to the actuator's own Link when no encoder is configured),
// followed by the links at the given fixed indices.
func (m *MirrorModel) encoderLinksFor(fixedIndices []int) []Link {
	out := make([]Link, 0, len(m.actuatorIdx)+len(fixedIndices))
	for i, idx := range m.actuatorIdx {
		if m.encoders != nil && m.encoders[i] != nil {
			out = append(out, m.encoders[i].Link)
		} else {
			out = append(out, m.links[idx])
		}
	}
	for _, idx := range fixedIndices {
		out = append(out, m.links[idx])
	}
	return out
}

// physFromOrient computes the signed physical length (mm) of every link in
// links given orient. For a TipTrans mirror, combined-list positions 3 and
// 4 tilt the central bearing: their mirror pivots rotate about the base
// gimbal by the bearing's equatorial-polar rotation instead of about the
// mirror vertex.
func (m *MirrorModel) physFromOrient(orient Orientation, links []Link) []float64 {
	rot, offset := rotTransFromOrient(orient)
	out := make([]float64, len(links))

	if m.variant != TipTrans {
		for i, l := range links {
			moved := rot.mul(l.MirPos).Add(offset)
			out[i] = l.physFromMovedMirPos(moved)
		}
		return out
	}

	mirGimb := r3.Vector{Z: m.ctrMirZ}
	baseGimb := r3.Vector{Z: m.ctrBaseZ}
	desMirGimb := rot.mul(mirGimb).Add(offset).Sub(baseGimb)
	eqAng := atan2Wrapped(desMirGimb.Y, desMirGimb.X)
	polAng := polarAngle(desMirGimb)
	eqPolRot := rotEqPolMat(eqAng, polAng)

	for i, l := range links {
		if i == 3 || i == 4 {
			actUnrot := l.MirPos.Sub(baseGimb)
			desMirPos := eqPolRot.mul(actUnrot).Add(baseGimb)
			out[i] = l.physFromMovedMirPos(desMirPos)
		} else {
			moved := rot.mul(l.MirPos).Add(offset)
			out[i] = l.physFromMovedMirPos(moved)
		}
	}
	return out
}

func (m *MirrorModel) String() string {
	return fmt.Sprintf("MirrorModel(%s, %d actuators, %d fixed, variant=%v)",
		m.Name, len(m.actuatorIdx), len(m.fixedIdx), m.variant)
}
