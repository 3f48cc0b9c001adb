package geometry

import (
	"github.com/golang/geo/r3"
)

// Kind identifies how a Link's length behaves: fixed, a direct actuator, or
// a base that pistons along the neutral line to its mirror pivot.
type Kind int

const (
	// FixedLength links cannot change length; they constrain the mirror to
	// a lower-dimensional configuration manifold.
	FixedLength Kind = iota
	// AdjustableLength links vary the distance between their two pivots
	// directly, the traditional hexapod actuator.
	AdjustableLength
	// AdjustableBase links piston along the neutral line joining their two
	// pivots, approximating a lead-screw riding a linear bearing.
	AdjustableBase
)

// Link is one rigid link between a base pivot and a mirror pivot. It is
// immutable once constructed.
type Link struct {
	Kind Kind

	BasePos, MirPos r3.Vector
	NeutralLength   float64

	// Mount conversion, meaningful only for adjustable kinds. Scale is in
	// mount units per micron; MountFromPhys multiplies it by 1000 because
	// physical lengths are carried in mm.
	MinMount, MaxMount float64
	Scale, Offset      float64

	// PistonDir is the unit vector from base to mirror at neutral
	// orientation, used only by AdjustableBase links.
	PistonDir r3.Vector
}

// NewFixedLink builds a non-adjustable link between the given pivots.
func NewFixedLink(basePos, mirPos r3.Vector) Link {
	return Link{
		Kind:          FixedLength,
		BasePos:       basePos,
		MirPos:        mirPos,
		NeutralLength: basePos.Sub(mirPos).Norm(),
	}
}

// NewAdjustableLengthLink builds a traditional actuator whose length between
// base and mirror pivots is the commanded degree of freedom.
func NewAdjustableLengthLink(basePos, mirPos r3.Vector, minMount, maxMount, scale, offset float64) Link {
	return Link{
		Kind:          AdjustableLength,
		BasePos:       basePos,
		MirPos:        mirPos,
		NeutralLength: basePos.Sub(mirPos).Norm(),
		MinMount:      minMount,
		MaxMount:      maxMount,
		Scale:         scale,
		Offset:        offset,
	}
}

// NewAdjustableBaseLink builds a link whose base pistons along the neutral
// line to its mirror pivot (an approximation of a lead-screw riding a
// linear bearing).
func NewAdjustableBaseLink(basePos, mirPos r3.Vector, minMount, maxMount, scale, offset float64) Link {
	neutral := basePos.Sub(mirPos).Norm()
	return Link{
		Kind:          AdjustableBase,
		BasePos:       basePos,
		MirPos:        mirPos,
		NeutralLength: neutral,
		MinMount:      minMount,
		MaxMount:      maxMount,
		Scale:         scale,
		Offset:        offset,
		PistonDir:     mirPos.Sub(basePos).Normalize(),
	}
}

// IsAdjustable reports whether this link's length is a commanded degree of
// freedom (as opposed to fixed).
func (l Link) IsAdjustable() bool { return l.Kind != FixedLength }

// physFromMovedMirPos computes the signed physical length of the link (mm,
// relative to neutral) given the mirror pivot's position after applying an
// orientation. Fixed and adjustable-length links share the pivot-distance
// formula; an adjustable-base link instead projects onto its neutral piston
// axis with a quadratic cross-term correction, a small-angle-accurate but
// trig-free approximation of the lead screw's extension. An exact inverse
// formulation exists using acos(asin(...)) but is numerically unstable near
// neutral orientation; the quadratic form is the one the round-trip
// tolerances are stated for.
func (l Link) physFromMovedMirPos(movedMir r3.Vector) float64 {
	switch l.Kind {
	case AdjustableBase:
		r := movedMir.Sub(l.BasePos)
		x := r.Dot(l.PistonDir)
		yVec := r.Cross(l.PistonDir)
		ySq := yVec.Dot(yVec)
		return x + ySq/(2*l.NeutralLength) - l.NeutralLength
	default: // FixedLength, AdjustableLength
		return l.BasePos.Sub(movedMir).Norm() - l.NeutralLength
	}
}

// MountFromPhys converts a physical length (mm, relative to neutral) to a
// controller mount value: offset + (scale*1000)*phys.
func (l Link) MountFromPhys(phys float64) float64 {
	return l.Offset + (l.Scale*1000)*phys
}

// PhysFromMount is the inverse of MountFromPhys.
func (l Link) PhysFromMount(mount float64) float64 {
	return (mount - l.Offset) / (l.Scale * 1000)
}

// MountInRange reports whether m lies within [MinMount, MaxMount]. It is a
// total function: callers, not Link, enforce range.
func (l Link) MountInRange(m float64) bool {
	return l.MinMount <= m && m <= l.MaxMount
}

// Encoder senses a link's length, possibly with its own pivot geometry
// distinct from the actuator it instruments, and carries the per-actuator
// correction bounds used by the move controller's convergence test.
type Encoder struct {
	Link    Link
	MinCorr float64
	MaxCorr float64
}
