package geometry

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/sdss-legacy/mirrorctl/mverrors"
)

// fullOrient resolves the orientation axes constrained by this mirror's
// fixed links (m.fixedAxes) given a partial orientation whose free (user)
// axes are already set. If adjust is false, the caller's values for the
// fixed axes are trusted as-is (used when re-solving from a previous
// converged orientation, where nothing has moved); if true, or if partial's
// fixed-axis values are only a seed, they are re-solved so the fixed links'
// physical length returns to zero, their defining invariant.
func (m *MirrorModel) fullOrient(partial Orientation, adjust bool) (Orientation, error) {
	if m.fixedAxes == nil {
		return partial, nil
	}
	if !adjust {
		return partial, nil
	}

	fixedLinks := m.linksFor(m.fixedIdx)
	target := make([]float64, len(fixedLinks)) // fixed links hold zero phys length by definition

	init := make([]float64, len(m.fixedAxes))
	for i, axis := range m.fixedAxes {
		init[i] = partial[axis]
	}

	solved, err := m.minimizeOrientation(fixedLinks, target, m.fixedMult, m.fixedAxes, partial, init)
	if err != nil {
		return Orientation{}, errors.Wrap(err, "resolving fixed orientation axes")
	}
	return solved, nil
}

// ActuatorMountFromOrient converts a user-specified orientation to actuator
// mount values. userOrient may omit
// trailing axes (they default to zero); adjust controls whether axes
// constrained by fixed links are re-solved (true) or trusted as given
// (false, only sensible when userOrient already came from a converged
// full orientation). The returned Orientation is the full six-axis
// orientation actually used, with any fixed axes filled in.
//
// An out-of-range mount on any actuator is reported as an aggregate
// validation error (via multierr) rather than stopping at the first one, so
// a caller can report every offending actuator at once.
func (m *MirrorModel) ActuatorMountFromOrient(userOrient []float64, adjust bool) ([]float64, Orientation, error) {
	orient, err := OrientationFromValues(userOrient)
	if err != nil {
		return nil, Orientation{}, err
	}
	full, err := m.fullOrient(orient, adjust)
	if err != nil {
		return nil, Orientation{}, err
	}

	actLinks := m.linksFor(m.actuatorIdx)
	phys := m.physFromOrient(full, actLinks)

	mounts := make([]float64, len(phys))
	var errs error
	for i, p := range phys {
		mount := actLinks[i].MountFromPhys(p)
		if !actLinks[i].MountInRange(mount) {
			errs = multierr.Append(errs, mverrors.NewValidationError(
				"actuator %d mount %.1f out of range [%.1f, %.1f]",
				i, mount, actLinks[i].MinMount, actLinks[i].MaxMount))
		}
		mounts[i] = mount
	}
	if errs != nil {
		return mounts, full, errs
	}
	return mounts, full, nil
}

// EncoderMountFromOrient is ActuatorMountFromOrient's counterpart for the
// encoder basis (distinct pivot geometry on mirrors that have encoders;
// falls back to the actuator links themselves otherwise). Mirrors without
// encoders still answer this call, returning the same mounts an actuator
// encoder would report were one installed.
func (m *MirrorModel) EncoderMountFromOrient(userOrient []float64, adjust bool) ([]float64, Orientation, error) {
	orient, err := OrientationFromValues(userOrient)
	if err != nil {
		return nil, Orientation{}, err
	}
	full, err := m.fullOrient(orient, adjust)
	if err != nil {
		return nil, Orientation{}, err
	}

	encLinks := m.encoderLinksFor(nil)
	phys := m.physFromOrient(full, encLinks)

	mounts := make([]float64, len(phys))
	var errs error
	for i, p := range phys {
		mount := encLinks[i].MountFromPhys(p)
		if !encLinks[i].MountInRange(mount) {
			errs = multierr.Append(errs, mverrors.NewValidationError(
				"encoder %d mount %.1f out of range [%.1f, %.1f]",
				i, mount, encLinks[i].MinMount, encLinks[i].MaxMount))
		}
		mounts[i] = mount
	}
	if errs != nil {
		return mounts, full, errs
	}
	return mounts, full, nil
}

// OrientFromActuatorMount is the inverse direction: given
// commanded actuator mounts, find the orientation whose predicted mounts
// best match them in the weighted least-squares sense, seeded from
// initGuess (typically the previous converged orientation, or
// ZeroOrientation on a cold start).
func (m *MirrorModel) OrientFromActuatorMount(mount []float64, initGuess Orientation) (Orientation, error) {
	actLinks := m.linksFor(m.actuatorIdx)
	fixedLinks := m.linksFor(m.fixedIdx)

	links := append(append([]Link{}, actLinks...), fixedLinks...)
	given := make([]float64, len(links))
	for i, l := range actLinks {
		given[i] = l.PhysFromMount(mount[i])
	}
	// fixed links hold zero phys length by definition; given[len(actLinks):] already zero.

	init := initGuess
	orient, err := m.minimizeOrientation(links, given, m.actuatorMult, nil, Orientation{}, init[:])
	if err != nil {
		return Orientation{}, errors.Wrap(err, "solving orientation from actuator mount")
	}
	return orient, nil
}

// OrientFromEncoderMount is OrientFromActuatorMount's counterpart for
// encoder-reported mounts, used by the move controller to read back where
// the mirror actually landed after a move.
func (m *MirrorModel) OrientFromEncoderMount(mount []float64, initGuess Orientation) (Orientation, error) {
	links := m.encoderLinksFor(m.fixedIdx)
	given := make([]float64, len(links))
	for i := range m.actuatorIdx {
		given[i] = links[i].PhysFromMount(mount[i])
	}
	// fixed links (appended after the actuator-encoder entries) target zero phys length.

	init := initGuess
	orient, err := m.minimizeOrientation(links, given, m.encoderMult, nil, Orientation{}, init[:])
	if err != nil {
		return Orientation{}, errors.Wrap(err, "solving orientation from encoder mount")
	}
	return orient, nil
}
