package geometry_test

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/sdss-legacy/mirrorctl/geometry"
	"github.com/sdss-legacy/mirrorctl/geometry/presets"
)

// umToMM/arcsecToRad mirror userio's boundary conversions (UMToMM,
// ArcsecToRad), inlined here so this package's tests don't depend on
// userio; keeping the dependency graph one-directional keeps both
// packages' tests honest.
const (
	mmPerUM      = 1e-3
	radPerArcsec = math.Pi / (180 * 3600)
)

func umToMM(um float64) float64        { return um * mmPerUM }
func arcsecToRad(asec float64) float64 { return asec * radPerArcsec }

// TestRoundTripActuatorMountPrimary round-trips orientation -> mount ->
// orientation -> mount on
// the SDSS 2.5m primary: a Direct mirror with six actuators and no fixed
// links, so every axis (including rotZ) is freely specified and no
// constrained-axis solve is involved.
func TestRoundTripActuatorMountPrimary(t *testing.T) {
	mirror, err := presets.Mir25mPrimary()
	test.That(t, err, test.ShouldBeNil)
	// Six free axes, but rotZ is never user-commanded, so only five count
	// as adjustable.
	test.That(t, mirror.NumAdjOrient(), test.ShouldEqual, 5)

	orient := []float64{
		umToMM(50),       // piston, at the documented envelope boundary
		arcsecToRad(3),   // tiltX
		arcsecToRad(-2),  // tiltY
		umToMM(-30),      // transX
		umToMM(20),       // transY
		arcsecToRad(1.5), // rotZ (free: no fixed link constrains it here)
	}

	mount, full, err := mirror.ActuatorMountFromOrient(orient, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(mount), test.ShouldEqual, 6)

	recovered, err := mirror.OrientFromActuatorMount(mount, geometry.ZeroOrientation)
	test.That(t, err, test.ShouldBeNil)

	posTol := umToMM(0.1)
	angTol := arcsecToRad(0.01)
	test.That(t, recovered.AlmostEqual(full, posTol, angTol), test.ShouldBeTrue)

	mount2, _, err := mirror.ActuatorMountFromOrient(recovered[:], true)
	test.That(t, err, test.ShouldBeNil)
	for i := range mount {
		test.That(t, math.Abs(mount2[i]-mount[i]), test.ShouldBeLessThan, 0.05001)
	}
}

// TestFixedLinkAdjustKeepsUserAxes checks that resolving the axis
// constrained by the fixed link leaves every user-given axis of the
// adjusted orientation exactly as given.
func TestFixedLinkAdjustKeepsUserAxes(t *testing.T) {
	mirror, err := presets.Mir25mSecondary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mirror.NumAdjOrient(), test.ShouldEqual, 5)

	// Only the five user-adjustable axes are given; rotZ (constrained by
	// the secondary's single anti-rotation fixed link) is solved for.
	userOrient := []float64{
		umToMM(20),
		arcsecToRad(1),
		arcsecToRad(-1),
		umToMM(10),
		umToMM(-10),
	}

	_, full, err := mirror.ActuatorMountFromOrient(userOrient, true)
	test.That(t, err, test.ShouldBeNil)

	// The adjustable (user-given) axes must survive untouched; only rotZ
	// (the constrained axis) is free to differ from the zero seed.
	for axis := 0; axis < geometry.AxisRotZ; axis++ {
		test.That(t, full[axis], test.ShouldEqual, userOrient[axis])
	}
}

// TestInvalidOrientationValueCount checks that only 0, 1, 3, 5, or 6 user
// values are accepted as a partial orientation; 2 or 4 mean a dropped
// argument and are rejected before any geometry runs.
func TestInvalidOrientationValueCount(t *testing.T) {
	mirror, err := presets.Mir25mPrimary()
	test.That(t, err, test.ShouldBeNil)

	for _, vals := range [][]float64{{1, 2}, {1, 2, 3, 4}} {
		_, _, err := mirror.ActuatorMountFromOrient(vals, true)
		test.That(t, err, test.ShouldNotBeNil)
		_, _, err = mirror.EncoderMountFromOrient(vals, true)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

// TestRangeEnforcement checks that a commanded orientation whose mount
// falls outside an actuator's range is rejected.
func TestRangeEnforcement(t *testing.T) {
	mirror, err := presets.Mir25mPrimary()
	test.That(t, err, test.ShouldBeNil)

	// A wildly large piston drives every axial actuator's mount far past
	// its travel limit.
	_, _, err = mirror.ActuatorMountFromOrient([]float64{500, 0, 0, 0, 0, 0}, true)
	test.That(t, err, test.ShouldNotBeNil)
}

// TestEncoderMountFromOrientFallsBackToActuator covers a mirror with no
// distinct encoder list: the encoder basis mount must equal the actuator
// basis mount exactly, since EncoderMountFromOrient falls back to the
// actuator links themselves.
func TestEncoderMountFromOrientFallsBackToActuator(t *testing.T) {
	mirror, err := presets.Mir25mPrimary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mirror.HasEncoders(), test.ShouldBeFalse)

	orient := []float64{umToMM(10), 0, 0, 0, 0, 0}
	actMount, _, err := mirror.ActuatorMountFromOrient(orient, true)
	test.That(t, err, test.ShouldBeNil)
	encMount, _, err := mirror.EncoderMountFromOrient(orient, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, encMount, test.ShouldResemble, actMount)
}

// TestAdjustedVsUnadjustedMountBound checks that resolving the constrained
// axes moves each actuator by no more than 0.5 micron of physical length on
// a well-conditioned geometry (the fixed-link adjustment magnitude bound).
func TestAdjustedVsUnadjustedMountBound(t *testing.T) {
	mirror, err := presets.Mir25mSecondary()
	test.That(t, err, test.ShouldBeNil)

	userOrient := []float64{
		umToMM(30),
		arcsecToRad(2),
		arcsecToRad(-1),
		umToMM(15),
		umToMM(-10),
	}

	adjusted, _, err := mirror.ActuatorMountFromOrient(userOrient, true)
	test.That(t, err, test.ShouldBeNil)
	unadjusted, _, err := mirror.ActuatorMountFromOrient(userOrient, false)
	test.That(t, err, test.ShouldBeNil)

	links := mirror.ActuatorLinks()
	for i := range adjusted {
		physDiff := math.Abs(links[i].PhysFromMount(adjusted[i]) - links[i].PhysFromMount(unadjusted[i]))
		test.That(t, physDiff, test.ShouldBeLessThan, umToMM(0.5))
	}
}

// TestAdjustableBaseRoundTrip exercises the lead-screw piston projection on
// the 3.5m secondary, whose actuators are all AdjustableBase, through both
// the actuator and encoder bases.
func TestAdjustableBaseRoundTrip(t *testing.T) {
	mirror, err := presets.Mir35mSecondary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mirror.NumActuators(), test.ShouldEqual, 5)
	test.That(t, mirror.NumAdjOrient(), test.ShouldEqual, 5)
	test.That(t, mirror.HasEncoders(), test.ShouldBeTrue)

	orient := []float64{
		umToMM(40),
		arcsecToRad(2.5),
		arcsecToRad(-2),
		umToMM(25),
		umToMM(-15),
	}

	mount, full, err := mirror.ActuatorMountFromOrient(orient, true)
	test.That(t, err, test.ShouldBeNil)
	recovered, err := mirror.OrientFromActuatorMount(mount, full)
	test.That(t, err, test.ShouldBeNil)

	posTol := umToMM(0.1)
	angTol := arcsecToRad(0.01)
	test.That(t, recovered.AlmostEqual(full, posTol, angTol), test.ShouldBeTrue)

	encMount, _, err := mirror.EncoderMountFromOrient(full[:], false)
	test.That(t, err, test.ShouldBeNil)
	encRecovered, err := mirror.OrientFromEncoderMount(encMount, full)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, encRecovered.AlmostEqual(full, posTol, angTol), test.ShouldBeTrue)
}

// TestTipTransRoundTrip exercises the equatorial-polar rotation path
// on the 2.5m secondary's transverse actuators.
func TestTipTransRoundTrip(t *testing.T) {
	mirror, err := presets.Mir25mSecondary()
	test.That(t, err, test.ShouldBeNil)

	orient := []float64{
		umToMM(15),
		arcsecToRad(2),
		arcsecToRad(-1.5),
		umToMM(5),
		umToMM(-5),
	}

	mount, full, err := mirror.ActuatorMountFromOrient(orient, true)
	test.That(t, err, test.ShouldBeNil)

	recovered, err := mirror.OrientFromActuatorMount(mount, full)
	test.That(t, err, test.ShouldBeNil)

	posTol := umToMM(0.1)
	angTol := arcsecToRad(0.01)
	test.That(t, recovered.AlmostEqual(full, posTol, angTol), test.ShouldBeTrue)
}
