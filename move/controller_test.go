package move

import (
	"testing"

	"go.viam.com/test"

	"github.com/sdss-legacy/mirrorctl/geometry"
)

func TestPistonOnlyDelta(t *testing.T) {
	c := &Controller{}
	base, err := geometry.OrientationFromValues([]float64{1, 2, 3, 4, 5, 6})
	test.That(t, err, test.ShouldBeNil)

	// No previous move recorded yet: never piston-only.
	test.That(t, c.pistonOnlyDelta(base), test.ShouldBeFalse)

	c.haveLast = true
	c.lastUserOrient = base

	pistonOnly := base
	pistonOnly[geometry.AxisPiston] += 0.5
	test.That(t, c.pistonOnlyDelta(pistonOnly), test.ShouldBeTrue)

	tiltChanged := base
	tiltChanged[geometry.AxisTiltX] += 0.5
	test.That(t, c.pistonOnlyDelta(tiltChanged), test.ShouldBeFalse)

	identical := base
	test.That(t, c.pistonOnlyDelta(identical), test.ShouldBeFalse)
}

func TestVecHelpers(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{0.5, 0.5, 0.5}

	test.That(t, addVec(a, b), test.ShouldResemble, []float64{1.5, 2.5, 3.5})
	test.That(t, subVec(a, b), test.ShouldResemble, []float64{0.5, 1.5, 2.5})
	test.That(t, vecEqual(a, a), test.ShouldBeTrue)
	test.That(t, vecEqual(a, b), test.ShouldBeFalse)
	test.That(t, vecEqual(a, []float64{1, 2}), test.ShouldBeFalse)
}
