package userio_test

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/sdss-legacy/mirrorctl/mverrors"
	"github.com/sdss-legacy/mirrorctl/userio"
)

func TestParseMoveConvertsUnits(t *testing.T) {
	cmd, err := userio.Parse("move 1000,3600,-3600")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd.Verb, test.ShouldEqual, userio.VerbMove)
	test.That(t, len(cmd.OrientMM), test.ShouldEqual, 3)
	// 1000 um -> 1 mm; 3600 arcsec -> 1 degree in radians.
	test.That(t, cmd.OrientMM[0], test.ShouldAlmostEqual, 1.0)
	test.That(t, cmd.OrientMM[1], test.ShouldAlmostEqual, math.Pi/180)
	test.That(t, cmd.OrientMM[2], test.ShouldAlmostEqual, -math.Pi/180)
}

func TestParseMoveRejectsInvalidAxisCounts(t *testing.T) {
	// Only 1, 3, or 5 values name a meaningful partial orientation.
	for _, text := range []string{"move 10,20", "move 10,20,30,40", "offset 10,20"} {
		_, err := userio.Parse(text)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, mverrors.Is(err, mverrors.KindValidation), test.ShouldBeTrue)
	}
}

func TestParseMoveNoArgs(t *testing.T) {
	cmd, err := userio.Parse("move")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(cmd.OrientMM), test.ShouldEqual, 0)
}

func TestParseMoveRejectsSixthAxis(t *testing.T) {
	// rotZ is never user-settable; at most five axes are accepted.
	_, err := userio.Parse("move 1,2,3,4,5,6")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, mverrors.Is(err, mverrors.KindValidation), test.ShouldBeTrue)
}

func TestParseMoveRejectsNonNumeric(t *testing.T) {
	_, err := userio.Parse("move 1,up,3")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseOffset(t *testing.T) {
	cmd, err := userio.Parse("offset -50")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd.Verb, test.ShouldEqual, userio.VerbOffset)
	test.That(t, cmd.OrientMM[0], test.ShouldAlmostEqual, -0.05)
}

func TestParseHomeAxes(t *testing.T) {
	cmd, err := userio.Parse("home A,c")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd.Verb, test.ShouldEqual, userio.VerbHome)
	test.That(t, cmd.Axes, test.ShouldResemble, []bool{true, false, true, false, false, false})

	all, err := userio.Parse("home")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all.Axes, test.ShouldBeNil)
}

func TestParseHomeRejectsBadAxis(t *testing.T) {
	_, err := userio.Parse("home A,G")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, mverrors.Is(err, mverrors.KindValidation), test.ShouldBeTrue)
}

func TestParseBareVerbs(t *testing.T) {
	for text, verb := range map[string]userio.Verb{
		"stop":       userio.VerbStop,
		"reset":      userio.VerbReset,
		"status":     userio.VerbStatus,
		"showparams": userio.VerbShowParams,
		"init":       userio.VerbInit,
	} {
		cmd, err := userio.Parse(text)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cmd.Verb, test.ShouldEqual, verb)
	}
}

func TestParseGalilRaw(t *testing.T) {
	cmd, err := userio.Parse("galil MG TIME")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd.Verb, test.ShouldEqual, userio.VerbGalil)
	test.That(t, cmd.Raw, test.ShouldEqual, "MG TIME")

	_, err = userio.Parse("galil")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseUnknownVerb(t *testing.T) {
	_, err := userio.Parse("fly 100")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, mverrors.Is(err, mverrors.KindValidation), test.ShouldBeTrue)
}
