package device_test

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"
	"go.viam.com/utils"

	"github.com/sdss-legacy/mirrorctl/device"
	"github.com/sdss-legacy/mirrorctl/device/testharness"
	"github.com/sdss-legacy/mirrorctl/geometry/presets"
	"github.com/sdss-legacy/mirrorctl/logging"
	"github.com/sdss-legacy/mirrorctl/mverrors"
)

func newTestSession(t *testing.T) (*device.Session, *testharness.FakeGalil) {
	t.Helper()
	mirror, err := presets.Mir25mPrimary()
	test.That(t, err, test.ShouldBeNil)

	sessionSide, fake := testharness.NewFakeGalil()
	log := logging.NewTestLogger(t)
	sess := device.NewSession(context.Background(), sessionSide, sessionSide, mirror, log)

	t.Cleanup(func() {
		test.That(t, sess.Close(), test.ShouldBeNil)
		fake.Close()
	})
	return sess, fake
}

func TestSessionMoveCompletes(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Move(context.Background(), []float64{100, 200, 300, 0, 0, 0})
		resultCh <- err
	})

	fake.Exchange(t, "A=100; B=200; C=300; D=0; E=0; F=0; XQ #MOVE", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for move to complete")
	}
}

func TestSessionDeviceErrorFailsCommand(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Raw(context.Background(), "XQ #BOGUS")
		resultCh <- err
	})

	fake.Exchange(t, "XQ #BOGUS", "?Unknown command", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldNotBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failing command")
	}
}

func TestSessionHomeLeavesOtherAxesAtMaxint(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Home(context.Background(), []bool{true, false, true, false, false, false})
		resultCh <- err
	})

	fake.Exchange(t, "A=1; B=MAXINT; C=1; D=MAXINT; E=MAXINT; F=MAXINT; XQ #HOME", "OK")
	// A successful home auto-refreshes status before reporting done.
	fake.Exchange(t, "XQ#STATUS", "1, 1, 1, 1, 1, 1 axis homed", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for home to complete")
	}
}

func TestSessionHomeAllRefreshesAxisHomed(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	statusCh := make(chan *device.Status, 1)
	utils.PanicCapturingGo(func() {
		status, err := sess.Home(context.Background(), nil)
		statusCh <- status
		resultCh <- err
	})

	fake.Exchange(t, "A=1; B=1; C=1; D=1; E=1; F=1; XQ #HOME",
		"0300.1, 0300.1, 0300.1 max sec to find full step",
		"OK")
	fake.Exchange(t, "XQ#STATUS", "1, 1, 1, 1, 1, 1 axis homed", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for home to complete")
	}
	status := <-statusCh
	for _, homed := range status.AxisHomed {
		test.That(t, homed, test.ShouldBeTrue)
	}
}

func TestSessionStatusCommand(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	statusCh := make(chan *device.Status, 1)
	utils.PanicCapturingGo(func() {
		status, err := sess.RefreshStatus(context.Background())
		statusCh <- status
		resultCh <- err
	})

	fake.Exchange(t, "XQ#STATUS",
		"1, 0, 1, 0, 0, 0 axis homed",
		"8196, 8196, 8196, 8196, 8196, 8196 status word",
		"OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status refresh")
	}
	status := <-statusCh
	test.That(t, status.AxisHomed[0], test.ShouldBeTrue)
	test.That(t, status.AxisHomed[1], test.ShouldBeFalse)
	test.That(t, status.StatusWord[0], test.ShouldEqual, int64(8196))
}

func TestSessionParamsPublishesRewrittenKeys(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Params(context.Background())
		resultCh <- err
	})

	fake.Exchange(t, "XQ#SHOWPAR",
		"0062500 RNGx/2",
		"-0062500 -RNGx/2",
		"OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for params dump")
	}

	var sawHalfRNG, sawNegHalfRNG bool
	for draining := true; draining; {
		select {
		case line := <-sess.Telemetry():
			if line.Keyword == "GalilHalfRNG" {
				sawHalfRNG = true
			}
			if line.Keyword == "Galil-HalfRNG" {
				sawNegHalfRNG = true
			}
		default:
			draining = false
		}
	}
	test.That(t, sawHalfRNG, test.ShouldBeTrue)
	// "-RNGx/2" is dropped entirely by the parameter rewrite rule.
	test.That(t, sawNegHalfRNG, test.ShouldBeFalse)
}

func TestSessionRawForcesOK(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Raw(context.Background(), "MG TIME")
		resultCh <- err
	})
	fake.Exchange(t, `MG TIME; MG "OK"`, "123456", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for raw command")
	}

	// A raw line already ending in an XQ# invocation is left alone.
	utils.PanicCapturingGo(func() {
		_, err := sess.Raw(context.Background(), "XQ#STATUS")
		resultCh <- err
	})
	fake.Exchange(t, "XQ#STATUS", "OK")
	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for raw XQ command")
	}
}

func TestSessionSoftErrorDoesNotFailCommand(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.RefreshStatus(context.Background())
		resultCh <- err
	})
	fake.Exchange(t, "XQ#STATUS", "?GOPOS full step error", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status with soft error")
	}
}

func TestSessionPiezoMove(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.PiezoMove(context.Background(), [3]float64{12, -4, 0})
		resultCh <- err
	})
	fake.Exchange(t, "LDESPOSA=12; LDESPOSB=-4; LDESPOSC=0; XQ #LMOVE", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for piezo move")
	}
}

func TestSessionCommandTimesOut(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Move(context.Background(), []float64{1, 2, 3, 4, 5, 6})
		resultCh <- err
	})
	// Read the move command but never reply; the per-line timeout fires.
	fake.ExpectLine(t, "A=1; B=2; C=3; D=4; E=5; F=6; XQ #MOVE")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, mverrors.Is(err, mverrors.KindDevice), test.ShouldBeTrue)
	case <-time.After(5 * time.Second):
		t.Fatal("device command never timed out")
	}
}

func TestSessionResetCompletesWithoutOK(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Reset(context.Background())
		resultCh <- err
	})
	fake.ExpectLine(t, "RS")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reset to self-complete")
	}
}

func TestSessionPublishesStateTransitions(t *testing.T) {
	sess, fake := newTestSession(t)

	resultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Move(context.Background(), []float64{1, 2, 3, 0, 0, 0})
		resultCh <- err
	})
	fake.Exchange(t, "A=1; B=2; C=3; D=0; E=0; F=0; XQ #MOVE", "OK")

	select {
	case err := <-resultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for move to complete")
	}

	var lines []device.Telemetry
	draining := true
	for draining {
		select {
		case line := <-sess.Telemetry():
			lines = append(lines, line)
		default:
			draining = false
		}
	}

	// AxisHomed starts all-false (no home command has run yet), so the
	// terminal phase here is NotHomed rather than Done.
	var sawMoving, sawNotHomed bool
	for _, line := range lines {
		if line.Keyword != "state" {
			continue
		}
		switch line.Values[0] {
		case "Moving":
			sawMoving = true
		case "NotHomed":
			sawNotHomed = true
		}
	}
	test.That(t, sawMoving, test.ShouldBeTrue)
	test.That(t, sawNotHomed, test.ShouldBeTrue)
}

func TestSessionStopPreemptsInFlight(t *testing.T) {
	sess, fake := newTestSession(t)

	moveResultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Move(context.Background(), []float64{1, 2, 3, 4, 5, 6})
		moveResultCh <- err
	})
	fake.ExpectLine(t, "A=1; B=2; C=3; D=4; E=5; F=6; XQ #MOVE")

	stopResultCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		_, err := sess.Stop(context.Background())
		stopResultCh <- err
	})
	fake.Exchange(t, "ST; XQ #STOP", "OK")

	select {
	case err := <-moveResultCh:
		test.That(t, err, test.ShouldNotBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for superseded move")
	}
	select {
	case err := <-stopResultCh:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stop to complete")
	}
}
