// Package testharness provides a scripted fake Galil endpoint for testing
// device.Session without a real controller: a net.Pipe pair where the test
// goroutine plays the device end, asserting outbound statements and feeding
// scripted replies.
package testharness

import (
	"net"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/sdss-legacy/mirrorctl/protocol"
)

// FakeGalil is the test-double half of a Galil TCP connection.
type FakeGalil struct {
	raw  net.Conn
	conn *protocol.Conn
}

// NewFakeGalil returns a connected net.Conn pair: pass sessionSide to
// device.NewSession, and drive the returned FakeGalil from the test
// goroutine. Each end blocks on the other, exactly as net.Pipe's docs
// promise, which is what lets ExpectLine/SendLine synchronize with the
// session's event loop without a sleep.
func NewFakeGalil() (sessionSide net.Conn, fake *FakeGalil) {
	a, b := net.Pipe()
	return a, &FakeGalil{raw: b, conn: protocol.NewConn(b)}
}

// ExpectLine reads the next line the device under test sent and asserts it
// matches expected exactly.
func (f *FakeGalil) ExpectLine(tb testing.TB, expected string) {
	tb.Helper()
	line, err := f.conn.ReadLine()
	test.That(tb, err, test.ShouldBeNil)
	test.That(tb, line, test.ShouldEqual, expected)
}

// ExpectCommandSuffix reads the next line the device under test sent,
// asserts it ends with suffix (e.g. "XQ #MOVE"), and returns the full line
// for tests that can't predict the numeric prefix exactly (iterated move
// commands whose mounts depend on solver output).
func (f *FakeGalil) ExpectCommandSuffix(tb testing.TB, suffix string) string {
	tb.Helper()
	line, err := f.conn.ReadLine()
	test.That(tb, err, test.ShouldBeNil)
	test.That(tb, strings.HasSuffix(line, suffix), test.ShouldBeTrue)
	return line
}

// SendLine writes one scripted reply line, CR-terminated by the underlying
// Conn.
func (f *FakeGalil) SendLine(tb testing.TB, line string) {
	tb.Helper()
	test.That(tb, f.conn.WriteLine(line), test.ShouldBeNil)
}

// Exchange expects one outgoing statement, then sends the given scripted
// reply lines in order, the common shape of a single Galil command
// followed by zero or more data lines and a terminating OK.
func (f *FakeGalil) Exchange(tb testing.TB, expect string, replies ...string) {
	tb.Helper()
	f.ExpectLine(tb, expect)
	for _, r := range replies {
		f.SendLine(tb, r)
	}
}

// Close tears down the fake's half of the pipe.
func (f *FakeGalil) Close() error {
	return f.raw.Close()
}
