package protocol

import (
	"testing"

	"go.viam.com/test"
)

func TestParseReplyOK(t *testing.T) {
	test.That(t, ParseReply("OK").Kind, test.ShouldEqual, ReplyOK)
	test.That(t, ParseReply(":OK").Kind, test.ShouldEqual, ReplyOK)
	test.That(t, ParseReply("ok").Kind, test.ShouldEqual, ReplyOK)
}

func TestParseReplyErrors(t *testing.T) {
	r := ParseReply("?25 Variable not defined")
	test.That(t, r.Kind, test.ShouldEqual, ReplyError)
	test.That(t, r.Text, test.ShouldEqual, "?25 Variable not defined")

	// ?GOPOS is the one "?" line that does not fail the command.
	soft := ParseReply("?GOPOS full step error")
	test.That(t, soft.Kind, test.ShouldEqual, ReplySoftError)
}

func TestParseReplyEchoes(t *testing.T) {
	test.That(t, ParseReply("XQ #MOVE").Kind, test.ShouldEqual, ReplyEcho)
	test.That(t, ParseReply("xq#status").Kind, test.ShouldEqual, ReplyEcho)
	test.That(t, ParseReply("A=100").Kind, test.ShouldEqual, ReplyEcho)
	test.That(t, ParseReply("ST").Kind, test.ShouldEqual, ReplyEcho)
	test.That(t, ParseReply("RS").Kind, test.ShouldEqual, ReplyEcho)
}

func TestParseReplySingleKeyData(t *testing.T) {
	r := ParseReply("1, 1, 1, 0, 0 axis homed")
	test.That(t, r.Kind, test.ShouldEqual, ReplyData)
	test.That(t, r.Keys, test.ShouldResemble, []string{"axis homed"})
	test.That(t, r.Values, test.ShouldResemble, []string{"1", "1", "1", "0", "0"})

	pos := ParseReply("0000296087, 0000296087, 0000296087 actual position")
	test.That(t, pos.Kind, test.ShouldEqual, ReplyData)
	test.That(t, pos.Keys, test.ShouldResemble, []string{"actual position"})
	test.That(t, len(pos.Values), test.ShouldEqual, 3)
}

func TestParseReplyKeyListData(t *testing.T) {
	r := ParseReply("-001676.4874, 00001676.4874 min, max piezo position (microsteps)")
	test.That(t, r.Kind, test.ShouldEqual, ReplyData)
	test.That(t, len(r.Values), test.ShouldEqual, 2)
	test.That(t, r.Keys, test.ShouldResemble, []string{"min", "max piezo position (microsteps)"})
}

func TestParseReplyTimeEstimate(t *testing.T) {
	r := ParseReply("0300.1, 0300.1, 0300.1 max sec to find full step")
	test.That(t, r.Kind, test.ShouldEqual, ReplyData)
	test.That(t, r.Keys, test.ShouldResemble, []string{"max sec to find full step"})
	test.That(t, IsTimeEstimateKey(r.Keys[0]), test.ShouldBeTrue)
	test.That(t, IsTimeEstimateKey("sec to move actuators"), test.ShouldBeTrue)
	test.That(t, IsTimeEstimateKey("time for move"), test.ShouldBeTrue)
	test.That(t, IsTimeEstimateKey("actual position"), test.ShouldBeFalse)
}

func TestParseReplyParamLine(t *testing.T) {
	r := ParseReply("0062500 RNGx/2")
	test.That(t, r.Kind, test.ShouldEqual, ReplyData)
	test.That(t, r.Values, test.ShouldResemble, []string{"0062500"})
	test.That(t, r.Keys, test.ShouldResemble, []string{"RNGx/2"})
	test.That(t, IsParamKey(r.Keys[0]), test.ShouldBeTrue)
}

func TestParseReplyUnparsedText(t *testing.T) {
	r := ParseReply("Finding next full step")
	test.That(t, r.Kind, test.ShouldEqual, ReplyUnparsed)
	test.That(t, r.Text, test.ShouldEqual, "Finding next full step")
}

func TestParseReplyStripsControlCharacters(t *testing.T) {
	r := ParseReply(":OK\x01\x03")
	test.That(t, r.Kind, test.ShouldEqual, ReplyOK)
}

func TestParseGalilParamKey(t *testing.T) {
	name, ok := ParseGalilParamKey("RNGx/2")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, name, test.ShouldEqual, "HalfRNG")

	_, ok = ParseGalilParamKey("-RNGx/2")
	test.That(t, ok, test.ShouldBeFalse)

	name, ok = ParseGalilParamKey("AMPLx")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, name, test.ShouldEqual, "AMPL")
}

func TestParseIntValuesSentinel(t *testing.T) {
	vals, valid := ParseIntValues([]string{"100", "999999999", "-5"})
	test.That(t, vals[0], test.ShouldEqual, int64(100))
	test.That(t, valid[0], test.ShouldBeTrue)
	test.That(t, valid[1], test.ShouldBeFalse)
	test.That(t, vals[2], test.ShouldEqual, int64(-5))
	test.That(t, valid[2], test.ShouldBeTrue)
}

func TestDeviceVersionKey(t *testing.T) {
	test.That(t, IsDeviceVersionKey("version of M2-specific additions"), test.ShouldBeTrue)
	test.That(t, IsDeviceVersionKey("software version"), test.ShouldBeFalse)
}
