// Package protocol implements the Galil line protocol: a CR-terminated,
// mostly-ASCII text protocol where a command provokes zero or more data
// lines followed by a terminating "OK" or a "?"-prefixed error, interleaved
// with unsolicited parameter and status output.
package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// ReplyKind classifies one decoded line of device output.
type ReplyKind int

const (
	// ReplyData carries one or more key/value pairs parsed from a data
	// line, e.g. "0300.1,  0300.1,  0300.1 max sec to find home switch".
	ReplyData ReplyKind = iota
	// ReplySoftError is the device's "?GOPOS" full-step warning: reported
	// to the user but does not fail the in-flight command.
	ReplySoftError
	// ReplyError is any other "?"-prefixed line: the in-flight command
	// enters its failing state, pending a terminal OK.
	ReplyError
	// ReplyOK is the command-completion sentinel.
	ReplyOK
	// ReplyEcho is the device echoing back the command just sent (or a
	// bare axis-position echo); it carries no information and is dropped.
	ReplyEcho
	// ReplyUnparsed is a non-blank line that doesn't start with a number
	// and isn't one of the other kinds; shown to the user verbatim.
	ReplyUnparsed
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyData:
		return "Data"
	case ReplySoftError:
		return "SoftError"
	case ReplyError:
		return "Error"
	case ReplyOK:
		return "OK"
	case ReplyEcho:
		return "Echo"
	case ReplyUnparsed:
		return "Unparsed"
	default:
		return "Unknown"
	}
}

// Reply is one decoded line of Galil output.
type Reply struct {
	Kind ReplyKind
	Raw  string // the line as received, trimmed of control characters

	// Keys/Values are populated only for ReplyData. Either there is one
	// key shared by every value (e.g. one key, five actuator values), or
	// one key per value, never a mismatched count (see ParseReply).
	Keys   []string
	Values []string

	// Text carries the warning/error text for ReplySoftError, ReplyError,
	// and ReplyUnparsed.
	Text string
}

// controlCharCutset is the set of characters stripped from every incoming
// line, including the SOH/ETX/CAN bytes the Galil sometimes interleaves
// with its text.
const controlCharCutset = " ;\r\n\x01\x03\x18\x00"

var (
	// getDataRegEx matches every run of digits, '-' and '.' as a candidate
	// number; filterNumericTokens then drops any run touching a letter or
	// preceded by '/', so "RNGx/2" is not mistaken for data.
	getDataRegEx = regexp.MustCompile(`[0-9-.]+`)

	paramRegEx        = regexp.MustCompile(`^-?[A-Z]`)
	timeEstRegEx      = regexp.MustCompile(`(?i)^sec +to|^max +sec|^time +for`)
	okLineRegEx       = regexp.MustCompile(`(?i)^OK$`)
	devSpecVersionRgx = regexp.MustCompile(`(?i)version of .+ additions`)
	cmdEchoRegEx      = regexp.MustCompile(`(?i)xq *#[a-z]+$`)
	axisEchoRegEx     = regexp.MustCompile(`(?i)[A-Z]=-?(\d+)`)
	galCancelCmdRegEx = regexp.MustCompile(`(?i)^ST$`)
	galResetCmdRegEx  = regexp.MustCompile(`(?i)^RS$`)
	startsWithNumRgx  = regexp.MustCompile(`^-?[0-9]`)
	keySplitRegEx     = regexp.MustCompile(`,|(?:\?) `)
	spaceRunRegEx     = regexp.MustCompile(` +`)
)

// IsParamKey reports whether key names a Galil configuration parameter
// (leading capital letter, e.g. "RNGx/2" or "-RNGx/2") as opposed to a
// status descriptor like "axis homed".
func IsParamKey(key string) bool { return paramRegEx.MatchString(key) }

// IsTimeEstimateKey reports whether key introduces a move-duration
// estimate line ("max sec to find home switch", and similar).
func IsTimeEstimateKey(key string) bool { return timeEstRegEx.MatchString(key) }

// IsDeviceVersionKey reports whether key names a device-specific firmware
// version string.
func IsDeviceVersionKey(key string) bool { return devSpecVersionRgx.MatchString(key) }

// ParseReply decodes one raw line of Galil output (already split on CR by
// a Conn, but not yet trimmed) into a Reply. Branch order matters: error
// detection must precede echo detection, which must precede data parsing.
func ParseReply(raw string) Reply {
	line := strings.ReplaceAll(raw, ":", "")
	line = strings.Trim(line, controlCharCutset)

	if line == "" {
		return Reply{Kind: ReplyUnparsed, Raw: line}
	}
	if strings.HasPrefix(line, "?GOPOS") {
		return Reply{Kind: ReplySoftError, Raw: line, Text: line}
	}
	if strings.HasPrefix(line, "?") {
		return Reply{Kind: ReplyError, Raw: line, Text: line}
	}
	if okLineRegEx.MatchString(line) {
		return Reply{Kind: ReplyOK, Raw: line}
	}
	if cmdEchoRegEx.MatchString(line) || axisEchoRegEx.MatchString(line) ||
		galCancelCmdRegEx.MatchString(line) || galResetCmdRegEx.MatchString(line) {
		return Reply{Kind: ReplyEcho, Raw: line}
	}
	if !startsWithNumRgx.MatchString(line) {
		return Reply{Kind: ReplyUnparsed, Raw: line, Text: line}
	}

	keys, values, ok := splitKeysAndValues(line)
	if !ok {
		return Reply{Kind: ReplyUnparsed, Raw: line, Text: line}
	}
	return Reply{Kind: ReplyData, Raw: line, Keys: keys, Values: values}
}

// splitKeysAndValues pulls the numeric data out first, then splits the
// remaining descriptive text into one key (shared by all values) or one key
// per value.
//
// The key text starts after the len(values)-th run of spaces: it consumes at
// most that many whitespace-delimited tokens from the front and keeps
// everything after the last one consumed. Runs, not single spaces; data
// lines separate values with ", " and sometimes pad with double spaces.
func splitKeysAndValues(line string) (keys, values []string, ok bool) {
	values = getDataRegEx.FindAllString(line, -1)
	values = filterNumericTokens(line, values)

	textOnly := line
	if matches := spaceRunRegEx.FindAllStringIndex(line, len(values)); len(matches) > 0 {
		textOnly = line[matches[len(matches)-1][1]:]
	}

	rawKeys := keySplitRegEx.Split(textOnly, -1)
	keys = make([]string, len(rawKeys))
	for i, k := range rawKeys {
		keys[i] = strings.TrimSpace(k)
	}

	if len(keys) > 1 && len(keys) != len(values) {
		return nil, nil, false
	}
	return keys, values, true
}

// filterNumericTokens drops any getDataRegEx match that is part of a
// parameter name rather than a data value: a token preceded by '/' or
// touching a letter on either side is name text, not data. RE2 has no
// lookaround, so the positions are checked by hand.
func filterNumericTokens(line string, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	searchFrom := 0
	for _, c := range candidates {
		idx := strings.Index(line[searchFrom:], c)
		if idx < 0 {
			continue
		}
		start := searchFrom + idx
		end := start + len(c)
		searchFrom = end

		if start > 0 && line[start-1] == '/' {
			continue
		}
		if start > 0 && isLetter(line[start-1]) {
			continue
		}
		if end < len(line) && isLetter(line[end]) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ParseGalilParamKey applies the parameter rewrite rule to a parsed key:
// "-RNGx/2" is dropped entirely (reports ok=false), "RNGx/2" becomes
// "HalfRNG", and any other trailing "x" is stripped before the caller
// applies the "Galil" prefix.
func ParseGalilParamKey(key string) (paramName string, ok bool) {
	fields := strings.Fields(key)
	if len(fields) == 0 {
		return "", false
	}
	param := fields[0]
	switch param {
	case "-RNGx/2":
		return "", false
	case "RNGx/2":
		// Renamed first, then run through the same trailing-"x" strip as
		// every other parameter, leaving "HalfRNG" (not "HalfRNGx").
		param = "HalfRNGx"
	}
	param = strings.TrimSuffix(param, "x")
	return param, true
}

// ParseIntValues converts a Reply's Values to ints, treating 999999999 (the
// Galil's "no valid reading" sentinel) as reported via ok=false at that
// index rather than a numeric value.
func ParseIntValues(values []string) (out []int64, validMask []bool) {
	out = make([]int64, len(values))
	validMask = make([]bool, len(values))
	for i, v := range values {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		out[i] = n
		validMask[i] = n != 999999999
	}
	return out, validMask
}

// ParseFloatValues converts a Reply's Values to float64.
func ParseFloatValues(values []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
