package userio

import (
	"strconv"
	"strings"

	"github.com/sdss-legacy/mirrorctl/mverrors"
)

// Verb identifies a user command.
type Verb int

const (
	VerbMove Verb = iota
	VerbOffset
	VerbHome
	VerbStop
	VerbReset
	VerbStatus
	VerbShowParams
	VerbGalil
	VerbInit
)

func (v Verb) String() string {
	switch v {
	case VerbMove:
		return "move"
	case VerbOffset:
		return "offset"
	case VerbHome:
		return "home"
	case VerbStop:
		return "stop"
	case VerbReset:
		return "reset"
	case VerbStatus:
		return "status"
	case VerbShowParams:
		return "showparams"
	case VerbGalil:
		return "galil"
	case VerbInit:
		return "init"
	default:
		return "unknown"
	}
}

// maxOrientArgs is the largest number of axes a move/offset command can
// name: piston, tiltX, tiltY, transX, transY. RotZ is never user-settable;
// it is padded with zero and, on mirrors whose fixed links constrain it,
// resolved from them.
const maxOrientArgs = 5

// axisLetters names the axis letters accepted by the home command, in
// actuator order.
var axisLetters = "ABCDEF"

// Command is one parsed user command line.
type Command struct {
	Verb Verb

	// OrientMM holds move/offset arguments already converted to mm/rad, as
	// given (not yet padded to six axes; OrientationFromValues does that).
	OrientMM []float64

	// Axes holds one bool per axisLetters entry named by a home command; nil
	// means "home every actuator". Populated only for VerbHome.
	Axes []bool

	// Raw holds the verbatim text following "galil ".
	Raw string
}

// Parse decodes one user command line. Argument values for move/offset are
// expected in µm/arcsec and are converted to mm/rad here, at the boundary;
// nothing below this package ever sees user units.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, mverrors.NewValidationError("empty command")
	}

	fields := strings.SplitN(line, " ", 2)
	verbText := strings.ToLower(fields[0])
	var rest string
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	switch verbText {
	case "move", "offset":
		verb := VerbMove
		if verbText == "offset" {
			verb = VerbOffset
		}
		userVals, err := parseNumericArgs(rest, maxOrientArgs)
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: verb, OrientMM: OrientFromUserUnits(userVals)}, nil

	case "home":
		axes, err := parseAxisArgs(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbHome, Axes: axes}, nil

	case "stop":
		return Command{Verb: VerbStop}, nil

	case "reset":
		return Command{Verb: VerbReset}, nil

	case "status":
		return Command{Verb: VerbStatus}, nil

	case "showparams":
		return Command{Verb: VerbShowParams}, nil

	case "init":
		return Command{Verb: VerbInit}, nil

	case "galil":
		if rest == "" {
			return Command{}, mverrors.NewValidationError("galil command requires raw text")
		}
		return Command{Verb: VerbGalil, Raw: rest}, nil

	default:
		return Command{}, mverrors.NewValidationError("unrecognized verb %q", fields[0])
	}
}

// parseNumericArgs splits a comma-separated argument list into floats. An
// empty string yields zero values (every axis defaults to zero, per
// OrientationFromValues); otherwise only 1 (piston), 3 (plus tilts), or 5
// (plus translations) values name a meaningful partial orientation, and
// any other count is rejected.
func parseNumericArgs(rest string, max int) ([]float64, error) {
	if rest == "" {
		return nil, nil
	}
	parts := strings.Split(rest, ",")
	if len(parts) > max {
		return nil, mverrors.NewValidationError("too many arguments (%d > %d)", len(parts), max)
	}
	if len(parts) != 1 && len(parts) != 3 && len(parts) != 5 {
		return nil, mverrors.NewValidationError(
			"%d arguments; must be 1 (piston), 3 (piston,tilts), or 5 (piston,tilts,translations)", len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, mverrors.NewValidationError("argument %d (%q) is not a number", i+1, p)
		}
		out[i] = v
	}
	return out, nil
}

// parseAxisArgs splits a comma-separated axis-letter list into a per-axis
// bool mask (true = home this axis); an empty string means "every axis".
func parseAxisArgs(rest string) ([]bool, error) {
	if rest == "" {
		return nil, nil
	}
	axes := make([]bool, len(axisLetters))
	for _, p := range strings.Split(rest, ",") {
		letter := strings.ToUpper(strings.TrimSpace(p))
		idx := strings.IndexAny(axisLetters, letter)
		if len(letter) != 1 || idx < 0 {
			return nil, mverrors.NewValidationError("axis %q is not one of %s", p, axisLetters)
		}
		axes[idx] = true
	}
	return axes, nil
}
