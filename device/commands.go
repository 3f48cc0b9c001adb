package device

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// validAxisList names the Galil's axis letters, in the order actuators are
// wired; six is the maximum the controller addresses.
var validAxisList = []string{"A", "B", "C", "D", "E", "F"}

const maxint = "MAXINT"

// formatGalilCommand builds one Galil statement assigning values to axis
// variables followed by a command verb, e.g. "A=100; B=-200; XQ #MOVE".
// Values beyond len(values) (up to nAxes) are left as MAXINT, the Galil's
// "don't touch this axis" sentinel.
func formatGalilCommand(values []float64, cmd string, nAxes int) (string, error) {
	if len(values) > nAxes {
		return "", fmt.Errorf("too many values (%d > %d)", len(values), nAxes)
	}
	if nAxes > len(validAxisList) {
		return "", fmt.Errorf("nAxes too big (%d > %d)", nAxes, len(validAxisList))
	}

	args := make([]string, nAxes)
	for i := 0; i < nAxes; i++ {
		if i >= len(values) {
			args[i] = fmt.Sprintf("%s=%s", validAxisList[i], maxint)
			continue
		}
		args[i] = fmt.Sprintf("%s=%.0f", validAxisList[i], values[i])
	}
	return strings.Join(args, "; ") + "; " + cmd, nil
}

// formatGalilHome builds the home command for the given axes (true = home
// this axis). Axes not being homed are left as MAXINT, same as any other
// untouched axis, e.g. "A=1; B=MAXINT; C=1; XQ #HOME".
func formatGalilHome(axes []bool, nAxes int) string {
	args := make([]string, nAxes)
	for i := 0; i < nAxes; i++ {
		if i < len(axes) && axes[i] {
			args[i] = fmt.Sprintf("%s=1", validAxisList[i])
		} else {
			args[i] = fmt.Sprintf("%s=%s", validAxisList[i], maxint)
		}
	}
	return strings.Join(args, "; ") + "; XQ #HOME"
}

// formatPiezoCommand builds the fine-correction move for the three piezo
// actuators, e.g. "LDESPOSA=12; LDESPOSB=-4; LDESPOSC=0; XQ #LMOVE".
func formatPiezoCommand(corr []float64) string {
	letters := []string{"A", "B", "C"}
	args := make([]string, len(letters))
	for i, l := range letters {
		v := 0.0
		if i < len(corr) {
			v = corr[i]
		}
		args[i] = fmt.Sprintf("LDESPOS%s=%.0f", l, v)
	}
	return strings.Join(args, "; ") + "; XQ #LMOVE"
}

// forceOKSuffix ensures a raw user-supplied Galil line produces exactly one
// terminating "OK": a line whose last statement is an "XQ#..." program
// invocation (all of which print OK themselves) or an explicit MG "OK" is
// left alone; anything else gets '; MG "OK"' appended.
func forceOKSuffix(raw string) string {
	stmts := strings.Split(raw, ";")
	last := stmts[len(stmts)-1]
	last = strings.ToUpper(strings.ReplaceAll(last, " ", ""))
	if strings.HasPrefix(last, "XQ#") || last == `MG"OK"` {
		return raw
	}
	return raw + `; MG "OK"`
}

// isGalilSentinel reports whether a raw integer reading is the Galil's
// "no valid reading" marker.
func isGalilSentinel(v int64) bool { return v == 999999999 }

func nanIfSentinel(v int64, valid bool) float64 {
	if !valid || isGalilSentinel(v) {
		return math.NaN()
	}
	return float64(v)
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
