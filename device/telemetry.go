package device

import (
	"strconv"
	"strings"
	"time"
)

// Telemetry is one structured keyword-value line a Session publishes after
// any state transition that affects visible fields, e.g.
// "state=Moving,1,12,8.50,10.00" or "axisHomed=1,1,0,0,0,0".
type Telemetry struct {
	Keyword string
	Values  []string
}

// String renders the wire form: "Keyword=v1,v2,...".
func (t Telemetry) String() string {
	return t.Keyword + "=" + strings.Join(t.Values, ",")
}

// Phase is the "state" keyword's first field.
type Phase string

const (
	PhaseMoving   Phase = "Moving"
	PhaseDone     Phase = "Done"
	PhaseHoming   Phase = "Homing"
	PhaseFailed   Phase = "Failed"
	PhaseNotHomed Phase = "NotHomed"
)

// telemetryBacklog bounds the telemetry channel; Publish drops (and logs)
// a line rather than block the event loop on a slow or absent subscriber,
// since telemetry is best-effort status, not a command-completion signal.
const telemetryBacklog = 64

// Telemetry returns the channel Session publishes keyword-value status
// lines to. It is safe to never read from; Publish drops lines rather than
// block when the buffer is full.
func (s *Session) Telemetry() <-chan Telemetry {
	return s.telemetryCh
}

// Publish emits one keyword-value telemetry line. move.Controller, which
// tracks iteration-specific keywords (orient, cmdMount, mountErr, ...) that
// Session itself has no notion of, calls this directly; Session uses it
// for the keywords it derives from device replies.
func (s *Session) Publish(keyword string, values ...string) {
	select {
	case s.telemetryCh <- Telemetry{Keyword: keyword, Values: values}:
	default:
		s.log.Debugw("telemetry channel full, dropping line", "keyword", keyword)
	}
}

// SetIterState records move.Controller's current iteration counters so the
// next "state" line reports them, then emits that line. Session itself
// never iterates; only move.Controller calls this.
func (s *Session) SetIterState(iter, maxIter int) {
	s.statusMu.Lock()
	s.status.Iter = iter
	s.status.MaxIter = maxIter
	s.statusMu.Unlock()
	s.Publish("iter", strconv.Itoa(iter))
	s.Publish("maxIter", strconv.Itoa(maxIter))
	s.publishState()
}

// publishState computes and emits the condensed "state" keyword: phase,
// iter, maxIter, remaining duration, and max duration.
func (s *Session) publishState() {
	s.statusMu.Lock()
	phase := s.currentPhaseLocked()
	iter, maxIter := s.status.Iter, s.status.MaxIter
	maxDuration := s.status.MaxDuration.Seconds()
	started := s.status.Started
	remaining := 0.0
	if s.status.MaxDuration > 0 && !started.IsZero() {
		remaining = maxDuration - time.Since(started).Seconds()
		if remaining < 0 {
			remaining = 0
		}
	}
	s.statusMu.Unlock()

	s.Publish("state",
		string(phase),
		strconv.Itoa(iter),
		strconv.Itoa(maxIter),
		strconv.FormatFloat(remaining, 'f', 2, 64),
		strconv.FormatFloat(maxDuration, 'f', 2, 64))

	if !started.IsZero() {
		s.Publish("duration", strconv.FormatFloat(time.Since(started).Seconds(), 'f', 2, 64))
	}
}

// currentPhaseLocked derives the phase by priority: Homing beats Moving
// beats NotHomed beats Failed beats Done. Callers must hold statusMu.
func (s *Session) currentPhaseLocked() Phase {
	for _, homing := range s.status.Homing {
		if homing {
			return PhaseHoming
		}
	}
	if s.status.Moving {
		return PhaseMoving
	}
	for _, homed := range s.status.AxisHomed {
		if !homed {
			return PhaseNotHomed
		}
	}
	if s.status.Failed {
		return PhaseFailed
	}
	return PhaseDone
}

// FormatFloats renders a []float64 as decimal strings for a Telemetry line;
// exported so move.Controller can format the iteration-specific keywords
// (cmdMount, mountErr, netMountOffset, ...) it publishes through Session.
func FormatFloats(vals []float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}
	return out
}

func formatFloats(vals []float64) []string { return FormatFloats(vals) }

// formatBools renders a []bool as "1"/"0" strings for a Telemetry line.
func formatBools(vals []bool) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		if v {
			out[i] = "1"
		} else {
			out[i] = "0"
		}
	}
	return out
}
