package device

import (
	"math"
	"time"

	"github.com/sdss-legacy/mirrorctl/geometry"
	"github.com/sdss-legacy/mirrorctl/protocol"
)

// applyData dispatches one ReplyData line to the status fields and
// telemetry keywords the session tracks. A line carries either one key
// shared by every value or one key per value; both shapes funnel through
// actOnKey.
func (s *Session) applyData(reply protocol.Reply) {
	if len(reply.Keys) == 1 {
		s.actOnKey(reply.Keys[0], reply.Values, reply.Raw)
		return
	}
	for i, key := range reply.Keys {
		if i >= len(reply.Values) {
			break
		}
		s.actOnKey(key, reply.Values[i:i+1], reply.Raw)
	}
}

func (s *Session) actOnKey(key string, values []string, raw string) {
	if s.seenKeys != nil {
		s.seenKeys[key] = true
	}
	switch {
	case key == "software version":
		s.Publish("GalilSoftwareVersion", values...)
	case protocol.IsDeviceVersionKey(key):
		s.Publish("GalilDeviceSoftwareVersion", values...)
	case protocol.IsParamKey(key):
		if name, ok := protocol.ParseGalilParamKey(key); ok {
			s.log.Debugw("device parameter", "name", name, "values", values)
			s.Publish("Galil"+name, values...)
		}
	case protocol.IsTimeEstimateKey(key):
		floats, err := protocol.ParseFloatValues(values)
		if err != nil {
			s.log.Warnw("unparsable time estimate", "raw", raw, "error", err)
			return
		}
		max := 0.0
		for _, f := range floats {
			if f > max {
				max = f
			}
		}
		s.statusMu.Lock()
		s.status.MaxDuration = secondsToDuration(max)
		s.status.Started = time.Now()
		s.statusMu.Unlock()
		s.Publish("maxDuration", values...)
		// Extend the in-flight device command's timeout to max+4s. The
		// user-command deadline's counterpart is the caller's context
		// deadline, not modeled inside Session.
		if s.current != nil {
			s.armTimeout(s.current.gen, secondsToDuration(max)+4*time.Second)
		}
		s.publishState()
	case key == "commanded position" || key == "target position":
		// Deliberately ignored: the model mount must not be updated from
		// this, or subsequent moves would compound against a stale value.
	case key == "actual position" || key == "final position":
		s.applyEncoderReadback(values)
		s.statusMu.Lock()
		orient := s.status.Orient
		actMount := append([]float64(nil), s.status.ActMount...)
		encMount := append([]float64(nil), s.status.EncMount...)
		s.statusMu.Unlock()
		s.Publish("encMount", formatFloats(encMount)...)
		s.Publish("orient", formatFloats(orient[:])...)
		s.Publish("actMount", formatFloats(actMount)...)
	case key == "axis homed":
		ints, valid := protocol.ParseIntValues(values)
		s.statusMu.Lock()
		for i, v := range ints {
			if i < len(s.status.AxisHomed) && valid[i] {
				s.status.AxisHomed[i] = v != 0
			}
		}
		axisHomed := append([]bool(nil), s.status.AxisHomed...)
		s.statusMu.Unlock()
		s.Publish("axisHomed", formatBools(axisHomed)...)
		s.publishState()
	case key == "status word":
		ints, _ := protocol.ParseIntValues(values)
		s.statusMu.Lock()
		copy(s.status.StatusWord, ints)
		s.statusMu.Unlock()
		s.Publish("status", values...)
	case key == "piezo status word" || key == "piezo corrections (microsteps)":
		s.applyPiezo(key, values)
		if key == "piezo status word" {
			s.Publish("piezoStatus", values...)
		} else {
			s.Publish("piezoCorr", values...)
		}
	default:
		s.log.Debugw("unrecognized device key", "key", key, "raw", raw)
		s.Publish("unknownReplyKey", key+"="+joinValues(values))
	}
}

func joinValues(values []string) string {
	if len(values) == 0 {
		return ""
	}
	out := values[0]
	for _, v := range values[1:] {
		out += "," + v
	}
	return out
}

// applyEncoderReadback accounts for the encoder-to-actuator spatial
// difference by re-solving the geometry from the reported encoder mount:
// the orientation is fit to the encoder reading, then converted back to
// the actuator basis.
func (s *Session) applyEncoderReadback(values []string) {
	ints, valid := protocol.ParseIntValues(values)

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	allValid := true
	for i := 0; i < s.nAct && i < len(ints); i++ {
		s.status.EncMount[i] = nanIfSentinel(ints[i], valid[i])
		if math.IsNaN(s.status.EncMount[i]) {
			allValid = false
		}
	}
	if !allValid {
		s.status.Orient = nanOrientation()
		for i := range s.status.ActMount {
			s.status.ActMount[i] = math.NaN()
		}
		return
	}

	seed := s.status.Orient
	if math.IsNaN(seed[0]) {
		// No orientation is known yet (fresh session); seed the solver
		// from neutral instead of poisoning it with NaN.
		seed = geometry.ZeroOrientation
	}
	orient, err := s.mirror.OrientFromEncoderMount(s.status.EncMount[:s.nAct], seed)
	if err != nil {
		s.log.Warnw("orientation solve from encoder mount failed", "error", err)
		return
	}
	mounts, full, err := s.mirror.ActuatorMountFromOrient(orient[:], true)
	if err != nil {
		s.log.Warnw("actuator mount from resolved orientation failed", "error", err)
	}
	s.status.Orient = full
	if len(mounts) == len(s.status.ActMount) {
		copy(s.status.ActMount, mounts)
	}
}

func (s *Session) applyPiezo(key string, values []string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	switch key {
	case "piezo status word":
		ints, _ := protocol.ParseIntValues(values)
		if len(ints) > 0 {
			s.status.PiezoStatus = ints[0]
		}
	case "piezo corrections (microsteps)":
		floats, err := protocol.ParseFloatValues(values)
		if err == nil {
			s.status.PiezoCorr = floats
		}
	}
}

func nanOrientation() (o [6]float64) {
	for i := range o {
		o[i] = math.NaN()
	}
	return o
}
