package userio

import (
	"strconv"

	"github.com/sdss-legacy/mirrorctl/device"
)

// orientKeywords names the telemetry keywords carrying a full six-axis
// orientation in the controller's internal mm/rad representation; these
// are the only keywords FormatTelemetry rewrites into user units before
// handing the line to the command actor.
var orientKeywords = map[string]bool{
	"orient":      true,
	"desOrient":   true,
	"mountOrient": true,
}

// FormatTelemetry renders one device.Telemetry line for users: mount-unit
// and status keywords pass through verbatim (the Galil's own units), while
// the six-axis orientation keywords are converted from mm/rad to the
// µm/arcsec convention users see.
func FormatTelemetry(t device.Telemetry) string {
	if !orientKeywords[t.Keyword] || len(t.Values) != 6 {
		return t.String()
	}

	var mmRad [6]float64
	for i, v := range t.Values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return t.String()
		}
		mmRad[i] = f
	}
	userUnits := OrientToUserUnits(mmRad)
	return device.Telemetry{Keyword: t.Keyword, Values: device.FormatFloats(userUnits[:])}.String()
}
