// Package gauge renders the smart meter readout of the latest playback point.
package gauge

import (
	"fmt"
	"strconv"

	"csv-telemetry-plotter/src/types"
)

// Placeholder is shown for a missing value or time.
const Placeholder = "--"

func Render(r types.GaugeReading) string {
	return fmt.Sprintf("Smart Meter\nPower Consumption = %s KWH\nTime = %s hour\n", format(r.Value), format(r.Time))
}

func format(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
