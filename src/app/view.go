package app

import (
	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/types"
)

// PlaybackBundle is the chart of result idx as revealed so far.
func (c *Controller) PlaybackBundle(idx int) (chartdata.Bundle, bool) {
	drivers := c.Drivers()
	if idx < 0 || idx >= len(drivers) {
		return chartdata.Bundle{}, false
	}
	d := drivers[idx]
	return chartdata.FromPlayback(d.FileName(), d.Snapshot()), true
}

// DriverGauge is the gauge reading of result idx.
func (c *Controller) DriverGauge(idx int) (types.GaugeReading, bool) {
	drivers := c.Drivers()
	if idx < 0 || idx >= len(drivers) {
		return types.GaugeReading{}, false
	}
	return drivers[idx].Gauge(), true
}

// MatchingEntries lists the matching values of result idx.
func (c *Controller) MatchingEntries(idx int) ([]chartdata.Entry, bool) {
	s := c.Snapshot()
	if idx < 0 || idx >= len(s.Results) {
		return nil, false
	}
	return chartdata.MatchingEntries(s.Results[idx]), true
}

// AnomalyBundle is the anomaly overlay of the current anomaly result, if any.
func (c *Controller) AnomalyBundle() (chartdata.Bundle, bool) {
	s := c.Snapshot()
	if s.Anomaly == nil {
		return chartdata.Bundle{}, false
	}
	return chartdata.AnomalyOverlay(*s.Anomaly, c.opts.MatchMode), true
}
