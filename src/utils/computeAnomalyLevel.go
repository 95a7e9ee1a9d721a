package utils

import "math"

// AnomalyLevel grades how far a flagged value sits from its series mean.
type AnomalyLevel string

const (
	NoAnomaly     AnomalyLevel = "NO_ANOMALY"
	MediumAnomaly AnomalyLevel = "MEDIUM"
	HighAnomaly   AnomalyLevel = "ANOMALY"
)

func (a AnomalyLevel) String() string {
	switch a {
	case NoAnomaly, MediumAnomaly, HighAnomaly:
		return string(a)
	default:
		return "Unknown"
	}
}

// ComputeAnomalyLevel buckets the deviation of value from avg in units of std:
// within 2σ is NoAnomaly, within 3σ MediumAnomaly, beyond that HighAnomaly.
// A zero std only yields NoAnomaly for a value equal to the mean.
func ComputeAnomalyLevel(value, std, avg float64) AnomalyLevel {
	deviation := math.Abs(value - avg)

	if deviation <= 2*std {
		return NoAnomaly
	}

	if deviation <= 3*std {
		return MediumAnomaly
	}

	return HighAnomaly
}
