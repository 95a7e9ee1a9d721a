package app

import (
	"csv-telemetry-plotter/src/types"
)

type Phase int

const (
	// Idle: nothing submitted yet.
	Idle Phase = iota
	// Submitted: requests in flight.
	Submitted
	// Rendered: results are available; playback may still be running.
	Rendered
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Submitted:
		return "submitted"
	case Rendered:
		return "rendered"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// State is the application state visible to presenters. Results and Anomaly
// are replaced wholesale, never edited in place.
type State struct {
	Phase       Phase                `json:"phase"`
	Files       []string             `json:"files"`
	RunID       string               `json:"runId,omitempty"`
	Results     []types.UploadResult `json:"results"`
	FailedFiles []string             `json:"failedFiles,omitempty"`
	Anomaly     *types.AnomalyResult `json:"anomaly,omitempty"`
	Gauge       types.GaugeReading   `json:"gauge"`
	LastError   string               `json:"lastError,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Files = append([]string{}, s.Files...)
	out.Results = append([]types.UploadResult{}, s.Results...)
	out.FailedFiles = append([]string(nil), s.FailedFiles...)
	return out
}
