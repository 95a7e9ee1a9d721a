// Package playback replays uploaded series one point per tick to simulate a
// live feed.
package playback

import (
	"context"
	"sync"
	"time"

	"csv-telemetry-plotter/src/types"
)

type Phase int32

const (
	Idle Phase = iota
	Running
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText lets phases appear by name in JSON state.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Frame is published for every revealed point.
type Frame struct {
	FileName string             `json:"fileName"`
	Position int                `json:"position"`
	Reading  types.GaugeReading `json:"reading"`
}

// Driver reveals one result incrementally. It owns its PlaybackState, so
// drivers of different files never share chart state.
type Driver struct {
	source   types.UploadResult
	matches  map[int]struct{}
	onReveal func(Frame)

	mu    sync.Mutex
	phase Phase
	next  int
	state types.PlaybackState
	gauge types.GaugeReading
}

func NewDriver(r types.UploadResult, onReveal func(Frame)) *Driver {
	matches := make(map[int]struct{}, len(r.MatchingIndices))
	for _, i := range r.MatchingIndices {
		matches[i] = struct{}{}
	}
	return &Driver{
		source:   r,
		matches:  matches,
		onReveal: onReveal,
		state: types.PlaybackState{
			Labels:      []float64{},
			Values:      []*float64{},
			Highlighted: []*float64{},
		},
	}
}

// Step reveals exactly one more point and reports whether it did. Once every
// point is revealed the driver is Done and Step is a no-op.
func (d *Driver) Step() bool {
	d.mu.Lock()
	if d.phase == Done {
		d.mu.Unlock()
		return false
	}
	if d.next >= len(d.source.ChartData) {
		d.phase = Done
		d.mu.Unlock()
		return false
	}

	pos := d.next
	p := d.source.ChartData[pos]
	value, index := p.Value, p.Index

	d.state.Labels = append(d.state.Labels, index)
	d.state.Values = append(d.state.Values, &value)
	if _, ok := d.matches[pos]; ok {
		highlighted := value
		d.state.Highlighted = append(d.state.Highlighted, &highlighted)
	} else {
		d.state.Highlighted = append(d.state.Highlighted, nil)
	}
	d.gauge = types.GaugeReading{Value: &value, Time: &index}
	d.next++
	if d.next == len(d.source.ChartData) {
		d.phase = Done
	} else {
		d.phase = Running
	}
	frame := Frame{FileName: d.source.FileName, Position: pos, Reading: d.gauge}
	d.mu.Unlock()

	if d.onReveal != nil {
		d.onReveal(frame)
	}
	return true
}

// Run ticks every interval until the series is exhausted or ctx is cancelled.
// A cancelled driver keeps whatever it revealed so far.
func (d *Driver) Run(ctx context.Context, interval time.Duration) error {
	d.mu.Lock()
	if d.phase == Idle {
		if len(d.source.ChartData) == 0 {
			d.phase = Done
		} else {
			d.phase = Running
		}
	}
	done := d.phase == Done
	d.mu.Unlock()
	if done {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Step()
			if d.Phase() == Done {
				return nil
			}
		}
	}
}

func (d *Driver) FileName() string { return d.source.FileName }

func (d *Driver) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Revealed is the number of points shown so far.
func (d *Driver) Revealed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next
}

func (d *Driver) Total() int { return len(d.source.ChartData) }

func (d *Driver) Gauge() types.GaugeReading {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gauge
}

// Snapshot returns a copy of the revealed chart state.
func (d *Driver) Snapshot() types.PlaybackState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return types.PlaybackState{
		Labels:      append([]float64{}, d.state.Labels...),
		Values:      append([]*float64{}, d.state.Values...),
		Highlighted: append([]*float64{}, d.state.Highlighted...),
	}
}
