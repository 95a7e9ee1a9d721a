package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"csv-telemetry-plotter/src/types"

	log "github.com/sirupsen/logrus"
)

// Scheduler runs one playback cycle at a time. Starting a cycle cancels and
// waits for the previous one before any new driver ticks.
type Scheduler struct {
	Interval time.Duration
	OnReveal func(Frame)

	cycleMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	drivers []*Driver
}

// DefaultInterval is the tick used when none is configured.
const DefaultInterval = 100 * time.Millisecond

func NewScheduler(interval time.Duration, onReveal func(Frame)) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{Interval: interval, OnReveal: onReveal}
}

// Start begins a new cycle with one driver per result.
func (s *Scheduler) Start(ctx context.Context, results []types.UploadResult) []*Driver {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.stop()

	interval := s.Interval
	cycleCtx, cancel := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}
	drivers := make([]*Driver, 0, len(results))
	for _, r := range results {
		drivers = append(drivers, NewDriver(r, s.OnReveal))
	}

	s.mu.Lock()
	s.cancel, s.wg, s.drivers = cancel, wg, drivers
	s.mu.Unlock()

	for _, d := range drivers {
		wg.Add(1)
		go func(d *Driver) {
			defer wg.Done()
			logger := log.WithField("file", d.FileName())
			logger.WithField("points", d.Total()).Debug("playback started")
			if err := d.Run(cycleCtx, interval); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Warn("playback stopped")
				return
			}
			logger.WithField("revealed", d.Revealed()).Debug("playback finished")
		}(d)
	}
	return drivers
}

// Stop cancels the running cycle, if any, and waits for its drivers to exit.
func (s *Scheduler) Stop() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.stop()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	cancel, wg := s.cancel, s.wg
	s.cancel, s.wg = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		wg.Wait()
	}
}

// Wait blocks until every driver of the current cycle has finished.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	wg := s.wg
	s.mu.Unlock()
	if wg != nil {
		wg.Wait()
	}
}

// Drivers returns the drivers of the current cycle, in result order.
func (s *Scheduler) Drivers() []*Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Driver(nil), s.drivers...)
}
