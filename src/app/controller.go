// Package app owns the application state and the transitions between
// selecting files, uploading them, detecting anomalies and playback.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/playback"
	"csv-telemetry-plotter/src/render"
	"csv-telemetry-plotter/src/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNoSelection is returned by DetectAnomalies when no file is selected.
var ErrNoSelection = errors.New("no file selected")

// Analyzer is the remote backend.
type Analyzer interface {
	Upload(ctx context.Context, file types.File) (*types.UploadResult, error)
	DetectAnomalies(ctx context.Context, file types.File) (*types.AnomalyResult, error)
}

type RunRecorder interface {
	StoreRun(ctx context.Context, rec types.RunRecord) error
}

type FramePublisher interface {
	Publish(ctx context.Context, v interface{}) error
}

type ChartArchiver interface {
	PutChart(ctx context.Context, runID, name string, png []byte) (string, error)
}

// Options configures a Controller. Sinks left nil are skipped.
type Options struct {
	PlaybackInterval time.Duration
	MatchMode        chartdata.MatchMode

	Recorder  RunRecorder
	Publisher FramePublisher
	Archiver  ChartArchiver

	ChartWidth  int
	ChartHeight int
}

type Controller struct {
	analyzer  Analyzer
	opts      Options
	scheduler *playback.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	// runMu serializes Submit and DetectAnomalies so phase changes don't interleave.
	runMu sync.Mutex

	mu    sync.RWMutex
	files []types.File
	state State

	newRunID func() string
	now      func() time.Time
}

func New(analyzer Analyzer, opts Options) *Controller {
	if opts.MatchMode == "" {
		opts.MatchMode = chartdata.MatchByValue
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		analyzer: analyzer,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		state:    State{Files: []string{}, Results: []types.UploadResult{}},
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	c.scheduler = playback.NewScheduler(opts.PlaybackInterval, c.onReveal)
	return c
}

// SelectFiles replaces the current selection. Results already shown stay.
func (c *Controller) SelectFiles(files []types.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append([]types.File(nil), files...)
	c.state.Files = fileNames(files)
}

// Submit uploads every selected file concurrently. A failed file is logged and
// left out; the surviving results replace the previous ones in selection order
// and a fresh playback cycle starts for them.
func (c *Controller) Submit(ctx context.Context) []types.UploadResult {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	files := append([]types.File(nil), c.files...)
	c.state.Phase = Submitted
	c.mu.Unlock()

	slots := make([]*types.UploadResult, len(files))
	var g errgroup.Group
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			res, err := c.analyzer.Upload(ctx, f)
			if err != nil {
				log.WithError(err).WithField("file", f.Name).Error("error uploading file")
				return nil
			}
			slots[i] = res
			return nil
		})
	}
	_ = g.Wait()

	results := make([]types.UploadResult, 0, len(files))
	var failed []string
	for i, res := range slots {
		if res == nil {
			failed = append(failed, files[i].Name)
			continue
		}
		results = append(results, *res)
	}

	runID := c.newRunID()
	c.mu.Lock()
	c.state.Phase = Rendered
	c.state.RunID = runID
	c.state.Results = results
	c.state.FailedFiles = failed
	c.state.LastError = ""
	if len(failed) > 0 {
		c.state.LastError = fmt.Sprintf("upload failed for %s", strings.Join(failed, ", "))
	}
	c.mu.Unlock()

	log.WithFields(log.Fields{"run_id": runID, "files": len(files), "results": len(results)}).Info("upload batch finished")

	c.scheduler.Start(c.ctx, results)

	if len(results) > 0 {
		c.recordUploads(ctx, runID, files, results)
	}
	return results
}

// DetectAnomalies sends the first selected file to the anomaly endpoint. On
// failure the previous anomaly result is kept and the error returned. Without
// a selection nothing is sent and ErrNoSelection is returned.
func (c *Controller) DetectAnomalies(ctx context.Context) (*types.AnomalyResult, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	if len(c.files) == 0 {
		c.mu.Unlock()
		log.Warn("anomaly detection requested without a selected file")
		return nil, ErrNoSelection
	}
	file := c.files[0]
	prev := c.state.Phase
	c.state.Phase = Submitted
	c.mu.Unlock()

	res, err := c.analyzer.DetectAnomalies(ctx, file)
	if err != nil {
		log.WithError(err).WithField("file", file.Name).Error("error detecting anomalies")
		c.mu.Lock()
		c.state.Phase = prev
		c.state.LastError = fmt.Sprintf("anomaly detection failed for %s: %v", file.Name, err)
		c.mu.Unlock()
		return nil, err
	}

	runID := c.newRunID()
	c.mu.Lock()
	c.state.Phase = Rendered
	c.state.Anomaly = res
	c.state.LastError = ""
	c.mu.Unlock()

	log.WithFields(log.Fields{"run_id": runID, "file": file.Name, "anomalies": len(res.AnomalyIndices)}).Info("anomaly detection finished")

	c.recordAnomaly(ctx, runID, file, res)
	return res, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

func (c *Controller) MatchMode() chartdata.MatchMode { return c.opts.MatchMode }

// Drivers returns the playback drivers of the current cycle, one per result.
func (c *Controller) Drivers() []*playback.Driver { return c.scheduler.Drivers() }

// WaitPlayback blocks until the current playback cycle has finished.
func (c *Controller) WaitPlayback() { c.scheduler.Wait() }

// Close stops playback. The controller is unusable afterwards.
func (c *Controller) Close() {
	c.cancel()
	c.scheduler.Stop()
}

func (c *Controller) onReveal(f playback.Frame) {
	c.mu.Lock()
	c.state.Gauge = f.Reading
	c.mu.Unlock()

	if c.opts.Publisher == nil {
		return
	}
	if err := c.opts.Publisher.Publish(c.ctx, f); err != nil {
		log.WithError(err).WithField("file", f.FileName).Warn("failed to publish playback frame")
	}
}

func (c *Controller) recordUploads(ctx context.Context, runID string, files []types.File, results []types.UploadResult) {
	if c.opts.Recorder != nil {
		rec := types.RunRecord{
			RunID:     runID,
			Kind:      types.RunKindUpload,
			CreatedAt: c.now(),
			Files:     fileNames(files),
			Uploads:   results,
		}
		if err := c.opts.Recorder.StoreRun(ctx, rec); err != nil {
			log.WithError(err).WithField("run_id", runID).Warn("failed to record run")
		}
	}
	for _, r := range results {
		c.archive(ctx, runID, r.FileName, chartdata.MatchingOverlay(r))
	}
}

func (c *Controller) recordAnomaly(ctx context.Context, runID string, file types.File, res *types.AnomalyResult) {
	if c.opts.Recorder != nil {
		rec := types.RunRecord{
			RunID:     runID,
			Kind:      types.RunKindAnomaly,
			CreatedAt: c.now(),
			Files:     []string{file.Name},
			Anomaly:   res,
		}
		if err := c.opts.Recorder.StoreRun(ctx, rec); err != nil {
			log.WithError(err).WithField("run_id", runID).Warn("failed to record run")
		}
	}
	c.archive(ctx, runID, strings.TrimSuffix(file.Name, ".csv")+"-anomalies", chartdata.AnomalyOverlay(*res, c.opts.MatchMode))
}

func (c *Controller) archive(ctx context.Context, runID, name string, b chartdata.Bundle) {
	if c.opts.Archiver == nil {
		return
	}
	var buf bytes.Buffer
	if err := render.PNG(&buf, b, c.opts.ChartWidth, c.opts.ChartHeight); err != nil {
		log.WithError(err).WithField("file", name).Warn("failed to render chart for archive")
		return
	}
	key, err := c.opts.Archiver.PutChart(ctx, runID, name, buf.Bytes())
	if err != nil {
		log.WithError(err).WithField("file", name).Warn("failed to archive chart")
		return
	}
	log.WithFields(log.Fields{"run_id": runID, "key": key}).Debug("chart archived")
}

func fileNames(files []types.File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}
