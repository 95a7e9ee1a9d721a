package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/playback"
	"csv-telemetry-plotter/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	mu        sync.Mutex
	calls     []string
	fail      map[string]bool
	delay     map[string]time.Duration
	anomalies *types.AnomalyResult
}

func (f *fakeAnalyzer) Upload(ctx context.Context, file types.File) (*types.UploadResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "upload:"+file.Name)
	fail, delay := f.fail[file.Name], f.delay[file.Name]
	f.mu.Unlock()

	time.Sleep(delay)
	if fail {
		return nil, fmt.Errorf("backend rejected %s", file.Name)
	}
	return &types.UploadResult{
		FileName:        file.Name,
		ChartData:       []types.Point{{Index: 0, Value: 1}, {Index: 1, Value: 2}},
		MatchingIndices: []int{1},
		MatchingValues:  []float64{2},
	}, nil
}

func (f *fakeAnalyzer) DetectAnomalies(ctx context.Context, file types.File) (*types.AnomalyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "anomaly:"+file.Name)
	if f.fail[file.Name] {
		return nil, errors.New("anomaly endpoint down")
	}
	res := *f.anomalies
	res.FileName = file.Name
	return &res, nil
}

type recorder struct {
	mu   sync.Mutex
	runs []types.RunRecord
	err  error
}

func (r *recorder) StoreRun(_ context.Context, rec types.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, rec)
	return r.err
}

type publisher struct {
	mu     sync.Mutex
	frames []playback.Frame
}

func (p *publisher) Publish(_ context.Context, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, v.(playback.Frame))
	return nil
}

type archiver struct {
	mu   sync.Mutex
	keys []string
}

func (a *archiver) PutChart(_ context.Context, runID, name string, png []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := runID + "/" + name
	a.keys = append(a.keys, key)
	return key, nil
}

func files(names ...string) []types.File {
	out := make([]types.File, 0, len(names))
	for _, n := range names {
		out = append(out, types.File{Name: n, Content: []byte("v\n1\n")})
	}
	return out
}

func newController(t *testing.T, a Analyzer, opts Options) *Controller {
	t.Helper()
	if opts.PlaybackInterval == 0 {
		opts.PlaybackInterval = time.Millisecond
	}
	c := New(a, opts)
	t.Cleanup(c.Close)
	return c
}

func TestInitialState(t *testing.T) {
	c := newController(t, &fakeAnalyzer{}, Options{})
	s := c.Snapshot()
	assert.Equal(t, Idle, s.Phase)
	assert.Empty(t, s.Results)
	assert.Nil(t, s.Anomaly)
	assert.Equal(t, chartdata.MatchByValue, c.MatchMode())
}

func TestSubmitDropsFailedFiles(t *testing.T) {
	a := &fakeAnalyzer{
		fail:  map[string]bool{"bad.csv": true},
		delay: map[string]time.Duration{"a.csv": 20 * time.Millisecond},
	}
	rec := &recorder{}
	c := newController(t, a, Options{Recorder: rec})
	c.SelectFiles(files("a.csv", "bad.csv", "c.csv"))

	results := c.Submit(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "a.csv", results[0].FileName)
	assert.Equal(t, "c.csv", results[1].FileName)

	s := c.Snapshot()
	assert.Equal(t, Rendered, s.Phase)
	assert.Equal(t, []string{"a.csv", "bad.csv", "c.csv"}, s.Files)
	assert.Equal(t, results, s.Results)
	assert.Equal(t, []string{"bad.csv"}, s.FailedFiles)
	assert.Contains(t, s.LastError, "bad.csv")
	assert.NotEmpty(t, s.RunID)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, types.RunKindUpload, rec.runs[0].Kind)
	assert.Equal(t, s.RunID, rec.runs[0].RunID)
	assert.Len(t, rec.runs[0].Uploads, 2)
}

func TestSubmitReplacesPreviousResults(t *testing.T) {
	c := newController(t, &fakeAnalyzer{}, Options{})
	c.SelectFiles(files("a.csv", "b.csv"))
	c.Submit(context.Background())

	c.SelectFiles(files("z.csv"))
	results := c.Submit(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, []types.UploadResult{results[0]}, c.Snapshot().Results)
	assert.Len(t, c.Drivers(), 1)
}

func TestSubmitAllFail(t *testing.T) {
	a := &fakeAnalyzer{fail: map[string]bool{"x.csv": true}}
	rec := &recorder{}
	c := newController(t, a, Options{Recorder: rec})
	c.SelectFiles(files("x.csv"))

	assert.Empty(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, Rendered, s.Phase)
	assert.Empty(t, s.Results)
	assert.Empty(t, rec.runs)
}

func TestSubmitNoFiles(t *testing.T) {
	a := &fakeAnalyzer{}
	c := newController(t, a, Options{})
	assert.Empty(t, c.Submit(context.Background()))
	assert.Empty(t, a.calls)
}

func TestSubmitStartsPlaybackAndPublishesFrames(t *testing.T) {
	pub := &publisher{}
	arch := &archiver{}
	c := newController(t, &fakeAnalyzer{}, Options{Publisher: pub, Archiver: arch})
	c.SelectFiles(files("a.csv", "b.csv"))
	c.Submit(context.Background())
	c.WaitPlayback()

	drivers := c.Drivers()
	require.Len(t, drivers, 2)
	for _, d := range drivers {
		assert.Equal(t, playback.Done, d.Phase())
		assert.Equal(t, 2, d.Revealed())
	}

	g := c.Snapshot().Gauge
	require.NotNil(t, g.Value)
	assert.Equal(t, 2.0, *g.Value)
	assert.Equal(t, 1.0, *g.Time)

	pub.mu.Lock()
	assert.Len(t, pub.frames, 4)
	pub.mu.Unlock()
	assert.Len(t, arch.keys, 2)

	b, ok := c.PlaybackBundle(1)
	require.True(t, ok)
	assert.Equal(t, "b.csv", b.Title)
	assert.Len(t, b.Labels, 2)
	_, ok = c.PlaybackBundle(2)
	assert.False(t, ok)

	gauge, ok := c.DriverGauge(0)
	require.True(t, ok)
	assert.Equal(t, 2.0, *gauge.Value)

	entries, ok := c.MatchingEntries(0)
	require.True(t, ok)
	assert.Equal(t, "Index: 1, Value: 2", entries[0].String())
}

func TestDetectAnomaliesUsesFirstFile(t *testing.T) {
	a := &fakeAnalyzer{anomalies: &types.AnomalyResult{
		AnomalyIndices: []int{1},
		Anomalies:      []float64{9},
		Thresholds:     types.Thresholds{Low: 2, High: 8},
		AllValues:      []float64{5, 9, 5},
	}}
	rec := &recorder{}
	c := newController(t, a, Options{Recorder: rec})
	c.SelectFiles(files("first.csv", "second.csv"))

	res, err := c.DetectAnomalies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first.csv", res.FileName)
	assert.Equal(t, []string{"anomaly:first.csv"}, a.calls)

	s := c.Snapshot()
	assert.Equal(t, Rendered, s.Phase)
	require.NotNil(t, s.Anomaly)
	assert.Equal(t, "first.csv", s.Anomaly.FileName)

	b, ok := c.AnomalyBundle()
	require.True(t, ok)
	assert.Len(t, b.Datasets, 4)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, types.RunKindAnomaly, rec.runs[0].Kind)
}

func TestDetectAnomaliesFailureKeepsPriorState(t *testing.T) {
	a := &fakeAnalyzer{anomalies: &types.AnomalyResult{AllValues: []float64{1}}}
	c := newController(t, a, Options{})
	c.SelectFiles(files("good.csv"))
	_, err := c.DetectAnomalies(context.Background())
	require.NoError(t, err)

	a.fail = map[string]bool{"broken.csv": true}
	c.SelectFiles(files("broken.csv"))
	_, err = c.DetectAnomalies(context.Background())
	require.Error(t, err)

	s := c.Snapshot()
	require.NotNil(t, s.Anomaly)
	assert.Equal(t, "good.csv", s.Anomaly.FileName)
	assert.Equal(t, Rendered, s.Phase)
	assert.Contains(t, s.LastError, "broken.csv")
}

func TestDetectAnomaliesFailureFromIdle(t *testing.T) {
	a := &fakeAnalyzer{fail: map[string]bool{"x.csv": true}}
	c := newController(t, a, Options{})
	c.SelectFiles(files("x.csv"))
	_, err := c.DetectAnomalies(context.Background())
	require.Error(t, err)
	assert.Equal(t, Idle, c.Snapshot().Phase)
	_, ok := c.AnomalyBundle()
	assert.False(t, ok)
}

func TestDetectAnomaliesWithoutSelection(t *testing.T) {
	a := &fakeAnalyzer{}
	c := newController(t, a, Options{})
	res, err := c.DetectAnomalies(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Nil(t, res)
	assert.Empty(t, a.calls)
	assert.Equal(t, Idle, c.Snapshot().Phase)
}

type gatedAnalyzer struct {
	fakeAnalyzer
	started chan struct{}
	release chan struct{}
}

func (g *gatedAnalyzer) DetectAnomalies(ctx context.Context, file types.File) (*types.AnomalyResult, error) {
	close(g.started)
	<-g.release
	return nil, errors.New("anomaly endpoint down")
}

func TestFailedDetectionDoesNotOverwriteConcurrentUpload(t *testing.T) {
	a := &gatedAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	c := newController(t, a, Options{})
	c.SelectFiles(files("a.csv"))

	detectErr := make(chan error, 1)
	go func() {
		_, err := c.DetectAnomalies(context.Background())
		detectErr <- err
	}()
	<-a.started

	submitted := make(chan struct{})
	go func() {
		c.Submit(context.Background())
		close(submitted)
	}()

	select {
	case <-submitted:
		t.Fatal("upload finished while anomaly detection was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(a.release)
	require.Error(t, <-detectErr)
	<-submitted

	s := c.Snapshot()
	assert.Equal(t, Rendered, s.Phase)
	assert.Len(t, s.Results, 1)
	assert.Empty(t, s.LastError)
}

func TestRecorderFailureDoesNotChangeState(t *testing.T) {
	rec := &recorder{err: errors.New("table missing")}
	c := newController(t, &fakeAnalyzer{}, Options{Recorder: rec})
	c.SelectFiles(files("a.csv"))
	assert.Len(t, c.Submit(context.Background()), 1)
	assert.Empty(t, c.Snapshot().LastError)
}
