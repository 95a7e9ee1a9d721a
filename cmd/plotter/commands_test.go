package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		_, fh, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if fh.Filename == "broken.csv" {
			http.Error(w, "cannot parse", http.StatusUnprocessableEntity)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"chartData":       []map[string]float64{{"index": 0, "value": 3}, {"index": 1, "value": 3}, {"index": 2, "value": 7}},
			"matchingIndices": []int{0, 1},
			"matchingValues":  []float64{3, 3},
		})
	})
	mux.HandleFunc("/detect_anomalies", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"anomalyIndices": []int{2},
			"anomalies":      []float64{7},
			"thresholds":     map[string]float64{"low": 1, "high": 5},
			"allValues":      []float64{3, 3, 7},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeCSV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("value\n3\n3\n7\n"), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"S3_BUCKET_NAME", "API_GATEWAY_URL", "PLOTTER_ANOMALY_MATCH", "PLOTTER_PLAYBACK_INTERVAL", "PLOTTER_HTTP_TIMEOUT"} {
		t.Setenv(key, "")
	}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlotWritesOneChartPerSurvivingFile(t *testing.T) {
	backend := fakeBackend(t)
	in, outDir := t.TempDir(), t.TempDir()
	a := writeCSV(t, in, "a.csv")
	broken := writeCSV(t, in, "broken.csv")

	out, err := runCLI(t, "--backend-url", backend.URL, "--interval", "1ms", "-o", outDir, "--width", "320", "--height", "200", "plot", a, broken)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(outDir, "a.png"))
	assert.NoFileExists(t, filepath.Join(outDir, "broken.png"))
	assert.Contains(t, out, "Index: 0, Value: 3")
	assert.Contains(t, out, "Index: 1, Value: 3")
	assert.Contains(t, out, "warning: upload failed for broken.csv")
	assert.Contains(t, out, "Power Consumption = 7 KWH")
}

func TestPlotFailsWhenEveryUploadFails(t *testing.T) {
	backend := fakeBackend(t)
	broken := writeCSV(t, t.TempDir(), "broken.csv")

	_, err := runCLI(t, "--backend-url", backend.URL, "--interval", "1ms", "-o", t.TempDir(), "plot", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.csv")
}

func TestPlotMissingFile(t *testing.T) {
	_, err := runCLI(t, "plot", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestAnomaliesWritesChartAndListing(t *testing.T) {
	backend := fakeBackend(t)
	in, outDir := t.TempDir(), t.TempDir()
	a := writeCSV(t, in, "meter.csv")
	b := writeCSV(t, in, "other.csv")

	out, err := runCLI(t, "--backend-url", backend.URL, "-o", outDir, "--anomaly-match", "index", "anomalies", a, b)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(outDir, "meter-anomalies.png"))
	assert.NoFileExists(t, filepath.Join(outDir, "other-anomalies.png"))
	assert.Contains(t, out, "thresholds: low=1 high=5")
	assert.Contains(t, out, "values: count=3 min=3 max=7")
	assert.Contains(t, out, "Index: 2, Value: 7")
}

func TestInvalidAnomalyMatchFlag(t *testing.T) {
	_, err := runCLI(t, "--anomaly-match", "nearest", "anomalies", "x.csv")
	require.Error(t, err)
}

func TestNonPositiveDurationFlagsAreRejected(t *testing.T) {
	backend := fakeBackend(t)
	a := writeCSV(t, t.TempDir(), "a.csv")

	for _, args := range [][]string{
		{"--interval", "0s"},
		{"--interval", "-5ms"},
		{"--timeout", "0s"},
	} {
		args := append(args, "--backend-url", backend.URL, "-o", t.TempDir(), "plot", "--live", a)
		var err error
		assert.NotPanics(t, func() { _, err = runCLI(t, args...) }, "%v", args)
		require.Error(t, err, "%v", args)
		assert.Contains(t, err.Error(), "must be positive")
	}
}

func TestPlotLiveFollowsPlayback(t *testing.T) {
	backend := fakeBackend(t)
	a := writeCSV(t, t.TempDir(), "a.csv")

	out, err := runCLI(t, "--backend-url", backend.URL, "--interval", "1ms", "-o", t.TempDir(), "plot", "--live", a)
	require.NoError(t, err)
	assert.Contains(t, out, "Power Consumption = 7 KWH")
}

func TestChartPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "run.png"), chartPath("out", "data/run.csv", ""))
	assert.Equal(t, filepath.Join("out", "run-anomalies.png"), chartPath("out", "run.csv", "-anomalies"))
	assert.Equal(t, filepath.Join("out", "noext.png"), chartPath("out", "noext", ""))
}
