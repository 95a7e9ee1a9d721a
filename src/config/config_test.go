package config

import (
	"testing"
	"time"

	"csv-telemetry-plotter/src/chartdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultPlaybackInterval, cfg.PlaybackInterval)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, chartdata.MatchByValue, cfg.AnomalyMatch)
	assert.Equal(t, DefaultRunsTable, cfg.RunsTable)
	assert.Empty(t, cfg.S3Bucket)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PLOTTER_BACKEND_URL":       "http://localhost:5000/",
		"PLOTTER_PLAYBACK_INTERVAL": "250ms",
		"PLOTTER_ANOMALY_MATCH":     "INDEX",
		"S3_BUCKET_NAME":            "charts",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PlaybackInterval)
	assert.Equal(t, chartdata.MatchByIndex, cfg.AnomalyMatch)
	assert.Equal(t, "charts", cfg.S3Bucket)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"PLOTTER_PLAYBACK_INTERVAL": "fast"}))
	assert.Error(t, err)

	_, err = FromEnv(envMap(map[string]string{"PLOTTER_HTTP_TIMEOUT": "-1s"}))
	assert.Error(t, err)

	_, err = FromEnv(envMap(map[string]string{"PLOTTER_ANOMALY_MATCH": "fuzzy"}))
	assert.Error(t, err)
}
