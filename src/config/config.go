package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/playback"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBackendURL       = "https://backend-research.vercel.app"
	DefaultPlaybackInterval = playback.DefaultInterval
	DefaultHTTPTimeout      = 60 * time.Second
	DefaultListenAddr       = ":8080"
	DefaultRegion           = "eu-west-1"
	DefaultRunsTable        = "PlotterRuns"
	DefaultConnectionsTable = "WebSocketConnections"
)

type Config struct {
	BackendURL       string
	PlaybackInterval time.Duration
	HTTPTimeout      time.Duration
	OutputDir        string
	AnomalyMatch     chartdata.MatchMode
	ListenAddr       string
	LogLevel         string

	Region           string
	RunsTable        string
	ConnectionsTable string
	S3Bucket         string
	APIGatewayURL    string
}

// Load reads .env.local (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load("./.env.local"); err != nil {
		log.Debug("no .env.local file found, using OS environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		BackendURL:       strings.TrimRight(get("PLOTTER_BACKEND_URL", DefaultBackendURL), "/"),
		OutputDir:        get("PLOTTER_OUTPUT_DIR", "."),
		ListenAddr:       get("PLOTTER_LISTEN_ADDR", DefaultListenAddr),
		LogLevel:         get("LOG_LEVEL", "info"),
		Region:           get("AWS_REGION", DefaultRegion),
		RunsTable:        get("RUNS_TABLE_NAME", DefaultRunsTable),
		ConnectionsTable: get("CONNECTIONS_TABLE_NAME", DefaultConnectionsTable),
		S3Bucket:         get("S3_BUCKET_NAME", ""),
		APIGatewayURL:    get("API_GATEWAY_URL", ""),
	}

	var err error
	if cfg.PlaybackInterval, err = parseDuration(get("PLOTTER_PLAYBACK_INTERVAL", ""), DefaultPlaybackInterval); err != nil {
		return Config{}, fmt.Errorf("PLOTTER_PLAYBACK_INTERVAL: %w", err)
	}
	if cfg.HTTPTimeout, err = parseDuration(get("PLOTTER_HTTP_TIMEOUT", ""), DefaultHTTPTimeout); err != nil {
		return Config{}, fmt.Errorf("PLOTTER_HTTP_TIMEOUT: %w", err)
	}
	if cfg.AnomalyMatch, err = chartdata.ParseMatchMode(get("PLOTTER_ANOMALY_MATCH", string(chartdata.MatchByValue))); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
