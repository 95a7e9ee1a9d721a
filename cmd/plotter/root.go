package main

import (
	"fmt"
	"time"

	"csv-telemetry-plotter/src/app"
	"csv-telemetry-plotter/src/archive"
	"csv-telemetry-plotter/src/backend"
	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/config"
	"csv-telemetry-plotter/src/dynamo"
	"csv-telemetry-plotter/src/logging"
	"csv-telemetry-plotter/src/websocket"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

type options struct {
	cfg config.Config

	backendURL  string
	interval    time.Duration
	timeout     time.Duration
	outputDir   string
	matchMode   string
	logLevel    string
	record      bool
	chartWidth  int
	chartHeight int
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           "plotter",
		Short:         "Plot CSV telemetry through the analytics backend",
		Long:          "Upload CSV files to the analytics backend, replay the returned series and render them as charts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.backendURL, "backend-url", "", "analytics backend base URL (env PLOTTER_BACKEND_URL)")
	flags.DurationVar(&o.interval, "interval", 0, "playback tick interval (env PLOTTER_PLAYBACK_INTERVAL)")
	flags.DurationVar(&o.timeout, "timeout", 0, "per-request HTTP timeout (env PLOTTER_HTTP_TIMEOUT)")
	flags.StringVarP(&o.outputDir, "out", "o", "", "directory for rendered charts (env PLOTTER_OUTPUT_DIR)")
	flags.StringVar(&o.matchMode, "anomaly-match", "", "anomaly membership: value or index (env PLOTTER_ANOMALY_MATCH)")
	flags.StringVar(&o.logLevel, "log-level", "", "log level (env LOG_LEVEL)")
	flags.BoolVar(&o.record, "record", false, "store runs in the DynamoDB runs table")
	flags.IntVar(&o.chartWidth, "width", 0, "chart width in pixels")
	flags.IntVar(&o.chartHeight, "height", 0, "chart height in pixels")

	rootCmd.AddCommand(newPlotCmd(o), newAnomaliesCmd(o), newServeCmd(o), newHistoryCmd(o))
	return rootCmd
}

// load reads the environment and lets explicitly set flags override it.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend-url") {
		cfg.BackendURL = o.backendURL
	}
	if flags.Changed("interval") {
		if o.interval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", o.interval)
		}
		cfg.PlaybackInterval = o.interval
	}
	if flags.Changed("timeout") {
		if o.timeout <= 0 {
			return fmt.Errorf("--timeout must be positive, got %s", o.timeout)
		}
		cfg.HTTPTimeout = o.timeout
	}
	if flags.Changed("out") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("anomaly-match") {
		if cfg.AnomalyMatch, err = chartdata.ParseMatchMode(o.matchMode); err != nil {
			return err
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := logging.Configure(cfg.LogLevel); err != nil {
		return err
	}

	o.cfg = cfg
	return nil
}

// controller wires the backend client and whichever sinks are configured.
func (o *options) controller() *app.Controller {
	cfg := o.cfg
	opts := app.Options{
		PlaybackInterval: cfg.PlaybackInterval,
		MatchMode:        cfg.AnomalyMatch,
		ChartWidth:       o.chartWidth,
		ChartHeight:      o.chartHeight,
	}

	if o.record {
		opts.Recorder = dynamo.NewRunStore(dynamo.GetDynamoDBClient(cfg.Region), cfg.RunsTable)
		log.WithField("table", cfg.RunsTable).Info("recording runs")
	}
	if cfg.APIGatewayURL != "" {
		db := dynamo.GetDynamoDBClient(cfg.Region)
		opts.Publisher = websocket.NewBroadcaster(
			websocket.GetApiGWClient(cfg.APIGatewayURL, cfg.Region),
			websocket.NewConnectionStore(db, cfg.ConnectionsTable),
		)
		log.WithField("endpoint", cfg.APIGatewayURL).Info("broadcasting playback frames")
	}
	if cfg.S3Bucket != "" {
		opts.Archiver = archive.New(archive.NewS3Client(cfg.Region), cfg.S3Bucket)
		log.WithField("bucket", cfg.S3Bucket).Info("archiving charts")
	}

	return app.New(backend.NewClient(cfg.BackendURL, cfg.HTTPTimeout), opts)
}
