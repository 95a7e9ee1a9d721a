package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"csv-telemetry-plotter/src/chartdata"
	"csv-telemetry-plotter/src/dynamo"
	"csv-telemetry-plotter/src/gauge"
	"csv-telemetry-plotter/src/server"
	"csv-telemetry-plotter/src/utils"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

func newPlotCmd(o *options) *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "plot FILE...",
		Short: "Upload CSV files, replay the results and write one chart per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args)
			if err != nil {
				return err
			}

			ctrl := o.controller()
			defer ctrl.Close()

			ctrl.SelectFiles(files)
			results := ctrl.Submit(cmd.Context())
			if len(results) == 0 {
				return errors.New(ctrl.Snapshot().LastError)
			}

			out := cmd.OutOrStdout()
			if live {
				followPlayback(cmd.Context(), o, out, ctrl.WaitPlayback, func() string {
					return gauge.Render(ctrl.Snapshot().Gauge)
				})
			} else {
				ctrl.WaitPlayback()
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			for i, r := range results {
				b, _ := ctrl.PlaybackBundle(i)
				path := chartPath(o.cfg.OutputDir, r.FileName, "")
				if err := writeChart(path, b, o.chartWidth, o.chartHeight); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s -> %s\n", r.FileName, path)
				entries, _ := ctrl.MatchingEntries(i)
				for _, e := range entries {
					fmt.Fprintf(out, "  %s\n", e)
				}
			}
			if s := ctrl.Snapshot(); s.LastError != "" {
				fmt.Fprintf(out, "warning: %s\n", s.LastError)
			}
			fmt.Fprint(out, gauge.Render(ctrl.Snapshot().Gauge))
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "print the gauge on every playback tick")
	return cmd
}

// followPlayback prints the gauge once per tick until wait returns.
func followPlayback(ctx context.Context, o *options, out io.Writer, wait func(), line func() string) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	ticker := time.NewTicker(o.cfg.PlaybackInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintln(out, line())
		}
	}
}

func newAnomaliesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "anomalies FILE...",
		Short: "Detect anomalies in the first file and write the anomaly chart",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args)
			if err != nil {
				return err
			}

			ctrl := o.controller()
			defer ctrl.Close()

			ctrl.SelectFiles(files)
			res, err := ctrl.DetectAnomalies(cmd.Context())
			if err != nil {
				return err
			}

			b, _ := ctrl.AnomalyBundle()
			path := chartPath(o.cfg.OutputDir, files[0].Name, "-anomalies")
			if err := writeChart(path, b, o.chartWidth, o.chartHeight); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s -> %s\n", files[0].Name, path)
			fmt.Fprintf(out, "thresholds: low=%g high=%g\n", res.Thresholds.Low, res.Thresholds.High)
			s := utils.Summarize(res.AllValues)
			fmt.Fprintf(out, "values: count=%d min=%g max=%g mean=%.4g std=%.4g\n", s.Count, s.Min, s.Max, s.Average, s.StandardDeviation)
			for _, e := range chartdata.AnomalyEntries(*res) {
				fmt.Fprintf(out, "  %s\n", e)
			}
			return nil
		},
	}
}

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := o.controller()
			defer ctrl.Close()

			h := server.NewHandler(ctrl)
			h.ChartWidth, h.ChartHeight = o.chartWidth, o.chartHeight
			srv := &http.Server{Addr: o.cfg.ListenAddr, Handler: h.Router()}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", o.cfg.ListenAddr).Info("dashboard listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to shut down dashboard: %w", err)
			}
			return nil
		},
	}
}

func newHistoryCmd(o *options) *cobra.Command {
	var since time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs from the DynamoDB runs table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := dynamo.NewRunStore(dynamo.GetDynamoDBClient(o.cfg.Region), o.cfg.RunsTable)
			runs, err := store.FetchHistory(cmd.Context(), time.Now().Add(-since), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tKIND\tCREATED\tFILES")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.RunID, r.Kind, r.CreatedAt.Format(time.RFC3339), len(r.Files))
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}
