package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fraud-eval/internal/cfg"
	"fraud-eval/internal/metrics"
	"fraud-eval/internal/pipeline"
	"fraud-eval/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runFlags struct {
	data, output, fitOn, history, metricsFile string
	models                                    []string
	testFraction                              float64
	seed                                      int64
	stratify, parallel, normalize             bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fit and score every configured classifier",
	Args:  cobra.NoArgs,
	Run:   runEvaluation,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.data, "data", "d", "", "input CSV file")
	f.StringVarP(&runFlags.output, "output", "o", "", "output directory for images and reports")
	f.StringSliceVarP(&runFlags.models, "models", "m", nil, "model kinds to evaluate (tree,knn,lr,svm,rf)")
	f.Float64Var(&runFlags.testFraction, "test-fraction", 0, "share of rows held out for scoring")
	f.Int64Var(&runFlags.seed, "seed", 0, "split and model seed")
	f.BoolVar(&runFlags.stratify, "stratify", false, "keep the class ratio in both partitions")
	f.StringVar(&runFlags.fitOn, "fit-on", "", "rows the amount scaler is fitted on: all or train")
	f.BoolVar(&runFlags.parallel, "parallel", false, "fit the models concurrently")
	f.BoolVar(&runFlags.normalize, "normalize", false, "draw row proportions instead of counts")
	f.StringVar(&runFlags.history, "history", "", "directory of the run history database")
	f.StringVar(&runFlags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
}

func applyRunFlags(cmd *cobra.Command, s *cfg.Settings) {
	f := cmd.Flags()
	if f.Changed("data") {
		s.DataPath = runFlags.data
	}
	if f.Changed("output") {
		s.OutputPath = runFlags.output
	}
	if f.Changed("models") {
		s.Models = runFlags.models
	}
	if f.Changed("test-fraction") {
		s.TestFraction = runFlags.testFraction
	}
	if f.Changed("seed") {
		s.SplitSeed = runFlags.seed
	}
	if f.Changed("stratify") {
		s.Stratify = runFlags.stratify
	}
	if f.Changed("fit-on") {
		s.ScalerFitOn = runFlags.fitOn
	}
	if f.Changed("parallel") {
		s.Parallel = runFlags.parallel
	}
	if f.Changed("normalize") {
		s.NormalizePlots = runFlags.normalize
	}
	if f.Changed("history") {
		s.HistoryPath = runFlags.history
	}
	if f.Changed("metrics-file") {
		s.MetricsFile = runFlags.metricsFile
	}
}

func runEvaluation(cmd *cobra.Command, _ []string) {
	settings := loadSettings()
	applyRunFlags(cmd, &settings)
	if err := settings.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := evaluate(ctx, &settings, os.Stdout); err != nil {
		if pipeline.IsCanceled(err) {
			log.Warn().Msg("Evaluation interrupted")
			return
		}
		log.Fatal().Err(err).Msg("Evaluation failed")
	}
}

// evaluate runs the engine and writes the reports, the summary and the
// metrics textfile. The textfile is written on failure as well.
func evaluate(ctx context.Context, settings *cfg.Settings, out io.Writer) error {
	registry := prometheus.NewRegistry()
	mw := metrics.NewWrapper(metrics.NewWithRegistry(registry))
	opts := []pipeline.Option{pipeline.WithRecorder(mw)}

	if settings.HistoryPath != "" {
		store, err := storage.New(settings.HistoryPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer store.Close()
		opts = append(opts, pipeline.WithHistory(store))
	}

	results, err := pipeline.NewEngine(settings, opts...).Run(ctx)
	if err != nil {
		writeMetrics(settings.MetricsFile, registry)
		return err
	}

	reporter := pipeline.NewReporter(results, settings.OutputPath)
	reporter.Normalize = settings.NormalizePlots
	if err := reporter.GenerateReport(); err != nil {
		mw.Errors().Inc()
		writeMetrics(settings.MetricsFile, registry)
		return fmt.Errorf("generate reports: %w", err)
	}

	reporter.PrintSummary(out)
	writeMetrics(settings.MetricsFile, registry)

	log.Info().
		Str("run_id", results.RunID).
		Str("output", settings.OutputPath).
		Msg("Evaluation completed successfully")
	return nil
}

func writeMetrics(path string, g prometheus.Gatherer) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, g); err != nil {
		log.Error().Err(err).Msg("Failed to write metrics")
		return
	}
	log.Info().Str("file", path).Msg("Metrics textfile written")
}
