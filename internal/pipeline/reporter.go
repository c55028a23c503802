package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fraud-eval/internal/dataset"
	"fraud-eval/internal/plot"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// Report file names
const (
	JSONReportFile    = "evaluation_results.json"
	MetricsReportFile = "metrics_report.csv"
	SummaryFile       = "evaluation_summary.txt"
)

// Reporter generates evaluation reports
type Reporter struct {
	results    *Results
	outputPath string

	// Normalize draws row proportions instead of counts on the images.
	Normalize bool
}

// NewReporter creates a new reporter
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes one confusion matrix image per model followed by
// the JSON, CSV and text reports.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateImages(); err != nil {
		return err
	}

	if err := r.generateJSONReport(); err != nil {
		return err
	}

	if err := r.generateMetricsReport(); err != nil {
		return err
	}

	if err := r.generateSummary(); err != nil {
		return err
	}

	return nil
}

// ImagePath returns where the confusion matrix of kind is written.
func (r *Reporter) ImagePath(kind string) string {
	return filepath.Join(r.outputPath, plot.FileName(kind))
}

func (r *Reporter) generateImages() error {
	for _, m := range r.results.Models {
		opts := plot.DefaultOptions(m.Title)
		opts.Normalize = r.Normalize

		path := r.ImagePath(m.Kind)
		if err := plot.SaveConfusionMatrix(path, m.Confusion, opts); err != nil {
			return fmt.Errorf("confusion matrix of %s: %w", m.Kind, err)
		}
		log.Info().Str("file", path).Str("model", m.Kind).Msg("Confusion matrix plot generated")
	}
	return nil
}

// generateJSONReport generates a JSON report with all scores
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, JSONReportFile)

	report := map[string]interface{}{
		"run_id": r.results.RunID,
		"summary": map[string]interface{}{
			"start_time":    r.results.StartTime,
			"end_time":      r.results.EndTime,
			"data_path":     r.results.DataPath,
			"train_rows":    r.results.TrainRows,
			"test_rows":     r.results.TestRows,
			"test_fraction": r.results.TestFraction,
			"seed":          r.results.Seed,
			"stratified":    r.results.Stratified,
			"scaler_fit_on": r.results.ScalerFitOn,
			"scaler_mean":   r.results.ScalerMean,
			"scaler_std":    r.results.ScalerStd,
		},
		"dataset":      r.results.Summary,
		"models":       r.results.Models,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// generateMetricsReport writes one CSV row per model
func (r *Reporter) generateMetricsReport() error {
	metricsPath := filepath.Join(r.outputPath, MetricsReportFile)
	file, err := os.Create(metricsPath)
	if err != nil {
		return fmt.Errorf("failed to create metrics report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Model", "Title", "Accuracy", "Precision", "Recall", "F1",
		"TN", "FP", "FN", "TP", "Fit Seconds",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, m := range r.results.Models {
		record := []string{
			m.Kind,
			m.Title,
			fmt.Sprintf("%.6f", m.Accuracy),
			fmt.Sprintf("%.6f", m.Precision),
			fmt.Sprintf("%.6f", m.Recall),
			fmt.Sprintf("%.6f", m.F1),
			strconv.Itoa(m.Confusion.TN()),
			strconv.Itoa(m.Confusion.FP()),
			strconv.Itoa(m.Confusion.FN()),
			strconv.Itoa(m.Confusion.TP()),
			fmt.Sprintf("%.3f", m.FitDuration.Seconds()),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write metrics report: %w", err)
	}

	log.Info().Str("file", metricsPath).Msg("Metrics report generated")
	return nil
}

// generateSummary writes the console summary to a text file
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.PrintSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

// PrintSummary prints case counts, amount statistics, split sizes and model
// scores to w.
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.results

	PrintDatasetSummary(w, res.Summary)

	fmt.Fprintf(w, "\n=== SPLIT ===\n")
	fmt.Fprintf(w, "Training rows: %s\n", humanize.Comma(int64(res.TrainRows)))
	fmt.Fprintf(w, "Test rows: %s\n", humanize.Comma(int64(res.TestRows)))
	fmt.Fprintf(w, "Stratified: %t, seed: %d\n\n", res.Stratified, res.Seed)

	fmt.Fprintf(w, "=== MODELS ===\n")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Model", "Accuracy", "F1", "Precision", "Recall", "TN", "FP", "FN", "TP", "Fit"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, m := range res.Models {
		table.Append([]string{
			m.Title,
			fmt.Sprintf("%.4f", m.Accuracy),
			fmt.Sprintf("%.4f", m.F1),
			fmt.Sprintf("%.4f", m.Precision),
			fmt.Sprintf("%.4f", m.Recall),
			humanize.Comma(int64(m.Confusion.TN())),
			humanize.Comma(int64(m.Confusion.FP())),
			humanize.Comma(int64(m.Confusion.FN())),
			humanize.Comma(int64(m.Confusion.TP())),
			m.FitDuration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

// PrintDatasetSummary prints case counts, the class balance and the
// per-class statistics of the summarised column.
func PrintDatasetSummary(w io.Writer, s dataset.Summary) {
	fmt.Fprintf(w, "\n=== DATASET ===\n")
	fmt.Fprintf(w, "Case count: %s\n", humanize.Comma(int64(s.Cases)))
	fmt.Fprintf(w, "Non-fraud count: %s\n", humanize.Comma(int64(s.LegitCount)))
	fmt.Fprintf(w, "Fraud count: %s\n", humanize.Comma(int64(s.FraudCount)))
	fmt.Fprintf(w, "Fraud cases: %.4f%%\n\n", s.FraudPercentage)

	fmt.Fprintf(w, "%s statistics\n", s.Column)
	stats := tablewriter.NewWriter(w)
	stats.SetHeader([]string{"Class", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max"})
	stats.SetAlignment(tablewriter.ALIGN_RIGHT)
	stats.Append(statsRow("Non-fraud", s.Legit))
	stats.Append(statsRow("Fraud", s.Fraud))
	stats.Render()
}

func statsRow(name string, st dataset.Stats) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		name,
		humanize.Comma(int64(st.Count)),
		f(st.Mean), f(st.Std), f(st.Min), f(st.Q25), f(st.Median), f(st.Q75), f(st.Max),
	}
}
