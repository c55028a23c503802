// Package metrics exposes the scores of an evaluation run as Prometheus
// metrics. A batch run has no scrape endpoint, so the registry is written to
// a node_exporter textfile when the run finishes.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"fraud-eval/internal/eval"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fraudeval"

// Metrics holds all Prometheus metrics of an evaluation run.
type Metrics struct {
	// Model scores
	ModelAccuracy  *prometheus.GaugeVec // accuracy on the test partition
	ModelF1        *prometheus.GaugeVec // F1 of the fraud class
	ModelPrecision *prometheus.GaugeVec
	ModelRecall    *prometheus.GaugeVec
	ConfusionCount *prometheus.GaugeVec // cells of the confusion matrix

	// Run metrics
	DatasetRows      *prometheus.GaugeVec     // rows per partition
	FitDuration      *prometheus.HistogramVec // classifier fit time
	RunsTotal        prometheus.Counter
	LastRunTimestamp prometheus.Gauge
	ErrorsTotal      prometheus.Counter
}

// NewWithRegistry creates metrics on registerer. Runs use their own
// registry so the textfile holds nothing but this run's series.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ModelAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Accuracy of the model on the test partition",
		}, []string{"model"}),
		ModelF1: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_f1",
			Help:      "F1 score of the fraud class",
		}, []string{"model"}),
		ModelPrecision: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_precision",
			Help:      "Precision of the fraud class",
		}, []string{"model"}),
		ModelRecall: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_recall",
			Help:      "Recall of the fraud class",
		}, []string{"model"}),
		ConfusionCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "confusion_count",
			Help:      "Confusion matrix cell counts by true and predicted label",
		}, []string{"model", "true", "predicted"}),
		DatasetRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Number of rows per dataset partition",
		}, []string{"partition"}),
		FitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Time spent fitting a classifier",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"model"}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of completed evaluation runs",
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed evaluation run",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors encountered",
		}),
	}
}

// ObserveModel records the scores and fit time of one model.
func (m *Metrics) ObserveModel(kind string, res eval.Result, fit time.Duration) {
	m.ModelAccuracy.WithLabelValues(kind).Set(res.Accuracy)
	m.ModelF1.WithLabelValues(kind).Set(res.F1)
	m.FitDuration.WithLabelValues(kind).Observe(fit.Seconds())
	m.observeDetail(kind, res)
}

func (m *Metrics) observeDetail(kind string, res eval.Result) {
	m.ModelPrecision.WithLabelValues(kind).Set(res.Precision)
	m.ModelRecall.WithLabelValues(kind).Set(res.Recall)
	for t, row := range res.Confusion {
		for p, n := range row {
			m.ConfusionCount.WithLabelValues(kind, strconv.Itoa(t), strconv.Itoa(p)).Set(float64(n))
		}
	}
}

// ObserveDataset records the partition sizes of a run.
func (m *Metrics) ObserveDataset(total, train, test, frauds int) {
	m.DatasetRows.WithLabelValues("all").Set(float64(total))
	m.DatasetRows.WithLabelValues("train").Set(float64(train))
	m.DatasetRows.WithLabelValues("test").Set(float64(test))
	m.DatasetRows.WithLabelValues("fraud").Set(float64(frauds))
}

// RunFinished marks the end of a successful run.
func (m *Metrics) RunFinished(at time.Time) {
	m.RunsTotal.Inc()
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// ErrorsInc counts a failed stage.
func (m *Metrics) ErrorsInc() {
	m.ErrorsTotal.Inc()
}

// WriteTextfile writes every metric of g to path in the text exposition
// format. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
