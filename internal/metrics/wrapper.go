package metrics

import (
	"time"

	"fraud-eval/internal/eval"

	"github.com/prometheus/client_golang/prometheus"
)

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
}

type MetricsHistogram interface {
	Observe(float64)
}

// Recorder is what the evaluation engine reports to.
type Recorder interface {
	ObserveModel(kind string, res eval.Result, fit time.Duration)
	ObserveDataset(total, train, test, frauds int)
	RunFinished(at time.Time)
	ErrorsInc()
}

var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = (*MetricsWrapper)(nil)
	_ Recorder = NopRecorder{}
)

// MetricsWrapper provides per-model accessors over Metrics and records
// through them.
type MetricsWrapper struct {
	*Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{Metrics: m}
}

// ObserveModel records the scores and fit time of one model.
func (w *MetricsWrapper) ObserveModel(kind string, res eval.Result, fit time.Duration) {
	w.Accuracy(kind).Set(res.Accuracy)
	w.F1(kind).Set(res.F1)
	w.FitDurationOf(kind).Observe(fit.Seconds())
	w.observeDetail(kind, res)
}

// ErrorsInc counts a failed stage.
func (w *MetricsWrapper) ErrorsInc() {
	w.Errors().Inc()
}

func (w *MetricsWrapper) Accuracy(kind string) MetricsGauge {
	return &GaugeWrapper{w.ModelAccuracy.WithLabelValues(kind)}
}

func (w *MetricsWrapper) F1(kind string) MetricsGauge {
	return &GaugeWrapper{w.ModelF1.WithLabelValues(kind)}
}

func (w *MetricsWrapper) FitDurationOf(kind string) MetricsHistogram {
	return &HistogramWrapper{w.FitDuration.WithLabelValues(kind)}
}

func (w *MetricsWrapper) Errors() MetricsCounter {
	return &CounterWrapper{w.ErrorsTotal}
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObserveModel(string, eval.Result, time.Duration) {}
func (NopRecorder) ObserveDataset(int, int, int, int)               {}
func (NopRecorder) RunFinished(time.Time)                           {}
func (NopRecorder) ErrorsInc()                                      {}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

type HistogramWrapper struct {
	h prometheus.Observer
}

func (hw *HistogramWrapper) Observe(v float64) {
	hw.h.Observe(v)
}
