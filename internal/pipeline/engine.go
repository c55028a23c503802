// Package pipeline runs an evaluation end to end: it loads the transaction
// records, rescales the amount column, splits the rows, fits every
// configured classifier and scores it on the held-out rows. Reporter turns
// the collected Results into images and report files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fraud-eval/internal/cfg"
	"fraud-eval/internal/common"
	"fraud-eval/internal/dataset"
	"fraud-eval/internal/eval"
	"fraud-eval/internal/features"
	"fraud-eval/internal/metrics"
	"fraud-eval/internal/ml"
	"fraud-eval/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// History stores finished runs.
type History interface {
	SaveRun(run storage.RunRecord) error
}

// Engine represents the evaluation engine
type Engine struct {
	config   *cfg.Settings
	recorder metrics.Recorder
	history  History
	data     *dataset.Dataset
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports dataset sizes and model scores to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithHistory saves every finished run to h.
func WithHistory(h History) Option {
	return func(e *Engine) { e.history = h }
}

// WithDataset evaluates d instead of loading the configured CSV file. The
// engine rescales d in place.
func WithDataset(d *dataset.Dataset) Option {
	return func(e *Engine) { e.data = d }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// ModelResult is the outcome of one classifier.
type ModelResult struct {
	Kind        string        `json:"kind"`
	Title       string        `json:"title"`
	FitDuration time.Duration `json:"fit_duration"`
	Predictions []int         `json:"-"`
	eval.Result
}

// Results holds everything an evaluation run produced.
type Results struct {
	RunID        string          `json:"run_id"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	DataPath     string          `json:"data_path"`
	Summary      dataset.Summary `json:"summary"`
	TrainRows    int             `json:"train_rows"`
	TestRows     int             `json:"test_rows"`
	TestFraction float64         `json:"test_fraction"`
	Seed         int64           `json:"seed"`
	Stratified   bool            `json:"stratified"`
	ScalerFitOn  string          `json:"scaler_fit_on"`
	ScalerMean   float64         `json:"scaler_mean"`
	ScalerStd    float64         `json:"scaler_std"`
	Models       []ModelResult   `json:"models"`
	TestLabels   []int           `json:"-"`
}

// NewEngine creates a new evaluation engine
func NewEngine(config *cfg.Settings, opts ...Option) *Engine {
	e := &Engine{
		config:   config,
		recorder: metrics.NopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the evaluation. The context is checked between stages and
// between model fits.
func (e *Engine) Run(ctx context.Context) (*Results, error) {
	res, err := e.run(ctx)
	if err != nil {
		e.recorder.ErrorsInc()
		return nil, err
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context) (*Results, error) {
	res := &Results{
		RunID:        uuid.NewString(),
		StartTime:    e.now(),
		DataPath:     e.config.DataPath,
		TestFraction: e.config.TestFraction,
		Seed:         e.config.SplitSeed,
		Stratified:   e.config.Stratify,
		ScalerFitOn:  e.config.ScalerFitOn,
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("data", e.config.DataPath).
		Strs("models", e.config.Models).
		Msg("Starting evaluation")

	// Load
	d := e.data
	if d == nil {
		var err error
		if d, err = dataset.LoadCSV(e.config.DataPath, dataset.DefaultLoadOptions()); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
	} else {
		res.DataPath = ""
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Summary of the raw amounts
	summary, err := d.Describe(common.AmountColumn)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	res.Summary = summary
	log.Info().
		Int("cases", summary.Cases).
		Int("legit", summary.LegitCount).
		Int("fraud", summary.FraudCount).
		Float64("fraud_pct", summary.FraudPercentage).
		Msg("Dataset summary")

	// Split
	var split dataset.Split
	if e.config.Stratify {
		split, err = dataset.StratifiedSplit(d.Y, e.config.TestFraction, e.config.SplitSeed)
	} else {
		split, err = dataset.SplitIndices(d.Len(), e.config.TestFraction, e.config.SplitSeed)
	}
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	res.TrainRows, res.TestRows = len(split.Train), len(split.Test)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Scale
	scaler, err := features.ScaleColumn(d, common.AmountColumn, e.config.ScalerFitOn, split.Train)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	res.ScalerMean, res.ScalerStd = scaler.Mean, scaler.Std

	xTrain, yTrain := d.Matrix(split.Train)
	xTest, yTest := d.Matrix(split.Test)
	res.TestLabels = yTest
	e.recorder.ObserveDataset(d.Len(), res.TrainRows, res.TestRows, summary.FraudCount)

	log.Info().
		Int("train", res.TrainRows).
		Int("test", res.TestRows).
		Bool("stratified", e.config.Stratify).
		Msg("Data split")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Fit, predict, evaluate
	res.Models = make([]ModelResult, len(e.config.Models))
	if e.config.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, kind := range e.config.Models {
			g.Go(func() error {
				mr, err := e.evaluateModel(gctx, kind, xTrain, yTrain, xTest, yTest)
				if err != nil {
					return err
				}
				res.Models[i] = mr
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, kind := range e.config.Models {
			mr, err := e.evaluateModel(ctx, kind, xTrain, yTrain, xTest, yTest)
			if err != nil {
				return nil, err
			}
			res.Models[i] = mr
		}
	}

	res.EndTime = e.now()
	e.recorder.RunFinished(res.EndTime)

	if e.history != nil {
		if err := e.history.SaveRun(res.Record()); err != nil {
			// A failed history write does not fail the run.
			e.recorder.ErrorsInc()
			log.Error().Err(err).Str("run_id", res.RunID).Msg("Failed to save run history")
		}
	}

	log.Info().
		Str("run_id", res.RunID).
		Dur("elapsed", res.EndTime.Sub(res.StartTime)).
		Msg("Evaluation finished")
	return res, nil
}

func (e *Engine) evaluateModel(ctx context.Context, kind string, xTrain *mat.Dense, yTrain []int, xTest *mat.Dense, yTest []int) (ModelResult, error) {
	if err := ctx.Err(); err != nil {
		return ModelResult{}, err
	}
	clf, err := ml.New(kind, e.config.Params, e.config.SplitSeed)
	if err != nil {
		return ModelResult{}, err
	}

	start := time.Now()
	if err := clf.Fit(xTrain, yTrain); err != nil {
		return ModelResult{}, fmt.Errorf("fit %s: %w", kind, err)
	}
	fit := time.Since(start)

	pred, err := clf.Predict(xTest)
	if err != nil {
		return ModelResult{}, fmt.Errorf("predict %s: %w", kind, err)
	}
	score, err := eval.Evaluate(yTest, pred)
	if err != nil {
		return ModelResult{}, fmt.Errorf("evaluate %s: %w", kind, err)
	}
	e.recorder.ObserveModel(kind, score, fit)

	log.Info().
		Str("model", kind).
		Float64("accuracy", score.Accuracy).
		Float64("f1", score.F1).
		Dur("fit", fit).
		Msg("Model evaluated")

	return ModelResult{
		Kind:        kind,
		Title:       Title(kind),
		FitDuration: fit,
		Predictions: pred,
		Result:      score,
	}, nil
}

// Title returns the display name of a model kind.
func Title(kind string) string {
	if t, ok := common.ModelTitles[kind]; ok {
		return t
	}
	return kind
}

// Model returns the result of the given kind.
func (r *Results) Model(kind string) (ModelResult, bool) {
	for _, m := range r.Models {
		if m.Kind == kind {
			return m, true
		}
	}
	return ModelResult{}, false
}

// Record converts the results into a history entry.
func (r *Results) Record() storage.RunRecord {
	rec := storage.RunRecord{
		ID:           r.RunID,
		StartedAt:    r.StartTime,
		FinishedAt:   r.EndTime,
		DataPath:     r.DataPath,
		Rows:         r.Summary.Cases,
		Frauds:       r.Summary.FraudCount,
		TrainRows:    r.TrainRows,
		TestRows:     r.TestRows,
		TestFraction: r.TestFraction,
		Seed:         r.Seed,
		Stratified:   r.Stratified,
		ScalerFitOn:  r.ScalerFitOn,
		Models:       make([]storage.ModelRecord, 0, len(r.Models)),
	}
	for _, m := range r.Models {
		rec.Models = append(rec.Models, storage.ModelRecord{
			Kind:        m.Kind,
			Title:       m.Title,
			Accuracy:    m.Accuracy,
			Precision:   m.Precision,
			Recall:      m.Recall,
			F1:          m.F1,
			Confusion:   m.Confusion,
			FitDuration: m.FitDuration,
		})
	}
	return rec
}

// IsCanceled reports whether err stems from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
