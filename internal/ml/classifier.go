// Package ml implements the binary classifiers compared by an evaluation run.
//
// Every variant satisfies Classifier: it is fitted once on a dense feature
// matrix with 0/1 labels and then predicts a 0/1 label per row. The models
// live in memory only and are discarded after the run.
package ml

import (
	"errors"
	"fmt"

	"fraud-eval/internal/cfg"
	"fraud-eval/internal/common"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted is returned by Predict on a classifier that has not been
	// fitted.
	ErrNotFitted = errors.New("classifier not fitted")
	// ErrEmptyInput is returned for matrices without rows or columns.
	ErrEmptyInput = errors.New("empty input")
	// ErrSingleClass is returned when the training labels hold one class.
	ErrSingleClass = errors.New("training labels hold a single class")
	// ErrUnknownModel is returned by New for an unknown kind.
	ErrUnknownModel = errors.New("unknown model kind")
)

// Classifier is a binary classifier over dense feature matrices.
type Classifier interface {
	// Name returns the model kind, e.g. "tree".
	Name() string

	// Fit trains the classifier. y holds one 0/1 label per row of x.
	Fit(x *mat.Dense, y []int) error

	// Predict returns one 0/1 label per row of x.
	Predict(x *mat.Dense) ([]int, error)
}

// New builds the classifier of the given kind from its hyperparameters.
// seed drives every random choice the classifier makes.
func New(kind string, params cfg.Models, seed int64) (Classifier, error) {
	switch kind {
	case common.ModelTree:
		return NewDecisionTree(TreeParams{
			MaxDepth:  params.Tree.MaxDepth,
			Criterion: Criterion(params.Tree.Criterion),
			Seed:      seed,
		}), nil
	case common.ModelKNN:
		return NewKNN(params.KNN.Neighbors), nil
	case common.ModelLR:
		return NewLogisticRegression(params.LR.C, params.LR.MaxIter), nil
	case common.ModelSVM:
		return NewSVC(SVCParams{
			C:         params.SVM.C,
			Gamma:     params.SVM.Gamma,
			Tol:       params.SVM.Tol,
			MaxIter:   params.SVM.MaxIter,
			CacheRows: params.SVM.CacheRows,
		}), nil
	case common.ModelRF:
		return NewRandomForest(ForestParams{
			Trees:     params.RF.Trees,
			MaxDepth:  params.RF.MaxDepth,
			Criterion: Criterion(params.RF.Criterion),
			Seed:      seed,
		}), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, kind)
}

// checkFit validates a training set.
func checkFit(x *mat.Dense, y []int) (rows, cols int, err error) {
	if x == nil || x.IsEmpty() {
		return 0, 0, ErrEmptyInput
	}
	rows, cols = x.Dims()
	if rows != len(y) {
		return 0, 0, fmt.Errorf("got %d rows but %d labels", rows, len(y))
	}
	for i, label := range y {
		if label != common.LabelLegit && label != common.LabelFraud {
			return 0, 0, fmt.Errorf("label %d must be 0 or 1, got %d", i, label)
		}
	}
	return rows, cols, nil
}

// checkBothClasses fails when y holds a single class.
func checkBothClasses(y []int) error {
	fraud := 0
	for _, label := range y {
		fraud += label
	}
	if fraud == 0 || fraud == len(y) {
		return ErrSingleClass
	}
	return nil
}

// checkPredict validates an input matrix against the fitted feature count.
func checkPredict(x *mat.Dense, features int) (rows int, err error) {
	if x == nil || x.IsEmpty() {
		return 0, ErrEmptyInput
	}
	rows, cols := x.Dims()
	if cols != features {
		return 0, fmt.Errorf("got %d features, model was fitted on %d", cols, features)
	}
	return rows, nil
}

// threshold converts fraud probabilities into labels.
func threshold(proba []float64) []int {
	labels := make([]int, len(proba))
	for i, p := range proba {
		if p > 0.5 {
			labels[i] = common.LabelFraud
		}
	}
	return labels
}
