// Package eval scores binary predictions against true labels.
package eval

import (
	"errors"
	"fmt"

	"fraud-eval/internal/common"
)

// ErrEmpty is returned when there is nothing to score.
var ErrEmpty = errors.New("no labels to evaluate")

// ConfusionMatrix counts predictions by true label (row) and predicted label
// (column).
type ConfusionMatrix [2][2]int

// Result contains the scores of one set of predictions.
type Result struct {
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1_score"`
	Confusion ConfusionMatrix `json:"confusion_matrix"`
}

// Evaluate compares predictions with the true labels. Fraud (1) is the
// positive class.
func Evaluate(yTrue, yPred []int) (Result, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return Result{}, err
	}
	p, r := cm.Precision(), cm.Recall()
	return Result{
		Accuracy:  cm.Accuracy(),
		Precision: p,
		Recall:    r,
		F1:        f1(p, r),
		Confusion: cm,
	}, nil
}

// Accuracy returns the share of predictions equal to the true label.
func Accuracy(yTrue, yPred []int) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Accuracy(), nil
}

// F1 returns the harmonic mean of precision and recall for the fraud class.
func F1(yTrue, yPred []int) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return f1(cm.Precision(), cm.Recall()), nil
}

func NewConfusionMatrix(yTrue, yPred []int) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if len(yTrue) != len(yPred) {
		return cm, fmt.Errorf("got %d true labels but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return cm, ErrEmpty
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if !valid(t) || !valid(p) {
			return ConfusionMatrix{}, fmt.Errorf("row %d: labels must be 0 or 1, got true=%d predicted=%d", i, t, p)
		}
		cm[t][p]++
	}
	return cm, nil
}

func valid(label int) bool {
	return label == common.LabelLegit || label == common.LabelFraud
}

func (cm ConfusionMatrix) TN() int { return cm[0][0] }
func (cm ConfusionMatrix) FP() int { return cm[0][1] }
func (cm ConfusionMatrix) FN() int { return cm[1][0] }
func (cm ConfusionMatrix) TP() int { return cm[1][1] }

// Total returns the number of scored predictions.
func (cm ConfusionMatrix) Total() int {
	return cm[0][0] + cm[0][1] + cm[1][0] + cm[1][1]
}

// Accuracy returns the trace over the total, or 0 for an empty matrix.
func (cm ConfusionMatrix) Accuracy() float64 {
	return ratio(cm.TN()+cm.TP(), cm.Total())
}

// Precision is TP/(TP+FP), 0 when nothing was predicted as fraud.
func (cm ConfusionMatrix) Precision() float64 {
	return ratio(cm.TP(), cm.TP()+cm.FP())
}

// Recall is TP/(TP+FN), 0 when there is no true fraud.
func (cm ConfusionMatrix) Recall() float64 {
	return ratio(cm.TP(), cm.TP()+cm.FN())
}

// F1 is 2PR/(P+R), 0 when both are 0.
func (cm ConfusionMatrix) F1() float64 {
	return f1(cm.Precision(), cm.Recall())
}

// Normalized returns every row divided by its sum. Empty rows stay zero.
func (cm ConfusionMatrix) Normalized() [2][2]float64 {
	var out [2][2]float64
	for r := range cm {
		sum := cm[r][0] + cm[r][1]
		for c := range cm[r] {
			out[r][c] = ratio(cm[r][c], sum)
		}
	}
	return out
}

// Max returns the largest cell.
func (cm ConfusionMatrix) Max() int {
	m := 0
	for _, row := range cm {
		for _, v := range row {
			m = max(m, v)
		}
	}
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
