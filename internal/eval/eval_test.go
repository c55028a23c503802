package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		yTrue    []int
		yPred    []int
		wantCM   ConfusionMatrix
		wantAcc  float64
		wantPrec float64
		wantRec  float64
		wantF1   float64
	}{
		{
			name:    "perfect",
			yTrue:   []int{0, 0, 1, 1},
			yPred:   []int{0, 0, 1, 1},
			wantCM:  ConfusionMatrix{{2, 0}, {0, 2}},
			wantAcc: 1, wantPrec: 1, wantRec: 1, wantF1: 1,
		},
		{
			name:    "mixed",
			yTrue:   []int{0, 0, 0, 0, 1, 1, 1, 1},
			yPred:   []int{0, 0, 0, 1, 1, 1, 0, 0},
			wantCM:  ConfusionMatrix{{3, 1}, {2, 2}},
			wantAcc: 5.0 / 8, wantPrec: 2.0 / 3, wantRec: 0.5, wantF1: 4.0 / 7,
		},
		{
			name:    "no fraud predicted",
			yTrue:   []int{0, 0, 1},
			yPred:   []int{0, 0, 0},
			wantCM:  ConfusionMatrix{{2, 0}, {1, 0}},
			wantAcc: 2.0 / 3, wantPrec: 0, wantRec: 0, wantF1: 0,
		},
		{
			name:    "no true fraud",
			yTrue:   []int{0, 0, 0},
			yPred:   []int{0, 1, 0},
			wantCM:  ConfusionMatrix{{2, 1}, {0, 0}},
			wantAcc: 2.0 / 3, wantPrec: 0, wantRec: 0, wantF1: 0,
		},
		{
			name:    "all legit, all correct",
			yTrue:   []int{0, 0},
			yPred:   []int{0, 0},
			wantCM:  ConfusionMatrix{{2, 0}, {0, 0}},
			wantAcc: 1, wantPrec: 0, wantRec: 0, wantF1: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(tt.yTrue, tt.yPred)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCM, res.Confusion)
			assert.InDelta(t, tt.wantAcc, res.Accuracy, 1e-12)
			assert.InDelta(t, tt.wantPrec, res.Precision, 1e-12)
			assert.InDelta(t, tt.wantRec, res.Recall, 1e-12)
			assert.InDelta(t, tt.wantF1, res.F1, 1e-12)

			assert.Equal(t, len(tt.yTrue), res.Confusion.Total())
			assert.InDelta(t, res.Accuracy, res.Confusion.Accuracy(), 1e-12)
			assert.InDelta(t, res.F1, res.Confusion.F1(), 1e-12)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate(nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Evaluate([]int{0, 1}, []int{0})
	assert.Error(t, err)

	_, err = Evaluate([]int{0, 2}, []int{0, 1})
	assert.Error(t, err)

	_, err = Evaluate([]int{0, 1}, []int{-1, 1})
	assert.Error(t, err)
}

func TestAccuracyAndF1(t *testing.T) {
	yTrue := []int{0, 1, 1, 0, 1}
	yPred := []int{0, 1, 0, 0, 1}

	acc, err := Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, acc, 1e-12)

	f, err := F1(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, f, 1e-12)

	_, err = F1(nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestConfusionMatrix(t *testing.T) {
	cm := ConfusionMatrix{{90, 10}, {5, 15}}

	assert.Equal(t, 90, cm.TN())
	assert.Equal(t, 10, cm.FP())
	assert.Equal(t, 5, cm.FN())
	assert.Equal(t, 15, cm.TP())
	assert.Equal(t, 120, cm.Total())
	assert.Equal(t, 90, cm.Max())
	assert.InDelta(t, 105.0/120, cm.Accuracy(), 1e-12)

	n := cm.Normalized()
	assert.InDelta(t, 0.9, n[0][0], 1e-12)
	assert.InDelta(t, 0.1, n[0][1], 1e-12)
	assert.InDelta(t, 0.25, n[1][0], 1e-12)
	assert.InDelta(t, 0.75, n[1][1], 1e-12)

	empty := ConfusionMatrix{{4, 0}, {0, 0}}
	assert.Equal(t, [2][2]float64{{1, 0}, {0, 0}}, empty.Normalized())
	assert.Equal(t, 0.0, ConfusionMatrix{}.Accuracy())
}
