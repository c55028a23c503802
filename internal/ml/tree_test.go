package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDecisionTree_Threshold(t *testing.T) {
	x := mat.NewDense(6, 1, []float64{1, 2, 3, 10, 11, 12})
	y := []int{0, 0, 0, 1, 1, 1}

	for _, crit := range []Criterion{Gini, Entropy} {
		tree := NewDecisionTree(TreeParams{MaxDepth: 4, Criterion: crit})
		require.NoError(t, tree.Fit(x, y))

		assert.Equal(t, 1, tree.Depth())
		assert.Equal(t, 0, tree.root.feature)
		assert.InDelta(t, 6.5, tree.root.threshold, 1e-12)

		pred, err := tree.Predict(mat.NewDense(3, 1, []float64{6.5, 6.6, -100}))
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 0}, pred)
	}
}

func TestDecisionTree_MaxDepth(t *testing.T) {
	// Alternating labels need one split per point.
	n := 64
	data := make([]float64, n)
	y := make([]int, n)
	for i := range data {
		data[i] = float64(i)
		y[i] = i % 2
	}
	x := mat.NewDense(n, 1, data)

	for _, depth := range []int{1, 2, 4} {
		tree := NewDecisionTree(TreeParams{MaxDepth: depth, Criterion: Entropy})
		require.NoError(t, tree.Fit(x, y))
		assert.Equal(t, depth, tree.Depth())
	}

	// Unlimited depth grows until every leaf is pure.
	tree := NewDecisionTree(TreeParams{Criterion: Entropy})
	require.NoError(t, tree.Fit(x, y))
	assert.Greater(t, tree.Depth(), 4)
	pred, err := tree.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, y, pred)
}

func TestDecisionTree_Proba(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 1, 1, 5})
	y := []int{0, 0, 1, 1}

	tree := NewDecisionTree(TreeParams{MaxDepth: 4})
	require.NoError(t, tree.Fit(x, y))

	proba, err := tree.PredictProba(mat.NewDense(2, 1, []float64{1, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, proba[0], 1e-12)
	assert.InDelta(t, 1.0, proba[1], 1e-12)

	// Identical feature values cannot be separated further.
	pred, err := tree.Predict(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pred)
}

func TestDecisionTree_UnknownCriterion(t *testing.T) {
	tree := NewDecisionTree(TreeParams{Criterion: "log_loss"})
	err := tree.Fit(mat.NewDense(2, 1, []float64{0, 1}), []int{0, 1})
	assert.Error(t, err)
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, 1.5, midpoint(1, 2))
	next := 1.0000000000000002
	assert.Equal(t, 1.0, midpoint(1, next))
}

func TestRandomForest(t *testing.T) {
	x, y := blobs(50, 9, 3)

	f := NewRandomForest(ForestParams{Trees: 25, MaxDepth: 4, Seed: 11, Workers: 3})
	require.NoError(t, f.Fit(x, y))
	assert.Equal(t, 25, f.Size())

	proba, err := f.PredictProba(x)
	require.NoError(t, err)
	for _, p := range proba {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}

	// The worker count must not change the fitted forest.
	g := NewRandomForest(ForestParams{Trees: 25, MaxDepth: 4, Seed: 11, Workers: 1})
	require.NoError(t, g.Fit(x, y))
	other, err := g.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, proba, other)
}
