package dataset

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIndices_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		f         float64
		wantTrain int
		wantTest  int
	}{
		{1000, 0.2, 800, 200},
		{10, 0.2, 8, 2},
		{7, 0.2, 6, 1},
		{100, 0.29, 71, 29},
		{5, 0.5, 3, 2},
	}

	for _, tt := range tests {
		s, err := SplitIndices(tt.n, tt.f, 0)
		require.NoError(t, err)
		assert.Len(t, s.Train, tt.wantTrain, "n=%d f=%v", tt.n, tt.f)
		assert.Len(t, s.Test, tt.wantTest, "n=%d f=%v", tt.n, tt.f)
	}
}

func TestSplitIndices_Partition(t *testing.T) {
	s, err := SplitIndices(537, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, 537, len(s.Train)+len(s.Test))
	all := append(append([]int{}, s.Train...), s.Test...)
	sort.Ints(all)
	for i, v := range all {
		require.Equal(t, i, v, "indices must be disjoint and cover every row")
	}
}

func TestSplitIndices_Deterministic(t *testing.T) {
	a, err := SplitIndices(300, 0.2, 0)
	require.NoError(t, err)
	b, err := SplitIndices(300, 0.2, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := SplitIndices(300, 0.2, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.Test, c.Test)
}

func TestSplitIndices_Errors(t *testing.T) {
	_, err := SplitIndices(4, 0.2, 0)
	assert.ErrorIs(t, err, ErrPartitionTooSmall)

	_, err = SplitIndices(1, 0.99, 0)
	assert.ErrorIs(t, err, ErrPartitionTooSmall)

	_, err = SplitIndices(100, 0, 0)
	assert.Error(t, err)

	_, err = SplitIndices(100, 1, 0)
	assert.Error(t, err)
}

func TestStratifiedSplit(t *testing.T) {
	labels := make([]int, 1000)
	for i := 0; i < 10; i++ {
		labels[i*97] = 1
	}

	s, err := StratifiedSplit(labels, 0.2, 0)
	require.NoError(t, err)
	assert.Len(t, s.Test, 200)
	assert.Len(t, s.Train, 800)

	countFraud := func(rows []int) int {
		n := 0
		for _, i := range rows {
			n += labels[i]
		}
		return n
	}
	assert.Equal(t, 2, countFraud(s.Test))
	assert.Equal(t, 8, countFraud(s.Train))

	all := append(append([]int{}, s.Train...), s.Test...)
	sort.Ints(all)
	for i, v := range all {
		require.Equal(t, i, v)
	}

	again, err := StratifiedSplit(labels, 0.2, 0)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestStratifiedSplit_KeepsRareClass(t *testing.T) {
	labels := make([]int, 20)
	labels[3], labels[15] = 1, 1

	s, err := StratifiedSplit(labels, 0.5, 9)
	require.NoError(t, err)

	var trainFraud, testFraud int
	for _, i := range s.Train {
		trainFraud += labels[i]
	}
	for _, i := range s.Test {
		testFraud += labels[i]
	}
	assert.Equal(t, 1, trainFraud)
	assert.Equal(t, 1, testFraud)
}
