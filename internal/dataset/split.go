package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrPartitionTooSmall is returned when a split would leave the training or
// the test partition empty.
var ErrPartitionTooSmall = errors.New("partition too small")

// Split holds two disjoint sets of row indices covering a whole dataset.
type Split struct {
	Train []int
	Test  []int
}

// TestSize returns ⌊n·f⌋, the number of held-out rows.
func TestSize(n int, testFraction float64) int {
	// The epsilon keeps products such as 100*0.29 from rounding down.
	return int(math.Floor(float64(n)*testFraction + 1e-9))
}

// SplitIndices partitions n rows into a training set of n-⌊n·f⌋ rows and a
// test set of ⌊n·f⌋ rows. The partition only depends on n, f and seed.
func SplitIndices(n int, testFraction float64, seed int64) (Split, error) {
	if err := checkFraction(testFraction); err != nil {
		return Split{}, err
	}
	nTest := TestSize(n, testFraction)
	if err := checkSizes(n, nTest); err != nil {
		return Split{}, err
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{
		Test:  perm[:nTest:nTest],
		Train: perm[nTest:],
	}, nil
}

// StratifiedSplit partitions rows so that both sides keep the class ratio of
// labels. Partition sizes equal those of SplitIndices; per-class test counts
// are allocated by largest remainder.
func StratifiedSplit(labels []int, testFraction float64, seed int64) (Split, error) {
	if err := checkFraction(testFraction); err != nil {
		return Split{}, err
	}
	n := len(labels)
	nTest := TestSize(n, testFraction)
	if err := checkSizes(n, nTest); err != nil {
		return Split{}, err
	}

	byClass := make(map[int][]int)
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	// Largest remainder allocation of the test rows
	quota := make(map[int]int, len(classes))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, 0, len(classes))
	allocated := 0
	for _, c := range classes {
		exact := float64(len(byClass[c])) * float64(nTest) / float64(n)
		quota[c] = int(math.Floor(exact))
		allocated += quota[c]
		rems = append(rems, rem{c, exact - math.Floor(exact)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; allocated < nTest; i++ {
		c := rems[i%len(rems)].class
		if quota[c] < len(byClass[c]) {
			quota[c]++
			allocated++
		}
	}

	rng := rand.New(rand.NewSource(seed))
	var s Split
	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		s.Test = append(s.Test, rows[:quota[c]]...)
		s.Train = append(s.Train, rows[quota[c]:]...)
	}
	rng.Shuffle(len(s.Test), func(i, j int) { s.Test[i], s.Test[j] = s.Test[j], s.Test[i] })
	rng.Shuffle(len(s.Train), func(i, j int) { s.Train[i], s.Train[j] = s.Train[j], s.Train[i] })
	return s, nil
}

func checkFraction(f float64) error {
	if !(f > 0 && f < 1) {
		return fmt.Errorf("test fraction must be in (0, 1), got %v", f)
	}
	return nil
}

func checkSizes(n, nTest int) error {
	if nTest < 1 {
		return fmt.Errorf("%w: %d rows leave an empty test partition", ErrPartitionTooSmall, n)
	}
	if n-nTest < 1 {
		return fmt.Errorf("%w: %d rows leave an empty training partition", ErrPartitionTooSmall, n)
	}
	return nil
}
