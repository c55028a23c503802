package ml

import (
	"fmt"

	"fraud-eval/internal/common"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KNN is a k-nearest-neighbours classifier with a uniform majority vote
// over Euclidean distances. Training points are indexed in a k-d tree.
type KNN struct {
	K int

	tree     *kdtree.Tree
	features int
}

func NewKNN(k int) *KNN {
	if k <= 0 {
		k = common.DefaultKNNNeighbors
	}
	return &KNN{K: k}
}

func (m *KNN) Name() string { return common.ModelKNN }

func (m *KNN) Fit(x *mat.Dense, y []int) error {
	rows, cols, err := checkFit(x, y)
	if err != nil {
		return fmt.Errorf("knn: %w", err)
	}
	if m.K > rows {
		return fmt.Errorf("knn: %d neighbours requested but only %d training rows", m.K, rows)
	}

	pts := make(samples, rows)
	for i := range pts {
		pts[i] = sample{x: mat.Row(nil, i, x), label: y[i]}
	}
	m.tree = kdtree.New(pts, false)
	m.features = cols
	return nil
}

func (m *KNN) Predict(x *mat.Dense) ([]int, error) {
	if m.tree == nil {
		return nil, ErrNotFitted
	}
	rows, err := checkPredict(x, m.features)
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}

	out := make([]int, rows)
	for i := range out {
		q := sample{x: x.RawRowView(i)}
		keep := kdtree.NewNKeeper(m.K)
		m.tree.NearestSet(keep, q)

		var fraud, legit int
		for _, c := range keep.Heap {
			s, ok := c.Comparable.(sample)
			if !ok {
				continue
			}
			if s.label == common.LabelFraud {
				fraud++
			} else {
				legit++
			}
		}
		// Ties go to the lower label.
		if fraud > legit {
			out[i] = common.LabelFraud
		}
	}
	return out, nil
}

// sample is a labelled training point.
type sample struct {
	x     []float64
	label int
}

func (p sample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(sample)
	return p.x[d] - q.x[d]
}

func (p sample) Dims() int { return len(p.x) }

// Distance returns the squared Euclidean distance.
func (p sample) Distance(c kdtree.Comparable) float64 {
	q := c.(sample)
	var sum float64
	for i, v := range p.x {
		d := v - q.x[i]
		sum += d * d
	}
	return sum
}

type samples []sample

func (p samples) Index(i int) kdtree.Comparable         { return p[i] }
func (p samples) Len() int                              { return len(p) }
func (p samples) Pivot(d kdtree.Dim) int                { return plane{samples: p, Dim: d}.Pivot() }
func (p samples) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	samples
}

func (p plane) Less(i, j int) bool {
	return p.samples[i].x[p.Dim] < p.samples[j].x[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.samples = p.samples[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.samples[i], p.samples[j] = p.samples[j], p.samples[i]
}
