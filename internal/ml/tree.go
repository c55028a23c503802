package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"fraud-eval/internal/common"

	"gonum.org/v1/gonum/mat"
)

// Criterion is the impurity measure used to choose splits.
type Criterion string

const (
	Gini    Criterion = "gini"
	Entropy Criterion = "entropy"
)

// TreeParams configures a DecisionTree.
type TreeParams struct {
	MaxDepth        int       // 0 grows until leaves are pure
	Criterion       Criterion // gini or entropy
	MinSamplesSplit int       // minimum rows to split a node, at least 2
	MaxFeatures     int       // features tried per split, 0 for all
	Seed            int64     // drives feature sampling
}

// DecisionTree is a CART classifier with axis aligned binary splits. A row
// goes left when its feature value is less than or equal to the threshold.
type DecisionTree struct {
	params   TreeParams
	root     *node
	features int
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	proba     float64 // share of fraud rows reaching the node
	samples   int
}

func (n *node) leaf() bool { return n.left == nil }

func NewDecisionTree(p TreeParams) *DecisionTree {
	if p.Criterion == "" {
		p.Criterion = Gini
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	return &DecisionTree{params: p}
}

func (t *DecisionTree) Name() string { return common.ModelTree }

func (t *DecisionTree) Fit(x *mat.Dense, y []int) error {
	rows, _, err := checkFit(x, y)
	if err != nil {
		return fmt.Errorf("tree: %w", err)
	}
	if t.params.Criterion != Gini && t.params.Criterion != Entropy {
		return fmt.Errorf("tree: unknown criterion %q", t.params.Criterion)
	}

	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	t.fit(columns(x), y, idx, rand.New(rand.NewSource(t.params.Seed)))
	return nil
}

// fit grows the tree on the rows in idx, which may repeat.
func (t *DecisionTree) fit(cols [][]float64, y []int, idx []int, rng *rand.Rand) {
	b := builder{
		params: t.params,
		cols:   cols,
		y:      y,
		rng:    rng,
		order:  make([]int, len(idx)),
	}
	t.features = len(cols)
	t.root = b.grow(idx, 0)
}

func (t *DecisionTree) Predict(x *mat.Dense) ([]int, error) {
	proba, err := t.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}

// PredictProba returns the fraud probability of every row.
func (t *DecisionTree) PredictProba(x *mat.Dense) ([]float64, error) {
	if t.root == nil {
		return nil, ErrNotFitted
	}
	rows, err := checkPredict(x, t.features)
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = t.proba(x.RawRowView(i))
	}
	return out, nil
}

func (t *DecisionTree) proba(row []float64) float64 {
	n := t.root
	for !n.leaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.proba
}

// Depth returns the length of the longest root to leaf path.
func (t *DecisionTree) Depth() int {
	var depth func(n *node) int
	depth = func(n *node) int {
		if n == nil || n.leaf() {
			return 0
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(t.root)
}

type builder struct {
	params TreeParams
	cols   [][]float64
	y      []int
	rng    *rand.Rand
	order  []int
}

func (b *builder) grow(idx []int, depth int) *node {
	fraud := 0
	for _, i := range idx {
		fraud += b.y[i]
	}
	n := &node{
		proba:   float64(fraud) / float64(len(idx)),
		samples: len(idx),
	}

	if fraud == 0 || fraud == len(idx) ||
		len(idx) < b.params.MinSamplesSplit ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) {
		return n
	}

	feature, thr, ok := b.bestSplit(idx, fraud)
	if !ok {
		return n
	}

	var left, right []int
	col := b.cols[feature]
	for _, i := range idx {
		if col[i] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	n.feature = feature
	n.threshold = thr
	n.left = b.grow(left, depth+1)
	n.right = b.grow(right, depth+1)
	return n
}

// bestSplit scans candidate features for the split with the lowest weighted
// child impurity. Thresholds are midpoints between distinct sorted values.
func (b *builder) bestSplit(idx []int, fraud int) (feature int, thr float64, ok bool) {
	total := float64(len(idx))
	best := math.Inf(1)

	order := b.order[:len(idx)]
	for _, f := range b.candidates() {
		col := b.cols[f]
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return col[order[a]] < col[order[c]] })

		leftFraud := 0
		for k := 0; k < len(order)-1; k++ {
			leftFraud += b.y[order[k]]
			lo, hi := col[order[k]], col[order[k+1]]
			if lo >= hi {
				continue
			}
			nl := float64(k + 1)
			nr := total - nl
			score := (nl*b.impurity(float64(leftFraud), nl) +
				nr*b.impurity(float64(fraud-leftFraud), nr)) / total
			if score < best {
				best = score
				feature = f
				thr = midpoint(lo, hi)
				ok = true
			}
		}
	}
	return feature, thr, ok
}

// candidates returns the features to try at one node.
func (b *builder) candidates() []int {
	n := len(b.cols)
	k := b.params.MaxFeatures
	if k <= 0 || k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := b.rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

func (b *builder) impurity(fraud, n float64) float64 {
	p1 := fraud / n
	p0 := 1 - p1
	if b.params.Criterion == Entropy {
		return -xlog2(p0) - xlog2(p1)
	}
	return 1 - p0*p0 - p1*p1
}

func xlog2(p float64) float64 {
	if p <= 0 {
		return 0
	}
	return p * math.Log2(p)
}

func midpoint(lo, hi float64) float64 {
	m := lo/2 + hi/2
	if m >= hi || math.IsInf(m, 0) {
		return lo
	}
	return m
}

// columns copies x into column-major slices.
func columns(x *mat.Dense) [][]float64 {
	_, c := x.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}
	return cols
}
