package ml

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"fraud-eval/internal/common"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ForestParams configures a RandomForest.
type ForestParams struct {
	Trees       int
	MaxDepth    int
	Criterion   Criterion
	MaxFeatures int   // features tried per split, 0 for ⌊√n⌋
	Seed        int64 // drives bootstrap samples and feature sampling
	Workers     int   // concurrent tree fits, 0 for GOMAXPROCS
}

// RandomForest averages the fraud probabilities of decision trees grown on
// bootstrap samples. Tree seeds are drawn up front from Seed, so the fitted
// forest does not depend on scheduling.
type RandomForest struct {
	params   ForestParams
	trees    []*DecisionTree
	features int
}

func NewRandomForest(p ForestParams) *RandomForest {
	if p.Trees <= 0 {
		p.Trees = common.DefaultRFTrees
	}
	if p.Criterion == "" {
		p.Criterion = Gini
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	return &RandomForest{params: p}
}

func (f *RandomForest) Name() string { return common.ModelRF }

func (f *RandomForest) Fit(x *mat.Dense, y []int) error {
	rows, cols, err := checkFit(x, y)
	if err != nil {
		return fmt.Errorf("forest: %w", err)
	}
	if f.params.Criterion != Gini && f.params.Criterion != Entropy {
		return fmt.Errorf("forest: unknown criterion %q", f.params.Criterion)
	}

	maxFeatures := f.params.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(cols))))
	}

	master := rand.New(rand.NewSource(f.params.Seed))
	seeds := make([]int64, f.params.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	data := columns(x)
	trees := make([]*DecisionTree, f.params.Trees)

	var g errgroup.Group
	g.SetLimit(f.params.Workers)
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[i]))
			boot := make([]int, rows)
			for k := range boot {
				boot[k] = rng.Intn(rows)
			}
			t := NewDecisionTree(TreeParams{
				MaxDepth:    f.params.MaxDepth,
				Criterion:   f.params.Criterion,
				MaxFeatures: maxFeatures,
				Seed:        seeds[i],
			})
			t.fit(data, y, boot, rng)
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("forest: %w", err)
	}

	f.trees = trees
	f.features = cols
	return nil
}

func (f *RandomForest) Predict(x *mat.Dense) ([]int, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}

// PredictProba returns the mean fraud probability over all trees.
func (f *RandomForest) PredictProba(x *mat.Dense) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	rows, err := checkPredict(x, f.features)
	if err != nil {
		return nil, fmt.Errorf("forest: %w", err)
	}

	out := make([]float64, rows)
	for i := range out {
		row := x.RawRowView(i)
		var sum float64
		for _, t := range f.trees {
			sum += t.proba(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

// Size returns the number of fitted trees.
func (f *RandomForest) Size() int { return len(f.trees) }
