package ml

import (
	"fmt"
	"math"

	"fraud-eval/internal/common"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// tau replaces non-positive curvature in the two variable sub-problem.
	tau = 1e-12
	// svmCacheBytes bounds the memory held by cached kernel rows.
	svmCacheBytes = 200 << 20
)

// SVCParams configures an SVC.
type SVCParams struct {
	C         float64 // box constraint
	Gamma     float64 // RBF width, 0 selects 1/(n_features·Var(X))
	Tol       float64 // stopping tolerance on the KKT violation
	MaxIter   int     // 0 selects max(1e7, 100·n)
	CacheRows int     // kernel rows kept in the LRU cache
}

// SVC is a support vector classifier with an RBF kernel. The dual problem is
// solved by SMO with second order working set selection.
type SVC struct {
	params SVCParams

	gamma    float64
	sv       [][]float64 // support vectors
	svNorm   []float64   // squared norms of the support vectors
	coef     []float64   // α_i·y_i per support vector
	rho      float64
	features int
	iter     int
}

func NewSVC(p SVCParams) *SVC {
	if p.C <= 0 {
		p.C = common.DefaultSVMC
	}
	if p.Tol <= 0 {
		p.Tol = common.DefaultSVMTol
	}
	if p.CacheRows <= 0 {
		p.CacheRows = common.DefaultSVMCacheRows
	}
	return &SVC{params: p}
}

func (m *SVC) Name() string { return common.ModelSVM }

func (m *SVC) Fit(x *mat.Dense, y []int) error {
	rows, cols, err := checkFit(x, y)
	if err != nil {
		return fmt.Errorf("svm: %w", err)
	}
	if err := checkBothClasses(y); err != nil {
		return fmt.Errorf("svm: %w", err)
	}

	m.gamma = m.params.Gamma
	if m.gamma <= 0 {
		m.gamma = scaleGamma(x)
	}

	sy := make([]float64, rows)
	for i, label := range y {
		sy[i] = -1
		if label == common.LabelFraud {
			sy[i] = 1
		}
	}

	k := newKernel(x, m.gamma)
	q, err := newQMatrix(k, sy, m.params.CacheRows)
	if err != nil {
		return fmt.Errorf("svm: %w", err)
	}

	maxIter := m.params.MaxIter
	if maxIter <= 0 {
		maxIter = max(10_000_000, 100*rows)
	}

	s := solver{
		q:     q,
		y:     sy,
		c:     m.params.C,
		eps:   m.params.Tol,
		alpha: make([]float64, rows),
		grad:  make([]float64, rows),
	}
	m.iter = s.solve(maxIter)
	if m.iter >= maxIter {
		log.Warn().Int("max_iter", maxIter).Msg("SVM solver reached the iteration limit")
	}
	m.rho = s.rho()

	m.sv, m.svNorm, m.coef = nil, nil, nil
	for i, a := range s.alpha {
		if a > 0 {
			m.sv = append(m.sv, mat.Row(nil, i, x))
			m.svNorm = append(m.svNorm, k.norm[i])
			m.coef = append(m.coef, a*sy[i])
		}
	}
	m.features = cols

	log.Debug().
		Int("iterations", m.iter).
		Int("support_vectors", len(m.sv)).
		Float64("gamma", m.gamma).
		Float64("rho", m.rho).
		Msg("SVM fitted")
	return nil
}

func (m *SVC) Predict(x *mat.Dense) ([]int, error) {
	dec, err := m.Decision(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(dec))
	for i, d := range dec {
		if d > 0 {
			out[i] = common.LabelFraud
		}
	}
	return out, nil
}

// Decision returns the signed distance of every row to the separating
// surface; positive values are classified as fraud.
func (m *SVC) Decision(x *mat.Dense) ([]float64, error) {
	if m.features == 0 {
		return nil, ErrNotFitted
	}
	rows, err := checkPredict(x, m.features)
	if err != nil {
		return nil, fmt.Errorf("svm: %w", err)
	}
	out := make([]float64, rows)
	for i := range out {
		row := x.RawRowView(i)
		norm := floats.Dot(row, row)
		sum := -m.rho
		for s, v := range m.sv {
			sum += m.coef[s] * rbf(m.gamma, norm, m.svNorm[s], floats.Dot(row, v))
		}
		out[i] = sum
	}
	return out, nil
}

// SupportVectors returns the number of support vectors.
func (m *SVC) SupportVectors() int { return len(m.sv) }

// scaleGamma returns 1/(n_features·Var(X)) over every entry of x, or 1 for
// constant input.
func scaleGamma(x *mat.Dense) float64 {
	r, c := x.Dims()
	all := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		all = append(all, x.RawRowView(i)...)
	}
	_, v := stat.PopMeanVariance(all, nil)
	if v <= 0 || math.IsNaN(v) {
		return 1
	}
	return 1 / (float64(c) * v)
}

func rbf(gamma, na, nb, dot float64) float64 {
	d := na + nb - 2*dot
	if d < 0 {
		d = 0
	}
	return math.Exp(-gamma * d)
}

type kernel struct {
	x     *mat.Dense
	norm  []float64
	gamma float64
}

func newKernel(x *mat.Dense, gamma float64) *kernel {
	r, _ := x.Dims()
	norm := make([]float64, r)
	for i := range norm {
		row := x.RawRowView(i)
		norm[i] = floats.Dot(row, row)
	}
	return &kernel{x: x, norm: norm, gamma: gamma}
}

func (k *kernel) at(i, j int) float64 {
	return rbf(k.gamma, k.norm[i], k.norm[j], floats.Dot(k.x.RawRowView(i), k.x.RawRowView(j)))
}

// qMatrix serves rows of Q_ij = y_i·y_j·K(x_i, x_j) through an LRU cache.
type qMatrix struct {
	k     *kernel
	y     []float64
	cache *lru.Cache
	diag  []float64
}

func newQMatrix(k *kernel, y []float64, cacheRows int) (*qMatrix, error) {
	n := len(y)
	limit := svmCacheBytes / (8 * n)
	size := max(2, min(cacheRows, limit, n))
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("kernel cache: %w", err)
	}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = k.at(i, i)
	}
	return &qMatrix{k: k, y: y, cache: cache, diag: diag}, nil
}

func (q *qMatrix) row(i int) []float64 {
	if v, ok := q.cache.Get(i); ok {
		return v.([]float64)
	}
	row := make([]float64, len(q.y))
	for j := range row {
		row[j] = q.y[i] * q.y[j] * q.k.at(i, j)
	}
	q.cache.Add(i, row)
	return row
}

// solver holds the SMO state for the dual problem
//
//	min ½αᵀQα − eᵀα  subject to  yᵀα = 0, 0 ≤ α ≤ C.
type solver struct {
	q     *qMatrix
	y     []float64
	c     float64
	eps   float64
	alpha []float64
	grad  []float64 // Qα − e
}

func (s *solver) upper(i int) bool { return s.alpha[i] >= s.c }
func (s *solver) lower(i int) bool { return s.alpha[i] <= 0 }

// solve runs SMO until the maximal violating pair is within eps and returns
// the number of iterations.
func (s *solver) solve(maxIter int) int {
	for i := range s.grad {
		s.grad[i] = -1
	}
	iter := 0
	for ; iter < maxIter; iter++ {
		i, j, ok := s.selectWorkingSet()
		if !ok {
			break
		}
		s.update(i, j)
	}
	return iter
}

// selectWorkingSet picks i as the maximal violator and j by the largest
// decrease of the two variable objective.
func (s *solver) selectWorkingSet() (int, int, bool) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i := -1
	for t, yt := range s.y {
		if yt > 0 {
			if !s.upper(t) && -s.grad[t] >= gmax {
				gmax, i = -s.grad[t], t
			}
		} else if !s.lower(t) && s.grad[t] >= gmax {
			gmax, i = s.grad[t], t
		}
	}
	if i < 0 {
		return 0, 0, false
	}

	qi := s.q.row(i)
	j := -1
	objMin := math.Inf(1)
	for t, yt := range s.y {
		var diff, quad float64
		if yt > 0 {
			if s.lower(t) {
				continue
			}
			diff = gmax + s.grad[t]
			gmax2 = math.Max(gmax2, s.grad[t])
			quad = s.q.diag[i] + s.q.diag[t] - 2*s.y[i]*qi[t]
		} else {
			if s.upper(t) {
				continue
			}
			diff = gmax - s.grad[t]
			gmax2 = math.Max(gmax2, -s.grad[t])
			quad = s.q.diag[i] + s.q.diag[t] + 2*s.y[i]*qi[t]
		}
		if diff <= 0 {
			continue
		}
		if quad <= 0 {
			quad = tau
		}
		if obj := -(diff * diff) / quad; obj <= objMin {
			objMin, j = obj, t
		}
	}

	if gmax+gmax2 < s.eps || j < 0 {
		return 0, 0, false
	}
	return i, j, true
}

// update solves the sub-problem in α_i, α_j analytically and refreshes the
// gradient.
func (s *solver) update(i, j int) {
	qi, qj := s.q.row(i), s.q.row(j)
	c := s.c
	ai, aj := s.alpha[i], s.alpha[j]

	if s.y[i] != s.y[j] {
		quad := s.q.diag[i] + s.q.diag[j] + 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := ai - aj
		s.alpha[i] += delta
		s.alpha[j] += delta
		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j], s.alpha[i] = 0, diff
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i], s.alpha[j] = 0, -diff
		}
		if diff > 0 {
			if s.alpha[i] > c {
				s.alpha[i], s.alpha[j] = c, c-diff
			}
		} else if s.alpha[j] > c {
			s.alpha[j], s.alpha[i] = c, c+diff
		}
	} else {
		quad := s.q.diag[i] + s.q.diag[j] - 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := ai + aj
		s.alpha[i] -= delta
		s.alpha[j] += delta
		if sum > c {
			if s.alpha[i] > c {
				s.alpha[i], s.alpha[j] = c, sum-c
			}
		} else if s.alpha[j] < 0 {
			s.alpha[j], s.alpha[i] = 0, sum
		}
		if sum > c {
			if s.alpha[j] > c {
				s.alpha[j], s.alpha[i] = c, sum-c
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i], s.alpha[j] = 0, sum
		}
	}

	di, dj := s.alpha[i]-ai, s.alpha[j]-aj
	for k := range s.grad {
		s.grad[k] += qi[k]*di + qj[k]*dj
	}
}

// rho returns the offset of the decision function, averaged over the free
// support vectors or taken mid-way between the feasible bounds.
func (s *solver) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sum float64
	free := 0
	for i, yi := range s.y {
		yg := yi * s.grad[i]
		switch {
		case s.upper(i):
			if yi < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.lower(i):
			if yi > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sum += yg
		}
	}
	if free > 0 {
		return sum / float64(free)
	}
	return (ub + lb) / 2
}
