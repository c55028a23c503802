package ml

import (
	"fmt"
	"math"

	"fraud-eval/internal/common"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// gradTol stops L-BFGS once every gradient component is below it.
const gradTol = 1e-4

// LogisticRegression is an L2 regularised logistic model fitted with
// L-BFGS. The intercept is not penalised.
type LogisticRegression struct {
	C       float64 // inverse regularisation strength
	MaxIter int

	coef      []float64
	intercept float64
	fitted    bool
}

func NewLogisticRegression(c float64, maxIter int) *LogisticRegression {
	if c <= 0 {
		c = common.DefaultLRC
	}
	if maxIter <= 0 {
		maxIter = common.DefaultLRMaxIter
	}
	return &LogisticRegression{C: c, MaxIter: maxIter}
}

func (m *LogisticRegression) Name() string { return common.ModelLR }

func (m *LogisticRegression) Fit(x *mat.Dense, y []int) error {
	rows, cols, err := checkFit(x, y)
	if err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	if err := checkBothClasses(y); err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}

	n := float64(rows)
	alpha := 1 / (m.C * n)
	z := make([]float64, rows)

	// Mean log loss plus ||w||²/(2Cn); the minimiser equals that of the
	// unscaled C·Σloss + ||w||²/2 objective.
	linear := func(theta []float64) {
		w, b := theta[:cols], theta[cols]
		for i := range z {
			z[i] = floats.Dot(x.RawRowView(i), w) + b
		}
	}
	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			linear(theta)
			var loss float64
			for i, zi := range z {
				loss += softplus(zi) - float64(y[i])*zi
			}
			w := theta[:cols]
			return loss/n + 0.5*alpha*floats.Dot(w, w)
		},
		Grad: func(grad, theta []float64) {
			linear(theta)
			for j := range grad {
				grad[j] = 0
			}
			gw := grad[:cols]
			for i, zi := range z {
				r := sigmoid(zi) - float64(y[i])
				floats.AddScaled(gw, r, x.RawRowView(i))
				grad[cols] += r
			}
			floats.Scale(1/n, grad)
			floats.AddScaled(gw, alpha, theta[:cols])
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: gradTol,
		MajorIterations:   m.MaxIter,
		Converger:         optimize.NeverTerminate{},
	}
	res, err := optimize.Minimize(problem, make([]float64, cols+1), settings, &optimize.LBFGS{})
	if res == nil {
		return fmt.Errorf("logistic regression: optimisation failed: %w", err)
	}
	if err != nil {
		log.Warn().Err(err).Str("status", res.Status.String()).Msg("Logistic regression stopped early")
	} else if res.Status == optimize.IterationLimit {
		log.Warn().Int("max_iter", m.MaxIter).Msg("Logistic regression did not converge")
	}

	m.coef = append([]float64(nil), res.X[:cols]...)
	m.intercept = res.X[cols]
	m.fitted = true

	log.Debug().
		Int("iterations", res.MajorIterations).
		Float64("loss", res.F).
		Str("status", res.Status.String()).
		Msg("Logistic regression fitted")
	return nil
}

func (m *LogisticRegression) Predict(x *mat.Dense) ([]int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}

// PredictProba returns σ(w·x + b) for every row.
func (m *LogisticRegression) PredictProba(x *mat.Dense) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	rows, err := checkPredict(x, len(m.coef))
	if err != nil {
		return nil, fmt.Errorf("logistic regression: %w", err)
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = sigmoid(floats.Dot(x.RawRowView(i), m.coef) + m.intercept)
	}
	return out, nil
}

// Coefficients returns the fitted weights and intercept.
func (m *LogisticRegression) Coefficients() ([]float64, float64) {
	return append([]float64(nil), m.coef...), m.intercept
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus returns log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
