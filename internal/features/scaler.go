package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

const constantTol = 1e-12

var (
	ErrEmptyInput = errors.New("scaler: empty input")
	ErrNotFitted  = errors.New("scaler: not fitted")
)

// StandardScaler rescales values to zero mean and unit population variance.
type StandardScaler struct {
	Mean float64
	Std  float64

	// Constant is set when the fitted values had zero spread. The scaler
	// then only centres.
	Constant bool
	fitted   bool
}

func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

func (s *StandardScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return ErrEmptyInput
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scaler: value %d is not finite: %v", i, v)
		}
	}

	s.Mean, s.Std = stat.PopMeanStdDev(values, nil)
	// Rounding in the mean can leave a tiny spread on constant input.
	s.Constant = math.IsNaN(s.Std) || s.Std < constantTol*math.Max(1, math.Abs(s.Mean))
	if s.Constant {
		log.Warn().
			Float64("mean", s.Mean).
			Int("values", len(values)).
			Msg("Zero variance column, values are centred but not scaled")
		s.Std = 0
	}
	s.fitted = true
	return nil
}

// Transform rescales values in place.
func (s *StandardScaler) Transform(values []float64) error {
	if !s.fitted {
		return ErrNotFitted
	}
	div := s.Std
	if s.Constant {
		div = 1
	}
	for i, v := range values {
		values[i] = (v - s.Mean) / div
	}
	return nil
}

func (s *StandardScaler) FitTransform(values []float64) error {
	if err := s.Fit(values); err != nil {
		return err
	}
	return s.Transform(values)
}

// Inverse maps scaled values back in place.
func (s *StandardScaler) Inverse(values []float64) error {
	if !s.fitted {
		return ErrNotFitted
	}
	mul := s.Std
	if s.Constant {
		mul = 1
	}
	for i, v := range values {
		values[i] = v*mul + s.Mean
	}
	return nil
}
