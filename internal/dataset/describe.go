package dataset

import (
	"fmt"
	"sort"

	"fraud-eval/internal/common"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Stats are the descriptive statistics of one column.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Summary describes a dataset and one of its columns split by class.
type Summary struct {
	Cases           int     `json:"cases"`
	LegitCount      int     `json:"legit_count"`
	FraudCount      int     `json:"fraud_count"`
	FraudPercentage float64 `json:"fraud_percentage"`
	Column          string  `json:"column"`
	Legit           Stats   `json:"legit"`
	Fraud           Stats   `json:"fraud"`
}

// Describe computes case counts and per-class statistics of column.
func (d *Dataset) Describe(column string) (Summary, error) {
	values, err := d.Column(column)
	if err != nil {
		return Summary{}, err
	}

	var legitVals, fraudVals []float64
	for i, v := range values {
		if d.Y[i] == common.LabelFraud {
			fraudVals = append(fraudVals, v)
		} else {
			legitVals = append(legitVals, v)
		}
	}

	s := Summary{
		Cases:           d.Len(),
		LegitCount:      len(legitVals),
		FraudCount:      len(fraudVals),
		FraudPercentage: d.FraudPercentage(),
		Column:          column,
	}
	if s.Legit, err = Describe(legitVals); err != nil {
		return Summary{}, fmt.Errorf("describe legit %s: %w", column, err)
	}
	if s.Fraud, err = Describe(fraudVals); err != nil {
		return Summary{}, fmt.Errorf("describe fraud %s: %w", column, err)
	}
	return s, nil
}

// Describe computes count, mean, sample standard deviation, extremes and
// linearly interpolated quartiles of values. An empty input yields zero Stats.
func Describe(values []float64) (Stats, error) {
	if len(values) == 0 {
		return Stats{}, nil
	}
	data := stats.Float64Data(values)

	var (
		st  = Stats{Count: len(values)}
		err error
	)
	if st.Mean, err = data.Mean(); err != nil {
		return Stats{}, err
	}
	if len(values) > 1 {
		if st.Std, err = data.StandardDeviationSample(); err != nil {
			return Stats{}, err
		}
	}
	if st.Min, err = data.Min(); err != nil {
		return Stats{}, err
	}
	if st.Max, err = data.Max(); err != nil {
		return Stats{}, err
	}
	if st.Median, err = data.Median(); err != nil {
		return Stats{}, err
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	st.Q25 = quantile(0.25, sorted)
	st.Q75 = quantile(0.75, sorted)
	return st, nil
}

// quantile interpolates linearly between the order statistics around
// position p*(n-1), the default of R type 7 and pandas. stat.LinInterp
// lands on position p*n-1, so p is remapped onto that scale.
func quantile(p float64, sorted []float64) float64 {
	n := float64(len(sorted))
	return stat.Quantile((p*(n-1)+1)/n, stat.LinInterp, sorted, nil)
}
