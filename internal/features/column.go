package features

import (
	"fmt"

	"fraud-eval/internal/common"
	"fraud-eval/internal/dataset"

	"github.com/rs/zerolog/log"
)

// ScaleColumn standardises one named column of d in place. With
// common.FitOnTrain the statistics come from the rows in fitRows only and
// are then applied to every row; with common.FitOnAll the whole column is
// used.
func ScaleColumn(d *dataset.Dataset, column, fitOn string, fitRows []int) (*StandardScaler, error) {
	values, err := d.Column(column)
	if err != nil {
		return nil, err
	}

	var sample []float64
	switch fitOn {
	case common.FitOnAll, "":
		sample = values
	case common.FitOnTrain:
		if len(fitRows) == 0 {
			return nil, fmt.Errorf("scale %s: no training rows to fit on", column)
		}
		sample = make([]float64, len(fitRows))
		for k, i := range fitRows {
			sample[k] = values[i]
		}
	default:
		return nil, fmt.Errorf("scale %s: unknown fit source %q", column, fitOn)
	}

	scaler := NewStandardScaler()
	if err := scaler.Fit(sample); err != nil {
		return nil, fmt.Errorf("scale %s: %w", column, err)
	}
	if err := scaler.Transform(values); err != nil {
		return nil, fmt.Errorf("scale %s: %w", column, err)
	}
	if err := d.SetColumn(column, values); err != nil {
		return nil, err
	}

	log.Debug().
		Str("column", column).
		Str("fit_on", fitOn).
		Float64("mean", scaler.Mean).
		Float64("std", scaler.Std).
		Msg("Column standardised")
	return scaler, nil
}
