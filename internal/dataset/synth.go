package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"fraud-eval/internal/common"
)

const (
	placementPrime = 7919
	placementSalt  = 104729
)

// SynthOptions configures Synthesize.
type SynthOptions struct {
	Rows     int   // total number of records
	Frauds   int   // number of records labelled 1
	Features int   // number of anonymised V columns
	Seed     int64 // random seed
}

// DefaultSynthOptions mirrors the shape of the card transaction export at a
// small scale.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{Rows: 1000, Frauds: 10, Features: 28, Seed: 0}
}

// Synthesize generates a reproducible dataset with the columns Time,
// V1..Vn and Amount. Fraud rows are shifted on the V columns and have
// larger, more spread out amounts.
func Synthesize(opts SynthOptions) (*Dataset, error) {
	if opts.Rows < 1 {
		return nil, fmt.Errorf("synthesize: rows must be positive, got %d", opts.Rows)
	}
	if opts.Frauds < 0 || opts.Frauds > opts.Rows {
		return nil, fmt.Errorf("synthesize: frauds must be between 0 and %d, got %d", opts.Rows, opts.Frauds)
	}
	if opts.Features < 0 {
		return nil, fmt.Errorf("synthesize: features cannot be negative, got %d", opts.Features)
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	columns := make([]string, 0, opts.Features+2)
	columns = append(columns, common.TimeColumn)
	for i := 1; i <= opts.Features; i++ {
		columns = append(columns, fmt.Sprintf("V%d", i))
	}
	columns = append(columns, common.AmountColumn)

	// Fraud placement draws from its own stream. Perm on the bare seed is
	// the permutation SplitIndices takes for its test rows.
	placement := rand.New(rand.NewSource(opts.Seed*placementPrime + placementSalt))
	fraudRows := make(map[int]bool, opts.Frauds)
	for _, i := range placement.Perm(opts.Rows)[:opts.Frauds] {
		fraudRows[i] = true
	}

	d := &Dataset{
		Columns: columns,
		X:       make([][]float64, opts.Rows),
		Y:       make([]int, opts.Rows),
	}
	t := 0.0
	for i := 0; i < opts.Rows; i++ {
		fraud := fraudRows[i]
		row := make([]float64, len(columns))

		t += rng.ExpFloat64() * 2
		row[0] = math.Round(t)

		for j := 1; j <= opts.Features; j++ {
			v := rng.NormFloat64()
			if fraud && j%3 == 1 {
				v = v*1.5 - 3
			}
			row[j] = v
		}

		mu, sigma := 3.0, 1.2
		if fraud {
			mu, sigma = 4.0, 1.6
		}
		row[len(row)-1] = math.Round(math.Exp(mu+sigma*rng.NormFloat64())*100) / 100

		d.X[i] = row
		if fraud {
			d.Y[i] = common.LabelFraud
		}
	}
	return d, nil
}
