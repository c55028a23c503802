// Package dataset loads labelled transaction records, summarises them and
// partitions them into training and evaluation subsets.
//
// A Dataset keeps its features row-major as [][]float64 together with one
// binary label per row (0 = legitimate, 1 = fraudulent). Apart from the
// rescaling of a single column through SetColumn, a loaded Dataset is treated
// as immutable.
package dataset

import (
	"errors"
	"fmt"

	"fraud-eval/internal/common"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyDataset is returned when a source holds no records.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrUnknownColumn is returned for a column name that is not a feature.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrBadLabel is returned for labels outside {0, 1}.
	ErrBadLabel = errors.New("label must be 0 or 1")
)

// Dataset is an ordered collection of records.
type Dataset struct {
	Columns []string    // feature names, label excluded
	X       [][]float64 // one feature vector per row
	Y       []int       // one label per row
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// NumFeatures returns the width of a feature vector.
func (d *Dataset) NumFeatures() int {
	return len(d.Columns)
}

// ColumnIndex returns the position of the named feature.
func (d *Dataset) ColumnIndex(name string) (int, error) {
	for i, c := range d.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Column returns a copy of the named feature column.
func (d *Dataset) Column(name string) ([]float64, error) {
	j, err := d.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	col := make([]float64, len(d.X))
	for i, row := range d.X {
		col[i] = row[j]
	}
	return col, nil
}

// SetColumn overwrites the named feature column in place.
func (d *Dataset) SetColumn(name string, values []float64) error {
	j, err := d.ColumnIndex(name)
	if err != nil {
		return err
	}
	if len(values) != len(d.X) {
		return fmt.Errorf("set column %q: got %d values for %d rows", name, len(values), len(d.X))
	}
	for i, row := range d.X {
		row[j] = values[i]
	}
	return nil
}

// ClassCounts returns the number of legitimate and fraudulent records.
func (d *Dataset) ClassCounts() (legit, fraud int) {
	for _, y := range d.Y {
		if y == common.LabelFraud {
			fraud++
		} else {
			legit++
		}
	}
	return legit, fraud
}

// FraudPercentage returns the share of fraudulent records in percent.
func (d *Dataset) FraudPercentage() float64 {
	if d.Len() == 0 {
		return 0
	}
	_, fraud := d.ClassCounts()
	return float64(fraud) / float64(d.Len()) * 100
}

// Validate checks the structural invariants of the dataset.
func (d *Dataset) Validate() error {
	if len(d.Y) == 0 {
		return ErrEmptyDataset
	}
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("dataset has %d feature rows but %d labels", len(d.X), len(d.Y))
	}
	for i, row := range d.X {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), len(d.Columns))
		}
	}
	for i, y := range d.Y {
		if y != common.LabelLegit && y != common.LabelFraud {
			return fmt.Errorf("row %d: %w, got %d", i, ErrBadLabel, y)
		}
	}
	return nil
}

// Matrix copies the selected rows into a dense matrix and returns it with
// the matching labels. A nil index selects every row.
func (d *Dataset) Matrix(rows []int) (*mat.Dense, []int) {
	if rows == nil {
		rows = make([]int, d.Len())
		for i := range rows {
			rows[i] = i
		}
	}
	c := d.NumFeatures()
	data := make([]float64, 0, len(rows)*c)
	labels := make([]int, len(rows))
	for k, i := range rows {
		data = append(data, d.X[i]...)
		labels[k] = d.Y[i]
	}
	if len(rows) == 0 {
		return &mat.Dense{}, labels
	}
	return mat.NewDense(len(rows), c, data), labels
}
