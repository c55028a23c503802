package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fraud-eval/internal/common"

	"github.com/rs/zerolog/log"
)

// LoadOptions controls how a CSV file is mapped onto a Dataset.
type LoadOptions struct {
	LabelColumn     string   // column holding the 0/1 label
	DropColumns     []string // columns read but discarded
	RequiredColumns []string // feature columns that must be present
}

// DefaultLoadOptions matches the credit card transaction export: "Class" is
// the label, "Time" is discarded and "Amount" must be present.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		LabelColumn:     common.LabelColumn,
		DropColumns:     []string{common.TimeColumn},
		RequiredColumns: []string{common.AmountColumn},
	}
}

// LoadCSV loads a dataset from a CSV file with a header row.
func LoadCSV(filePath string, opts LoadOptions) (*Dataset, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	d, err := ReadCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	legit, fraud := d.ClassCounts()
	log.Info().
		Str("file", filePath).
		Int("rows", d.Len()).
		Int("features", d.NumFeatures()).
		Int("legit", legit).
		Int("fraud", fraud).
		Msg("CSV data loaded successfully")

	return d, nil
}

// ReadCSV reads a dataset from CSV input with a header row.
func ReadCSV(r io.Reader, opts LoadOptions) (*Dataset, error) {
	if opts.LabelColumn == "" {
		opts.LabelColumn = common.LabelColumn
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Map header indices
	indices := make(map[string]int, len(header))
	for i, col := range header {
		indices[strings.TrimSpace(col)] = i
	}

	labelIdx, ok := indices[opts.LabelColumn]
	if !ok {
		return nil, fmt.Errorf("missing label column %q", opts.LabelColumn)
	}
	for _, col := range opts.RequiredColumns {
		if _, ok := indices[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	drop := make(map[string]bool, len(opts.DropColumns))
	for _, col := range opts.DropColumns {
		drop[col] = true
	}

	d := &Dataset{}
	var featureIdx []int
	for i, col := range header {
		col = strings.TrimSpace(col)
		if i == labelIdx || drop[col] {
			continue
		}
		d.Columns = append(d.Columns, col)
		featureIdx = append(featureIdx, i)
	}
	if len(featureIdx) == 0 {
		return nil, fmt.Errorf("no feature columns left after dropping %v", opts.DropColumns)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		label, err := parseLabel(record[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d, column %q: %w", line, opts.LabelColumn, err)
		}

		row := make([]float64, len(featureIdx))
		for k, i := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, d.Columns[k], err)
			}
			row[k] = v
		}

		d.X = append(d.X, row)
		d.Y = append(d.Y, label)
	}

	if d.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return d, nil
}

// parseLabel accepts "0", "1" and their float spellings ("0.0", "1.0").
func parseLabel(s string) (int, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	switch v {
	case 0:
		return common.LabelLegit, nil
	case 1:
		return common.LabelFraud, nil
	}
	return 0, fmt.Errorf("%w, got %q", ErrBadLabel, s)
}

// WriteCSV writes the dataset with a header row. The label is written last.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append(append([]string{}, d.Columns...), common.LabelColumn)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range d.X {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(record)-1] = strconv.Itoa(d.Y[i])
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
