package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `"Time","V1","V2","Amount","Class"
0,-1.35,-0.07,149.62,"0"
0,1.19,0.26,2.69,"0"
1,-1.36,-1.34,378.66,"1"
1,-0.97,-0.19,123.5,"0"
`

func TestReadCSV(t *testing.T) {
	d, err := ReadCSV(strings.NewReader(sampleCSV), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"V1", "V2", "Amount"}, d.Columns)
	assert.Equal(t, 4, d.Len())
	assert.Equal(t, []int{0, 0, 1, 0}, d.Y)
	assert.Equal(t, []float64{-1.36, -1.34, 378.66}, d.X[2])

	legit, fraud := d.ClassCounts()
	assert.Equal(t, 3, legit)
	assert.Equal(t, 1, fraud)
	assert.InDelta(t, 25.0, d.FraudPercentage(), 1e-9)
	require.NoError(t, d.Validate())
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty input", "", "dataset is empty"},
		{"header only", "Time,Amount,Class\n", "dataset is empty"},
		{"missing label", "Time,Amount\n1,2\n", `missing label column "Class"`},
		{"missing amount", "Time,V1,Class\n1,2,0\n", `missing required column "Amount"`},
		{"bad number", "Amount,Class\n12.5,0\nabc,1\n", `line 3, column "Amount"`},
		{"bad label", "Amount,Class\n12.5,2\n", "label must be 0 or 1"},
		{"ragged row", "Amount,Class\n12.5,0\n1,0,3\n", "failed to read CSV record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), DefaultLoadOptions())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	d, err := LoadCSV(path, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, d.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), DefaultLoadOptions())
	assert.Error(t, err)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	d, err := Synthesize(SynthOptions{Rows: 50, Frauds: 5, Features: 4, Seed: 3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, d.WriteCSV(&buf))

	loaded, err := ReadCSV(&buf, DefaultLoadOptions())
	require.NoError(t, err)

	// Time is dropped on load
	assert.Equal(t, d.Columns[1:], loaded.Columns)
	assert.Equal(t, d.Y, loaded.Y)
	for i := range d.X {
		assert.Equal(t, d.X[i][1:], loaded.X[i])
	}
}

func TestColumnAccess(t *testing.T) {
	d, err := ReadCSV(strings.NewReader(sampleCSV), DefaultLoadOptions())
	require.NoError(t, err)

	amount, err := d.Column("Amount")
	require.NoError(t, err)
	assert.Equal(t, []float64{149.62, 2.69, 378.66, 123.5}, amount)

	// Column returns a copy
	amount[0] = 0
	again, _ := d.Column("Amount")
	assert.Equal(t, 149.62, again[0])

	require.NoError(t, d.SetColumn("Amount", []float64{1, 2, 3, 4}))
	assert.Equal(t, 3.0, d.X[2][2])

	assert.Error(t, d.SetColumn("Amount", []float64{1}))
	_, err = d.Column("Time")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestMatrix(t *testing.T) {
	d, err := ReadCSV(strings.NewReader(sampleCSV), DefaultLoadOptions())
	require.NoError(t, err)

	x, y := d.Matrix([]int{2, 0})
	r, c := x.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []int{1, 0}, y)
	assert.Equal(t, 378.66, x.At(0, 2))
	assert.Equal(t, -1.35, x.At(1, 0))

	all, labels := d.Matrix(nil)
	r, _ = all.Dims()
	assert.Equal(t, 4, r)
	assert.Len(t, labels, 4)
}
