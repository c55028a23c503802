// Package plot renders confusion matrices as annotated heat maps.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"fraud-eval/internal/common"
	"fraud-eval/internal/eval"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// Options controls how a confusion matrix is drawn.
type Options struct {
	Title     string    // model title, e.g. "Decision Tree"
	Classes   [2]string // tick labels for label 0 and label 1
	Normalize bool      // colour and annotate row proportions
	Width     vg.Length
	Height    vg.Length
}

// DefaultOptions returns 6×6 inch options with the fraud class names.
func DefaultOptions(title string) Options {
	return Options{
		Title:   title,
		Classes: [2]string{common.ClassNameLegit, common.ClassNameFraud},
		Width:   6 * vg.Inch,
		Height:  6 * vg.Inch,
	}
}

// Annotation is the text drawn on one cell.
type Annotation struct {
	Row   int // true label
	Col   int // predicted label
	Text  string
	White bool // drawn in white on dark cells
}

// Annotations returns the cell texts in row-major order. Counts are
// formatted as integers and proportions with two decimals. Cells above half
// of the largest value get white text.
func Annotations(cm eval.ConfusionMatrix, normalize bool) []Annotation {
	values := cellValues(cm, normalize)
	thresh := maxValue(values) / 2

	out := make([]Annotation, 0, 4)
	for r := range values {
		for c, v := range values[r] {
			s := fmt.Sprintf("%d", cm[r][c])
			if normalize {
				s = fmt.Sprintf("%.2f", v)
			}
			out = append(out, Annotation{Row: r, Col: c, Text: s, White: v > thresh})
		}
	}
	return out
}

// ConfusionMatrix builds the heat map of cm. True label 0 is the top row and
// predicted label 0 the left column.
func ConfusionMatrix(cm eval.ConfusionMatrix, opts Options) (*plot.Plot, error) {
	if cm.Total() == 0 {
		return nil, errors.New("plot: empty confusion matrix")
	}

	p := plot.New()
	p.Title.Text = "Confusion Matrix of " + opts.Title
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"

	pal, err := blues()
	if err != nil {
		return nil, err
	}
	g := grid(cellValues(cm, opts.Normalize))
	hm := plotter.NewHeatMap(g, pal)
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	anns := Annotations(cm, opts.Normalize)
	xys := make(plotter.XYs, len(anns))
	texts := make([]string, len(anns))
	for i, a := range anns {
		xys[i].X = float64(a.Col)
		xys[i].Y = g.Y(1 - a.Row)
		texts[i] = a.Text
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, fmt.Errorf("plot: %w", err)
	}
	for i, a := range anns {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
		labels.TextStyle[i].Color = color.Black
		if a.White {
			labels.TextStyle[i].Color = color.White
		}
	}
	p.Add(labels)

	p.X.Tick.Marker = plot.ConstantTicks{
		{Value: 0, Label: opts.Classes[0]},
		{Value: 1, Label: opts.Classes[1]},
	}
	p.Y.Tick.Marker = plot.ConstantTicks{
		{Value: 1, Label: opts.Classes[0]},
		{Value: 0, Label: opts.Classes[1]},
	}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	return p, nil
}

// SaveConfusionMatrix draws cm and writes it to path. The image format
// follows the file extension.
func SaveConfusionMatrix(path string, cm eval.ConfusionMatrix, opts Options) error {
	p, err := ConfusionMatrix(cm, opts)
	if err != nil {
		return err
	}
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 6 * vg.Inch
	}
	if h <= 0 {
		h = 6 * vg.Inch
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// FileName returns the image file name of a model kind.
func FileName(kind string) string {
	return kind + "_cm_plot.png"
}

func cellValues(cm eval.ConfusionMatrix, normalize bool) [2][2]float64 {
	if normalize {
		return cm.Normalized()
	}
	var v [2][2]float64
	for r := range cm {
		for c := range cm[r] {
			v[r][c] = float64(cm[r][c])
		}
	}
	return v
}

func maxValue(v [2][2]float64) float64 {
	m := math.Inf(-1)
	for _, row := range v {
		for _, x := range row {
			m = math.Max(m, x)
		}
	}
	return m
}

// grid adapts matrix cells to plotter.GridXYZ. Grid row 0 is drawn at the
// bottom, so matrix row 0 maps to the last grid row.
type grid [2][2]float64

func (g grid) Dims() (c, r int)   { return 2, 2 }
func (g grid) Z(c, r int) float64 { return g[1-r][c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }
