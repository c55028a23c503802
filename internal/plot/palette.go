package plot

import (
	"fmt"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
)

// bluesLevels is the largest Blues scheme ColorBrewer defines.
const bluesLevels = 9

// blues returns the sequential ColorBrewer Blues scheme, white to dark blue.
func blues() (palette.Palette, error) {
	p, err := brewer.GetPalette(brewer.TypeSequential, "Blues", bluesLevels)
	if err != nil {
		return nil, fmt.Errorf("plot: %w", err)
	}
	return p, nil
}
