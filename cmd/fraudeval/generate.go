package main

import (
	"fmt"
	"os"

	"fraud-eval/internal/dataset"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var synth = dataset.DefaultSynthOptions()

var generateCmd = &cobra.Command{
	Use:   "generate FILE",
	Short: "Write a synthetic transaction CSV",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		d, err := writeSynthetic(args[0], synth)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to write synthetic data")
		}
		_, fraud := d.ClassCounts()
		log.Info().
			Str("file", args[0]).
			Int("rows", d.Len()).
			Int("fraud", fraud).
			Msg("Synthetic data written")
	},
}

func writeSynthetic(path string, opts dataset.SynthOptions) (*dataset.Dataset, error) {
	d, err := dataset.Synthesize(opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := d.WriteCSV(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", path, err)
	}
	return d, nil
}

func init() {
	f := generateCmd.Flags()
	f.IntVar(&synth.Rows, "rows", synth.Rows, "number of records")
	f.IntVar(&synth.Frauds, "frauds", synth.Frauds, "number of fraudulent records")
	f.IntVar(&synth.Features, "features", synth.Features, "number of anonymised V columns")
	f.Int64Var(&synth.Seed, "seed", synth.Seed, "random seed")
}
