package main

import (
	"os"

	"fraud-eval/internal/common"
	"fraud-eval/internal/dataset"
	"fraud-eval/internal/pipeline"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var describeColumn string

var describeCmd = &cobra.Command{
	Use:   "describe [CSV]",
	Short: "Print case counts and per-class statistics of a column",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			path = loadSettings().DataPath
		}

		d, err := dataset.LoadCSV(path, dataset.DefaultLoadOptions())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load data")
		}
		summary, err := d.Describe(describeColumn)
		if err != nil {
			log.Fatal().Err(err).Str("column", describeColumn).Msg("Failed to describe column")
		}
		pipeline.PrintDatasetSummary(os.Stdout, summary)
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeColumn, "column", "c", common.AmountColumn, "column to describe")
}
