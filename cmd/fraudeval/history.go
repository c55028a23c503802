package main

import (
	"fmt"
	"os"
	"time"

	"fraud-eval/internal/storage"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	path  string
	limit int
	model string
	since time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "List stored runs, show one run or the score trend of a model",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := historyFlags.path
		if !cmd.Flags().Changed("path") {
			path = loadSettings().HistoryPath
		}
		if path == "" {
			log.Fatal().Msg("No history directory: set --path or HISTORY_PATH")
		}

		store, err := storage.New(path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open run history")
		}
		defer store.Close()

		switch {
		case len(args) == 1:
			err = showRun(store, args[0])
		case historyFlags.model != "":
			err = showTrend(store, historyFlags.model, historyFlags.since)
		default:
			err = listRuns(store, historyFlags.limit)
		}
		if err != nil {
			store.Close()
			log.Fatal().Err(err).Msg("History query failed")
		}
	},
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.path, "path", "", "directory of the run history database")
	f.IntVar(&historyFlags.limit, "limit", 20, "maximum number of runs to list, 0 for all")
	f.StringVar(&historyFlags.model, "model", "", "show the score trend of this model kind")
	f.DurationVar(&historyFlags.since, "since", 30*24*time.Hour, "trend window")
}

func listRuns(store *storage.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Started", "Rows", "Test", "Seed", "Models", "Best F1"})
	for _, r := range runs {
		best := "-"
		if len(r.Models) > 0 {
			top := r.Models[0]
			for _, m := range r.Models[1:] {
				if m.F1 > top.F1 {
					top = m
				}
			}
			best = fmt.Sprintf("%.4f (%s)", top.F1, top.Kind)
		}
		table.Append([]string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprint(r.Rows),
			fmt.Sprint(r.TestRows),
			fmt.Sprint(r.Seed),
			fmt.Sprint(len(r.Models)),
			best,
		})
	}
	table.Render()
	return nil
}

func showRun(store *storage.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("Started: %s, finished: %s\n", run.StartedAt.Local().Format(time.RFC3339), run.FinishedAt.Local().Format(time.RFC3339))
	fmt.Printf("Data: %s (%d rows, %d fraud)\n", run.DataPath, run.Rows, run.Frauds)
	fmt.Printf("Split: %d train / %d test, seed %d, stratified %t, scaler fit on %s\n\n",
		run.TrainRows, run.TestRows, run.Seed, run.Stratified, run.ScalerFitOn)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Model", "Accuracy", "F1", "Precision", "Recall", "TN", "FP", "FN", "TP"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, m := range run.Models {
		table.Append([]string{
			m.Title,
			fmt.Sprintf("%.4f", m.Accuracy),
			fmt.Sprintf("%.4f", m.F1),
			fmt.Sprintf("%.4f", m.Precision),
			fmt.Sprintf("%.4f", m.Recall),
			fmt.Sprint(m.Confusion.TN()),
			fmt.Sprint(m.Confusion.FP()),
			fmt.Sprint(m.Confusion.FN()),
			fmt.Sprint(m.Confusion.TP()),
		})
	}
	table.Render()
	return nil
}

func showTrend(store *storage.Store, kind string, since time.Duration) error {
	end := time.Now()
	scores, err := store.GetScores(kind, end.Add(-since), end)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Started", "Run", "Accuracy", "F1", "Precision", "Recall"})
	for _, s := range scores {
		table.Append([]string{
			s.Timestamp.Local().Format("2006-01-02 15:04:05"),
			s.RunID,
			fmt.Sprintf("%.4f", s.Accuracy),
			fmt.Sprintf("%.4f", s.F1),
			fmt.Sprintf("%.4f", s.Precision),
			fmt.Sprintf("%.4f", s.Recall),
		})
	}
	table.Render()
	return nil
}
