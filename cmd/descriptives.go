package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ruralhealth-lab/disparity-cli/internal/dataset"
	"github.com/ruralhealth-lab/disparity-cli/internal/descriptives"
	"github.com/ruralhealth-lab/disparity-cli/internal/export"
)

var (
	descInput  string
	descOutput string
	descCSV    string
)

var descriptivesCmd = &cobra.Command{
	Use:   "descriptives",
	Short: "Weighted sample composition by demographic variable",
	Long: `Summarizes the cleaned analytic sample: unweighted counts, weighted
percentages, and weighted smoking prevalence for urbanicity, age group, sex,
race/ethnicity, and education. Writes an aligned text table to stdout, or to
--output when given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if descInput != "" {
			cfg.Data.InputPath = descInput
		}
		if cfg.Data.InputPath == "" {
			return eris.New("descriptives: no input file; pass --input or set data.input_path")
		}

		rows, err := dataset.Load(cfg.Data.InputPath)
		if err != nil {
			return err
		}
		recs := dataset.Clean(rows)
		if len(recs) == 0 {
			return eris.Errorf("descriptives: %s has no usable records after cleaning", cfg.Data.InputPath)
		}
		zap.L().Info("descriptives: sample cleaned",
			zap.Int("raw_rows", len(rows)), zap.Int("records", len(recs)))

		table := descriptives.Summarize(recs)
		if descCSV != "" {
			if err := export.WriteSummaryCSV(descCSV, table); err != nil {
				return err
			}
		}

		out, closeFn, err := openOutput(descOutput)
		if err != nil {
			return err
		}
		defer closeFn()

		return descriptives.WriteSummary(out, table)
	},
}

func init() {
	descriptivesCmd.Flags().StringVar(&descInput, "input", "", "path to the combined BRFSS CSV")
	descriptivesCmd.Flags().StringVar(&descOutput, "output", "", "write the table to a file instead of stdout")
	descriptivesCmd.Flags().StringVar(&descCSV, "csv", "", "also write the table as CSV to this path")
	rootCmd.AddCommand(descriptivesCmd)
}

// openOutput returns stdout or a created file, with a close func that is a
// no-op for stdout.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}
