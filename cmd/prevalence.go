package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ruralhealth-lab/disparity-cli/internal/dataset"
	"github.com/ruralhealth-lab/disparity-cli/internal/descriptives"
	"github.com/ruralhealth-lab/disparity-cli/internal/export"
)

var (
	prevInput  string
	prevOutput string
	prevCSV    string
)

var prevalenceCmd = &cobra.Command{
	Use:   "prevalence",
	Short: "Weighted urban and rural smoking prevalence by geography",
	Long: `Computes survey-weighted smoking prevalence for urban and rural residents,
nationwide and for every state and territory present in the file, with Kish
effective sample sizes and the rural/urban prevalence ratio. Territories
appear here even though the regression strata exclude them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if prevInput != "" {
			cfg.Data.InputPath = prevInput
		}
		if cfg.Data.InputPath == "" {
			return eris.New("prevalence: no input file; pass --input or set data.input_path")
		}

		rows, err := dataset.Load(cfg.Data.InputPath)
		if err != nil {
			return err
		}
		recs := dataset.Clean(rows)
		if len(recs) == 0 {
			return eris.Errorf("prevalence: %s has no usable records after cleaning", cfg.Data.InputPath)
		}

		table := descriptives.Prevalence(recs)
		zap.L().Info("prevalence: table built",
			zap.Int("records", len(recs)), zap.Int("geographies", len(table)))

		if prevCSV != "" {
			if err := export.WritePrevalenceCSV(prevCSV, table); err != nil {
				return err
			}
		}

		out, closeFn, err := openOutput(prevOutput)
		if err != nil {
			return err
		}
		defer closeFn()

		return descriptives.WritePrevalence(out, table)
	},
}

func init() {
	prevalenceCmd.Flags().StringVar(&prevInput, "input", "", "path to the combined BRFSS CSV")
	prevalenceCmd.Flags().StringVar(&prevOutput, "output", "", "write the table to a file instead of stdout")
	prevalenceCmd.Flags().StringVar(&prevCSV, "csv", "", "also write the table as CSV to this path")
	rootCmd.AddCommand(prevalenceCmd)
}
