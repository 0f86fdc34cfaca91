package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/dataset"
	"github.com/ruralhealth-lab/disparity-cli/internal/export"
	"github.com/ruralhealth-lab/disparity-cli/internal/solver"
	"github.com/ruralhealth-lab/disparity-cli/internal/store"
	"github.com/ruralhealth-lab/disparity-cli/internal/strata"
)

var (
	fitInput       string
	fitOutputDir   string
	fitEstimator   string
	fitMinRuralN   int
	fitConcurrency int
	fitNoStore     bool
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the nested regression sequence across all strata",
	Long: `Reads the combined BRFSS CSV, fits the four nested logistic models to the
nationwide population and every state, and writes the long and wide result
tables (CSV and XLSX) plus fit diagnostics.

Examples:
  # Default maximum-likelihood path with GEE fallback
  disparity-cli fit --input data/combinedbrfss.csv

  # Force the GEE estimator for every stratum
  disparity-cli fit --input data/combinedbrfss.csv --estimator gee`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyFitFlags()
		if err := cfg.Validate("fit"); err != nil {
			return err
		}
		input := cfg.Data.InputPath
		if input == "" {
			return eris.New("fit: no input file; pass --input or set data.input_path")
		}

		models, err := analysis.LoadModelSpecs()
		if err != nil {
			return err
		}
		runner := buildRunner(models)

		rows, err := dataset.Load(input)
		if err != nil {
			return err
		}
		recs := dataset.Clean(rows)
		if len(recs) == 0 {
			return eris.Errorf("fit: %s has no usable records after cleaning", input)
		}

		var st store.Store
		var runID string
		if !fitNoStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run, err := st.CreateRun(ctx, input, cfg.Fit.Estimator)
			if err != nil {
				return err
			}
			runID = run.ID
			zap.L().Info("fit: run created", zap.String("run_id", runID))
		}

		results, failures, err := runner.Run(ctx, recs)
		if err != nil {
			if st != nil {
				if failErr := st.FailRun(ctx, runID, err.Error()); failErr != nil {
					zap.L().Error("fit: record failure", zap.Error(failErr))
				}
			}
			return eris.Wrap(err, "fit: run models")
		}

		if st != nil {
			if err := st.SaveResults(ctx, runID, results); err != nil {
				return err
			}
			if err := st.SaveFailures(ctx, runID, failures); err != nil {
				return err
			}
			if err := st.CompleteRun(ctx, runID, store.RunSummary{
				Records:      len(recs),
				StrataTotal:  len(strata.All()),
				StrataFailed: failedStrata(failures),
				ResultRows:   len(results),
			}); err != nil {
				return err
			}
		}

		if err := os.MkdirAll(cfg.Data.OutputDir, 0o755); err != nil {
			return eris.Wrap(err, "fit: create output dir")
		}
		wide := analysis.Reshape(results, models)
		if err := export.WriteAll(cfg.Data.OutputDir, results, wide, failures, modelNames(models)); err != nil {
			return err
		}

		zap.L().Info("fit: complete",
			zap.String("run_id", runID),
			zap.Int("records", len(recs)),
			zap.Int("result_rows", len(results)),
			zap.Int("failures", len(failures)),
			zap.String("output_dir", cfg.Data.OutputDir),
		)
		return nil
	},
}

func init() {
	fitCmd.Flags().StringVar(&fitInput, "input", "", "path to the combined BRFSS CSV")
	fitCmd.Flags().StringVar(&fitOutputDir, "output-dir", "", "directory for result artifacts (default from config)")
	fitCmd.Flags().StringVar(&fitEstimator, "estimator", "", "primary estimator: ml or gee (default from config)")
	fitCmd.Flags().IntVar(&fitMinRuralN, "min-rural-n", 0, "minimum rural records per state (default from config)")
	fitCmd.Flags().IntVar(&fitConcurrency, "concurrency", 0, "strata fitted in parallel (default from config)")
	fitCmd.Flags().BoolVar(&fitNoStore, "no-store", false, "skip run bookkeeping in the database")
	rootCmd.AddCommand(fitCmd)
}

// applyFitFlags folds explicit flags over the loaded config.
func applyFitFlags() {
	if fitInput != "" {
		cfg.Data.InputPath = fitInput
	}
	if fitOutputDir != "" {
		cfg.Data.OutputDir = fitOutputDir
	}
	if fitEstimator != "" {
		cfg.Fit.Estimator = fitEstimator
	}
	if fitMinRuralN > 0 {
		cfg.Fit.MinRuralN = fitMinRuralN
	}
	if fitConcurrency > 0 {
		cfg.Fit.Concurrency = fitConcurrency
	}
}

// buildRunner wires the solver pair for the configured estimator. The ML path
// keeps GEE as a convergence fallback; forcing GEE runs it alone.
func buildRunner(models []analysis.ModelSpec) *analysis.Runner {
	r := analysis.NewRunner(models, cfg.Fit.MinRuralN, cfg.Fit.Concurrency)
	if cfg.Fit.Estimator == "gee" {
		r.Primary = solver.NewGEESolver()
		r.Fallback = nil
	}
	return r
}

func failedStrata(failures []analysis.Failure) int {
	seen := make(map[int]bool)
	for _, f := range failures {
		seen[f.StratumCode] = true
	}
	return len(seen)
}

func modelNames(models []analysis.ModelSpec) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}
