package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/mapping"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
	"github.com/ruralhealth-lab/disparity-cli/internal/store"
)

var (
	mapRunID     string
	mapShapefile string
	mapOutput    string
)

var mapdataCmd = &cobra.Command{
	Use:   "mapdata",
	Short: "Build choropleth GeoJSON from a completed run",
	Long: `Joins the odds ratios of a completed run onto state boundary geometry and
writes a GeoJSON FeatureCollection with a significance category and fill color
per state and model. Uses the most recent completed run unless --run is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if mapShapefile != "" {
			cfg.Map.ShapefilePath = mapShapefile
		}
		if err := cfg.Validate("mapdata"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := resolveRun(ctx, st, mapRunID)
		if err != nil {
			return err
		}
		results, err := st.GetResults(ctx, run.ID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return eris.Errorf("mapdata: run %s has no stored results", run.ID)
		}

		models, err := analysis.LoadModelSpecs()
		if err != nil {
			return err
		}
		wide := analysis.Reshape(results, models)

		states, err := mapping.LoadStates(cfg.Map.ShapefilePath)
		if err != nil {
			return err
		}

		out := mapOutput
		if out == "" {
			out = filepath.Join(cfg.Data.OutputDir, "disparity_map.geojson")
		}
		fc := mapping.BuildFeatureCollection(states, wide, modelNames(models))
		if err := mapping.WriteGeoJSON(out, fc); err != nil {
			return err
		}

		zap.L().Info("mapdata: geojson written",
			zap.String("run_id", run.ID),
			zap.Int("states", len(states)),
			zap.Int("features", len(fc.Features)),
			zap.String("path", out),
		)
		return nil
	},
}

func init() {
	mapdataCmd.Flags().StringVar(&mapRunID, "run", "", "run ID to map (default: latest completed run)")
	mapdataCmd.Flags().StringVar(&mapShapefile, "shapefile", "", "path to the state boundary shapefile")
	mapdataCmd.Flags().StringVar(&mapOutput, "output", "", "GeoJSON output path (default: <output-dir>/disparity_map.geojson)")
	rootCmd.AddCommand(mapdataCmd)
}

// resolveRun returns the named run, or the most recent completed run when no
// ID was given.
func resolveRun(ctx context.Context, st store.Store, runID string) (*model.Run, error) {
	if runID != "" {
		return st.GetRun(ctx, runID)
	}
	runs, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatusComplete, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, eris.New("mapdata: no completed runs; run fit first")
	}
	return &runs[0], nil
}
