package export

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// Artifact file names, fixed so downstream scripts can glob for them.
const (
	LongCSVName     = "results_long.csv"
	WideCSVName     = "results_wide.csv"
	FailuresCSVName = "fit_failures.csv"
	WorkbookName    = "results.xlsx"
)

// WriteAll writes every artifact into dir, attempting each one even when an
// earlier write failed. The returned error names the artifacts that failed.
func WriteAll(dir string, long []model.ResultRow, wide []model.WideRow, failures []analysis.Failure, models []string) error {
	artifacts := []struct {
		name  string
		write func(path string) error
	}{
		{LongCSVName, func(p string) error { return WriteLongCSV(p, long) }},
		{WideCSVName, func(p string) error { return WriteWideCSV(p, wide, models) }},
		{FailuresCSVName, func(p string) error { return WriteFailuresCSV(p, failures) }},
		{WorkbookName, func(p string) error { return WriteWorkbook(p, long, wide, models) }},
	}

	var failed []string
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := a.write(path); err != nil {
			zap.L().Error("export: artifact failed",
				zap.String("artifact", a.name), zap.Error(err))
			failed = append(failed, a.name)
			continue
		}
		zap.L().Info("export: artifact written", zap.String("path", path))
	}
	if len(failed) > 0 {
		return eris.Errorf("export: %d of %d artifacts failed: %s",
			len(failed), len(artifacts), strings.Join(failed, ", "))
	}
	return nil
}
