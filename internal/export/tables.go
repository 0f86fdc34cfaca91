package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/ruralhealth-lab/disparity-cli/internal/descriptives"
)

// WriteSummaryCSV writes the weighted category composition table.
func WriteSummaryCSV(path string, rows []descriptives.CategoryRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create summary csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"variable", "level", "n", "weighted_n", "percent", "smoking_prevalence"}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write summary header")
	}
	for _, row := range rows {
		rec := []string{
			row.Variable,
			row.Level,
			strconv.Itoa(row.N),
			fmtFloat(row.WeightedN),
			fmtFloat(row.Percent),
			fmtFloat(row.Prevalence),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "export: write summary row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush summary csv")
}

// WritePrevalenceCSV writes the per-geography urban/rural prevalence table.
func WritePrevalenceCSV(path string, rows []descriptives.PrevalenceRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create prevalence csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"stratum_code", "stratum_name", "urban_n", "rural_n",
		"urban_effective_n", "rural_effective_n",
		"urban_prevalence", "urban_ci_lower", "urban_ci_upper",
		"rural_prevalence", "rural_ci_lower", "rural_ci_upper",
		"rural_urban_ratio",
		"rural_prevalence_2018_ci", "urban_prevalence_2018_ci", "ratio_2018",
		"rural_prevalence_2024_ci", "urban_prevalence_2024_ci", "ratio_2024",
		"change_in_ratio",
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write prevalence header")
	}
	for _, row := range rows {
		change := ""
		if row.Year2018.Ratio > 0 && row.Year2024.Ratio > 0 {
			change = fmtFloat(row.RatioChange)
		}
		rec := []string{
			strconv.Itoa(row.StratumCode),
			row.StratumName,
			strconv.Itoa(row.UrbanN),
			strconv.Itoa(row.RuralN),
			fmtFloat(row.UrbanEffectiveN),
			fmtFloat(row.RuralEffectiveN),
			fmtFloat(row.UrbanPrevalence),
			fmtFloat(row.UrbanCILower),
			fmtFloat(row.UrbanCIUpper),
			fmtFloat(row.RuralPrevalence),
			fmtFloat(row.RuralCILower),
			fmtFloat(row.RuralCIUpper),
			fmtRatioCell(row.Ratio),
			row.Year2018.RuralDisplay(),
			row.Year2018.UrbanDisplay(),
			fmtRatioCell(row.Year2018.Ratio),
			row.Year2024.RuralDisplay(),
			row.Year2024.UrbanDisplay(),
			fmtRatioCell(row.Year2024.Ratio),
			change,
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "export: write prevalence row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush prevalence csv")
}

// fmtRatioCell leaves the cell empty for geographies with no usable
// urban/rural split.
func fmtRatioCell(r float64) string {
	if r == 0 {
		return ""
	}
	return fmtFloat(r)
}
