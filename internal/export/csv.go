// Package export writes the result tables to disk as CSV and XLSX artifacts.
// Artifacts are independent: one failing write never blocks the others.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/ruralhealth-lab/disparity-cli/internal/analysis"
	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// longHeader is the long-table column order. Downstream consumers key on
// these names, so they are fixed.
var longHeader = []string{
	"stratum_code", "stratum_name", "model_label", "covariate_name",
	"coefficient", "odds_ratio", "ci_lower", "ci_upper", "p_value",
	"significance_tier", "or_display_string", "ci_display_string", "n",
}

// WriteLongCSV writes the long result table: one row per (stratum, model,
// term) estimate.
func WriteLongCSV(path string, rows []model.ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create long csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(longHeader); err != nil {
		return eris.Wrap(err, "export: write long header")
	}
	for _, row := range rows {
		rec := []string{
			strconv.Itoa(row.StratumCode),
			row.StratumName,
			row.Model,
			row.Term,
			fmtFloat(row.Coef),
			fmtFloat(row.OR),
			fmtFloat(row.CILower),
			fmtFloat(row.CIUpper),
			fmtFloat(row.PValue),
			row.Sig,
			row.ORDisplay,
			row.CIDisplay,
			strconv.Itoa(row.N),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "export: write long row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush long csv")
}

// WideHeader returns the wide-table column order for a model sequence:
// stratum identity, then the odds ratios, p-values, and significance tiers
// grouped by measure.
func WideHeader(models []string) []string {
	header := []string{"stratum_code", "stratum_name"}
	for _, m := range models {
		header = append(header, "or_"+m)
	}
	for _, m := range models {
		header = append(header, "pvalue_"+m)
	}
	for _, m := range models {
		header = append(header, "sig_"+m)
	}
	return header
}

// WriteWideCSV writes the stratum-wide pivot. Cells for models that failed in
// a stratum are empty, never zero.
func WriteWideCSV(path string, rows []model.WideRow, models []string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create wide csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(WideHeader(models)); err != nil {
		return eris.Wrap(err, "export: write wide header")
	}
	for _, row := range rows {
		if err := w.Write(wideRecord(row, models)); err != nil {
			return eris.Wrap(err, "export: write wide row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush wide csv")
}

func wideRecord(row model.WideRow, models []string) []string {
	rec := []string{strconv.Itoa(row.StratumCode), row.StratumName}
	for _, m := range models {
		rec = append(rec, fmtFloatPtr(row.OR[m]))
	}
	for _, m := range models {
		rec = append(rec, fmtFloatPtr(row.PValue[m]))
	}
	for _, m := range models {
		if s := row.Sig[m]; s != nil {
			rec = append(rec, *s)
		} else {
			rec = append(rec, "")
		}
	}
	return rec
}

// WriteFailuresCSV writes the per-stratum fit diagnostics.
func WriteFailuresCSV(path string, failures []analysis.Failure) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create failures csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"stratum_code", "stratum_name", "model_label", "reason"}); err != nil {
		return eris.Wrap(err, "export: write failures header")
	}
	for _, fl := range failures {
		rec := []string{strconv.Itoa(fl.StratumCode), fl.StratumName, fl.Model, fl.Reason}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "export: write failure row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush failures csv")
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmtFloat(*v)
}
