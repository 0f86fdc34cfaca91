package analysis

import (
	"sort"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// Reshape pivots the long table to one row per stratum with the treatment
// odds ratio, p-value, and significance tier per model. Rows whose treatment
// estimate is exactly zero are reference-level artifacts and are excluded.
// A stratum keeps its row even when some models failed; the missing cells
// stay nil.
func Reshape(rows []model.ResultRow, models []ModelSpec) []model.WideRow {
	treatment := model.NewTermKey(TreatmentTerm)

	byStratum := make(map[int]*model.WideRow)
	var codes []int

	for _, row := range rows {
		if !treatment.Matches(row.Term) || row.Coef == 0 {
			continue
		}
		wide, ok := byStratum[row.StratumCode]
		if !ok {
			wide = &model.WideRow{
				StratumCode: row.StratumCode,
				StratumName: row.StratumName,
				OR:          make(map[string]*float64, len(models)),
				PValue:      make(map[string]*float64, len(models)),
				Sig:         make(map[string]*string, len(models)),
			}
			byStratum[row.StratumCode] = wide
			codes = append(codes, row.StratumCode)
		}
		or, p, sig := row.OR, row.PValue, row.Sig
		wide.OR[row.Model] = &or
		wide.PValue[row.Model] = &p
		wide.Sig[row.Model] = &sig
	}

	sort.Ints(codes)
	out := make([]model.WideRow, 0, len(codes))
	for _, code := range codes {
		out = append(out, *byStratum[code])
	}
	return out
}
