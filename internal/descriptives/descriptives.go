// Package descriptives computes the weighted sample summaries that accompany
// the regression tables: category distributions and urban/rural smoking
// prevalence with design-effective sample sizes.
package descriptives

import (
	"sort"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// CategoryRow is one level of one categorical variable: unweighted count,
// weighted share within the variable, and weighted smoking prevalence within
// the level.
type CategoryRow struct {
	Variable   string  `json:"variable"`
	Level      string  `json:"level"`
	N          int     `json:"n"`
	WeightedN  float64 `json:"weighted_n"`
	Percent    float64 `json:"percent"`
	Prevalence float64 `json:"smoking_prevalence"`
}

// variableDef binds a display name to a code accessor and label set.
type variableDef struct {
	name   string
	code   func(model.AnalysisRecord) int
	labels map[int]string
}

func variables() []variableDef {
	return []variableDef{
		{"Urbanicity", func(r model.AnalysisRecord) int { return r.Rural }, model.UrbanRuralLabels},
		{"Age group", func(r model.AnalysisRecord) int { return r.AgeGroup }, model.AgeLabels},
		{"Sex", func(r model.AnalysisRecord) int { return r.Sex }, model.SexLabels},
		{"Race/ethnicity", func(r model.AnalysisRecord) int { return r.RaceGroup }, model.RaceLabels},
		{"Education", func(r model.AnalysisRecord) int { return r.EduGroup }, model.EduLabels},
		{"Survey year", func(r model.AnalysisRecord) int { return r.YearCentered }, model.YearLabels},
	}
}

// Summarize computes the weighted category table over the cleaned records.
// Levels appear in code order; percentages are weighted shares within each
// variable, so each variable's levels sum to 100.
func Summarize(recs []model.AnalysisRecord) []CategoryRow {
	var out []CategoryRow
	for _, v := range variables() {
		out = append(out, summarizeVariable(recs, v)...)
	}
	return out
}

type levelAccum struct {
	n            int
	weight       float64
	smokerWeight float64
}

func summarizeVariable(recs []model.AnalysisRecord, v variableDef) []CategoryRow {
	accum := make(map[int]*levelAccum)
	var totalWeight float64

	for _, rec := range recs {
		code := v.code(rec)
		a, ok := accum[code]
		if !ok {
			a = &levelAccum{}
			accum[code] = a
		}
		a.n++
		a.weight += rec.Weight
		if rec.Smoker == 1 {
			a.smokerWeight += rec.Weight
		}
		totalWeight += rec.Weight
	}

	codes := make([]int, 0, len(accum))
	for code := range accum {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	rows := make([]CategoryRow, 0, len(codes))
	for _, code := range codes {
		a := accum[code]
		row := CategoryRow{
			Variable:  v.name,
			Level:     v.labels[code],
			N:         a.n,
			WeightedN: a.weight,
		}
		if totalWeight > 0 {
			row.Percent = 100 * a.weight / totalWeight
		}
		if a.weight > 0 {
			row.Prevalence = 100 * a.smokerWeight / a.weight
		}
		rows = append(rows, row)
	}
	return rows
}
