package descriptives

import (
	"fmt"
	"math"
	"sort"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
	"github.com/ruralhealth-lab/disparity-cli/internal/strata"
)

// Centered codes for the survey window endpoints, 2018 and 2024.
const (
	firstYearCentered = -2
	lastYearCentered  = 4
)

// PrevalenceRow is one geography's urban/rural weighted smoking prevalence.
// Territories carry a row here even though they are never regression strata.
type PrevalenceRow struct {
	StratumCode     int     `json:"stratum_code"`
	StratumName     string  `json:"stratum_name"`
	UrbanN          int     `json:"urban_n"`
	RuralN          int     `json:"rural_n"`
	UrbanEffectiveN float64 `json:"urban_effective_n"`
	RuralEffectiveN float64 `json:"rural_effective_n"`
	UrbanPrevalence float64 `json:"urban_prevalence"`
	UrbanCILower    float64 `json:"urban_ci_lower"`
	UrbanCIUpper    float64 `json:"urban_ci_upper"`
	RuralPrevalence float64 `json:"rural_prevalence"`
	RuralCILower    float64 `json:"rural_ci_lower"`
	RuralCIUpper    float64 `json:"rural_ci_upper"`
	Ratio           float64 `json:"rural_urban_ratio"` // 0 when either side is empty

	// Endpoint-year columns: the same statistics restricted to the first
	// and last survey years, with the change in the rural/urban ratio
	// between them.
	Year2018    YearSnapshot `json:"year_2018"`
	Year2024    YearSnapshot `json:"year_2024"`
	RatioChange float64      `json:"change_in_ratio"` // 2024 ratio minus 2018 ratio; 0 unless both exist
}

// YearSnapshot is one endpoint year's urban/rural prevalence within a
// geography.
type YearSnapshot struct {
	UrbanPrevalence float64 `json:"urban_prevalence"`
	UrbanCILower    float64 `json:"urban_ci_lower"`
	UrbanCIUpper    float64 `json:"urban_ci_upper"`
	RuralPrevalence float64 `json:"rural_prevalence"`
	RuralCILower    float64 `json:"rural_ci_lower"`
	RuralCIUpper    float64 `json:"rural_ci_upper"`
	Ratio           float64 `json:"ratio"` // 0 when either side is empty
	urbanN          int
	ruralN          int
}

// UrbanDisplay formats the urban prevalence with its interval, e.g.
// "12.3% (10.1%–14.5%)". Empty when the year has no urban records.
func (s YearSnapshot) UrbanDisplay() string {
	return prevalenceDisplay(s.urbanN, s.UrbanPrevalence, s.UrbanCILower, s.UrbanCIUpper)
}

// RuralDisplay is UrbanDisplay for the rural side.
func (s YearSnapshot) RuralDisplay() string {
	return prevalenceDisplay(s.ruralN, s.RuralPrevalence, s.RuralCILower, s.RuralCIUpper)
}

func prevalenceDisplay(n int, prev, lower, upper float64) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%% (%.1f%%–%.1f%%)", prev, lower, upper)
}

// KishEffectiveN is the design-effective sample size (sum w)^2 / sum w^2.
// Equal weights give back the raw count; unequal weights shrink it.
func KishEffectiveN(weights []float64) float64 {
	var sum, sumSq float64
	for _, w := range weights {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return sum * sum / sumSq
}

type groupAccum struct {
	n            int
	weights      []float64
	weight       float64
	smokerWeight float64
}

func (g *groupAccum) add(rec model.AnalysisRecord) {
	g.n++
	g.weights = append(g.weights, rec.Weight)
	g.weight += rec.Weight
	if rec.Smoker == 1 {
		g.smokerWeight += rec.Weight
	}
}

func (g *groupAccum) prevalence() float64 {
	if g.weight == 0 {
		return 0
	}
	return 100 * g.smokerWeight / g.weight
}

const ciZ = 1.96

// interval is the normal-approximation binomial interval around the weighted
// prevalence, with the Kish effective n standing in for the sample size.
func (g *groupAccum) interval() (lower, upper float64) {
	effN := KishEffectiveN(g.weights)
	if effN == 0 {
		return 0, 0
	}
	p := g.smokerWeight / g.weight
	half := ciZ * math.Sqrt(p*(1-p)/effN)
	return 100 * math.Max(0, p-half), 100 * math.Min(1, p+half)
}

// Prevalence computes the per-geography table: nationwide first, then every
// FIPS code observed in the data in ascending order, including territories.
func Prevalence(recs []model.AnalysisRecord) []PrevalenceRow {
	byState := make(map[int][]model.AnalysisRecord)
	for _, rec := range recs {
		byState[rec.StateFIPS] = append(byState[rec.StateFIPS], rec)
	}

	codes := make([]int, 0, len(byState))
	for code := range byState {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	rows := make([]PrevalenceRow, 0, len(codes)+1)
	rows = append(rows, prevalenceRow(strata.NationwideCode, "Nationwide", recs))
	for _, code := range codes {
		name, ok := strata.DisplayName(code)
		if !ok {
			continue
		}
		rows = append(rows, prevalenceRow(code, name, byState[code]))
	}
	return rows
}

func prevalenceRow(code int, name string, recs []model.AnalysisRecord) PrevalenceRow {
	var urban, rural groupAccum
	for _, rec := range recs {
		if rec.Rural == 1 {
			rural.add(rec)
		} else {
			urban.add(rec)
		}
	}

	row := PrevalenceRow{
		StratumCode:     code,
		StratumName:     name,
		UrbanN:          urban.n,
		RuralN:          rural.n,
		UrbanEffectiveN: KishEffectiveN(urban.weights),
		RuralEffectiveN: KishEffectiveN(rural.weights),
		UrbanPrevalence: urban.prevalence(),
		RuralPrevalence: rural.prevalence(),
	}
	row.UrbanCILower, row.UrbanCIUpper = urban.interval()
	row.RuralCILower, row.RuralCIUpper = rural.interval()
	if row.UrbanPrevalence > 0 && rural.n > 0 {
		row.Ratio = row.RuralPrevalence / row.UrbanPrevalence
	}

	row.Year2018 = yearSnapshot(recs, firstYearCentered)
	row.Year2024 = yearSnapshot(recs, lastYearCentered)
	if row.Year2018.Ratio > 0 && row.Year2024.Ratio > 0 {
		row.RatioChange = row.Year2024.Ratio - row.Year2018.Ratio
	}
	return row
}

func yearSnapshot(recs []model.AnalysisRecord, yearCentered int) YearSnapshot {
	var urban, rural groupAccum
	for _, rec := range recs {
		if rec.YearCentered != yearCentered {
			continue
		}
		if rec.Rural == 1 {
			rural.add(rec)
		} else {
			urban.add(rec)
		}
	}

	s := YearSnapshot{
		UrbanPrevalence: urban.prevalence(),
		RuralPrevalence: rural.prevalence(),
		urbanN:          urban.n,
		ruralN:          rural.n,
	}
	s.UrbanCILower, s.UrbanCIUpper = urban.interval()
	s.RuralCILower, s.RuralCIUpper = rural.interval()
	if s.UrbanPrevalence > 0 && rural.n > 0 {
		s.Ratio = s.RuralPrevalence / s.UrbanPrevalence
	}
	return s
}
