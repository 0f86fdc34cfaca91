package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
	"github.com/ruralhealth-lab/disparity-cli/internal/solver"
)

// factorCode extracts a categorical covariate's code from a record.
var factorCode = map[string]func(model.AnalysisRecord) int{
	"age":  func(r model.AnalysisRecord) int { return r.AgeGroup },
	"sex":  func(r model.AnalysisRecord) int { return r.Sex },
	"race": func(r model.AnalysisRecord) int { return r.RaceGroup },
	"edu":  func(r model.AnalysisRecord) int { return r.EduGroup },
}

// BuildDesign expands a model specification against a record subset into a
// numeric design matrix. Categorical covariates become indicator columns
// against a fixed reference (the lowest code: urban, age 18-24, male,
// non-Hispanic White, did-not-graduate); levels absent from the subset are
// not emitted so small strata stay estimable. Interaction terms become the
// product of their expanded components.
func BuildDesign(recs []model.AnalysisRecord, spec ModelSpec) (*solver.Design, error) {
	n := len(recs)
	if n == 0 {
		return nil, eris.Errorf("analysis: model %s has no records", spec.Name)
	}

	d := &solver.Design{
		Y:        make([]float64, n),
		Weights:  make([]float64, n),
		Strata:   make([]string, n),
		Clusters: make([]string, n),
	}
	for i, rec := range recs {
		d.Y[i] = float64(rec.Smoker)
		d.Weights[i] = rec.Weight
		d.Strata[i] = rec.DesignStratum
		d.Clusters[i] = rec.PSU
	}

	addColumn := func(name string, col []float64) {
		d.Names = append(d.Names, name)
		d.Cols = append(d.Cols, col)
	}

	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	addColumn(solver.InterceptName, ones)

	// Simple numeric columns are shared by main effects and interactions.
	numeric := func(term string) ([]float64, error) {
		col := make([]float64, n)
		switch term {
		case TreatmentTerm:
			for i, rec := range recs {
				col[i] = float64(rec.Rural)
			}
		case YearTerm:
			for i, rec := range recs {
				col[i] = float64(rec.YearCentered)
			}
		default:
			return nil, eris.Errorf("analysis: term %s is not numeric", term)
		}
		return col, nil
	}

	for _, term := range spec.Terms {
		switch {
		case term == TreatmentTerm || term == YearTerm:
			col, err := numeric(term)
			if err != nil {
				return nil, err
			}
			addColumn(term, col)

		case strings.Contains(term, model.InteractionSep):
			parts := strings.Split(term, model.InteractionSep)
			if len(parts) != 2 {
				return nil, eris.Errorf("analysis: unsupported interaction %s", term)
			}
			left, err := numeric(parts[0])
			if err != nil {
				return nil, err
			}
			right, err := numeric(parts[1])
			if err != nil {
				return nil, err
			}
			col := make([]float64, n)
			for i := range col {
				col[i] = left[i] * right[i]
			}
			addColumn(term, col)

		default:
			code, ok := factorCode[term]
			if !ok {
				return nil, eris.Errorf("analysis: unknown term %s in model %s", term, spec.Name)
			}
			for _, level := range observedLevels(recs, code)[1:] {
				col := make([]float64, n)
				for i, rec := range recs {
					if code(rec) == level {
						col[i] = 1
					}
				}
				addColumn(fmt.Sprintf("%s%d", term, level), col)
			}
		}
	}

	return d, nil
}

// observedLevels returns the distinct codes present in the subset, ascending;
// the first is the reference level.
func observedLevels(recs []model.AnalysisRecord, code func(model.AnalysisRecord) int) []int {
	seen := make(map[int]bool)
	for _, rec := range recs {
		seen[code(rec)] = true
	}
	levels := make([]int, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}
