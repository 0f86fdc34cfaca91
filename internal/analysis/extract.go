package analysis

import (
	"fmt"
	"math"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
	"github.com/ruralhealth-lab/disparity-cli/internal/solver"
	"github.com/ruralhealth-lab/disparity-cli/internal/strata"
)

// ciZ is the two-sided 95% normal critical value used for all confidence
// intervals; both estimator paths use the same explicit normal approximation
// on the log-odds scale.
const ciZ = 1.96

// ExtractRows pulls the covariates of interest out of one fit: the treatment
// main effect always, plus the interaction term when the model has one.
// Terms are matched order-independently, so solver naming conventions for
// interactions cannot drop an estimate. Missing terms are returned by name,
// never silently zeroed.
func ExtractRows(stratum strata.Spec, spec ModelSpec, res *solver.Result) (rows []model.ResultRow, missing []string) {
	wanted := []string{TreatmentTerm}
	if inter, ok := spec.InteractionTerm(); ok {
		wanted = append(wanted, inter)
	}

	for _, name := range wanted {
		key := model.NewTermKey(name)
		term, ok := lookupTerm(res, key)
		if !ok {
			missing = append(missing, name)
			continue
		}
		rows = append(rows, buildRow(stratum, spec.Name, name, term, res.N))
	}
	return rows, missing
}

func lookupTerm(res *solver.Result, key model.TermKey) (solver.Term, bool) {
	for _, term := range res.Terms {
		if key.Matches(term.Name) {
			return term, true
		}
	}
	return solver.Term{}, false
}

// buildRow computes the derived estimate fields: odds ratio, symmetric 95%
// CI on the odds-ratio scale, significance tier, and the 2-decimal display
// strings.
func buildRow(stratum strata.Spec, modelName, termName string, term solver.Term, n int) model.ResultRow {
	or := math.Exp(term.Coef)
	lower := math.Exp(term.Coef - ciZ*term.SE)
	upper := math.Exp(term.Coef + ciZ*term.SE)
	sig := model.SignificanceTier(term.P)

	orDisplay := fmt.Sprintf("%.2f", or)
	if sig != "" {
		orDisplay = fmt.Sprintf("%.2f (%s)", or, sig)
	}

	return model.ResultRow{
		StratumCode: stratum.Code,
		StratumName: stratum.Name,
		Model:       modelName,
		Term:        termName,
		Coef:        term.Coef,
		OR:          or,
		CILower:     lower,
		CIUpper:     upper,
		PValue:      term.P,
		Sig:         sig,
		ORDisplay:   orDisplay,
		CIDisplay:   fmt.Sprintf("(%.2f–%.2f)", lower, upper),
		N:           n,
	}
}
