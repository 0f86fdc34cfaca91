// Package strata enumerates the geographic populations the pipeline
// analyzes: the nationwide aggregate plus every state-level FIPS code.
package strata

import (
	"github.com/rotisserie/eris"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

// NationwideCode is the sentinel stratum code for the pooled national fit.
const NationwideCode = 0

// Spec is one geography to analyze. Match filters the cleaned record set
// down to the stratum's population.
type Spec struct {
	Code int
	Name string
}

// Match reports whether a record belongs to this stratum.
func (s Spec) Match(rec model.AnalysisRecord) bool {
	if s.Code == NationwideCode {
		return true
	}
	return rec.StateFIPS == s.Code
}

// Nationwide reports whether this is the pooled national stratum.
func (s Spec) Nationwide() bool {
	return s.Code == NationwideCode
}

// stateNames maps state FIPS codes to display names. Codes 3, 7, 14, 43 and
// 52 are gaps in the FIPS scheme and are deliberately absent. The territory
// codes (66, 72, 78) appear in BRFSS data and in the prevalence tables but
// are not iterated as regression strata.
var stateNames = map[int]string{
	1: "Alabama", 2: "Alaska", 4: "Arizona", 5: "Arkansas", 6: "California",
	8: "Colorado", 9: "Connecticut", 10: "Delaware",
	11: "District of Columbia", 12: "Florida", 13: "Georgia", 15: "Hawaii",
	16: "Idaho", 17: "Illinois", 18: "Indiana", 19: "Iowa", 20: "Kansas",
	21: "Kentucky", 22: "Louisiana", 23: "Maine", 24: "Maryland",
	25: "Massachusetts", 26: "Michigan", 27: "Minnesota", 28: "Mississippi",
	29: "Missouri", 30: "Montana", 31: "Nebraska", 32: "Nevada",
	33: "New Hampshire", 34: "New Jersey", 35: "New Mexico", 36: "New York",
	37: "North Carolina", 38: "North Dakota", 39: "Ohio", 40: "Oklahoma",
	41: "Oregon", 42: "Pennsylvania", 44: "Rhode Island",
	45: "South Carolina", 46: "South Dakota", 47: "Tennessee", 48: "Texas",
	49: "Utah", 50: "Vermont", 51: "Virginia", 53: "Washington",
	54: "West Virginia", 55: "Wisconsin", 56: "Wyoming",
	66: "Guam", 72: "Puerto Rico", 78: "Virgin Islands",
}

// maxStateFIPS is the highest state-level code iterated as a stratum.
const maxStateFIPS = 56

// All returns the analysis strata in their fixed order: nationwide first,
// then states by ascending FIPS code, skipping the unused codes.
func All() []Spec {
	specs := []Spec{{Code: NationwideCode, Name: "Nationwide"}}
	for code := 1; code <= maxStateFIPS; code++ {
		name, ok := stateNames[code]
		if !ok {
			continue
		}
		specs = append(specs, Spec{Code: code, Name: name})
	}
	return specs
}

// ByCode resolves a stratum code to its spec. Unknown or unused codes are an
// error, never a silent fallback.
func ByCode(code int) (Spec, error) {
	if code == NationwideCode {
		return Spec{Code: NationwideCode, Name: "Nationwide"}, nil
	}
	name, ok := stateNames[code]
	if !ok || code > maxStateFIPS {
		return Spec{}, eris.Errorf("strata: no stratum with code %d", code)
	}
	return Spec{Code: code, Name: name}, nil
}

// DisplayName returns the display name for any FIPS code present in the
// lookup, including territories. Used for labeling descriptive tables.
func DisplayName(code int) (string, bool) {
	if code == NationwideCode {
		return "Nationwide", true
	}
	name, ok := stateNames[code]
	return name, ok
}
