// Package analysis runs the nested regression sequence across geographic
// strata and shapes the estimates into the long and wide result tables.
package analysis

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

//go:embed models.yaml
var modelsYAML []byte

// TreatmentTerm is the urban/rural indicator present in every model.
const TreatmentTerm = "rural"

// YearTerm is the centered survey year present in every model.
const YearTerm = "year_c"

// ModelSpec is one regression specification: a label and the terms entering
// the linear predictor (the intercept is implicit).
type ModelSpec struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// InteractionTerm returns the spec's product term, if any.
func (s ModelSpec) InteractionTerm() (string, bool) {
	for _, t := range s.Terms {
		if strings.Contains(t, model.InteractionSep) {
			return t, true
		}
	}
	return "", false
}

type specFile struct {
	Models []ModelSpec `yaml:"models"`
}

// LoadModelSpecs parses the embedded model definitions and validates the
// nesting invariant.
func LoadModelSpecs() ([]ModelSpec, error) {
	var f specFile
	if err := yaml.Unmarshal(modelsYAML, &f); err != nil {
		return nil, eris.Wrap(err, "analysis: parse model specs")
	}
	if len(f.Models) == 0 {
		return nil, eris.New("analysis: no models defined")
	}
	if err := validateNesting(f.Models); err != nil {
		return nil, err
	}
	return f.Models, nil
}

// validateNesting enforces that each model's term set strictly contains the
// previous one's, and that interaction terms only combine terms already in
// the model.
func validateNesting(specs []ModelSpec) error {
	var prev map[string]bool
	for _, spec := range specs {
		terms := make(map[string]bool, len(spec.Terms))
		for _, t := range spec.Terms {
			if terms[t] {
				return eris.Errorf("analysis: model %s repeats term %s", spec.Name, t)
			}
			terms[t] = true
		}
		if !terms[TreatmentTerm] {
			return eris.Errorf("analysis: model %s lacks the treatment term", spec.Name)
		}
		for _, t := range spec.Terms {
			parts := strings.Split(t, model.InteractionSep)
			if len(parts) < 2 {
				continue
			}
			for _, part := range parts {
				if !terms[part] {
					return eris.Errorf("analysis: model %s interaction %s references absent term %s", spec.Name, t, part)
				}
			}
		}
		if prev != nil {
			if len(terms) <= len(prev) {
				return eris.Errorf("analysis: model %s does not extend its predecessor", spec.Name)
			}
			for t := range prev {
				if !terms[t] {
					return eris.Errorf("analysis: model %s drops term %s", spec.Name, t)
				}
			}
		}
		prev = terms
	}
	return nil
}
