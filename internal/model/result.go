package model

// Significance tiers, tightest threshold first. A p-value is assigned the
// first tier whose threshold it satisfies.
var sigTiers = []struct {
	threshold float64
	stars     string
}{
	{0.0001, "****"},
	{0.001, "***"},
	{0.01, "**"},
	{0.05, "*"},
}

// SignificanceTier returns the star string for a two-sided p-value, or ""
// when p >= 0.05.
func SignificanceTier(p float64) string {
	for _, tier := range sigTiers {
		if p < tier.threshold {
			return tier.stars
		}
	}
	return ""
}

// ResultRow is one row of the long result table: one (stratum, model, term)
// estimate with its derived quantities and display strings.
type ResultRow struct {
	StratumCode int     `json:"stratum_code"`
	StratumName string  `json:"stratum_name"`
	Model       string  `json:"model_label"`
	Term        string  `json:"covariate_name"`
	Coef        float64 `json:"coefficient"`
	OR          float64 `json:"odds_ratio"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
	PValue      float64 `json:"p_value"`
	Sig         string  `json:"significance_tier"`
	ORDisplay   string  `json:"or_display_string"`
	CIDisplay   string  `json:"ci_display_string"`
	N           int     `json:"n"`
}

// WideRow is one row of the stratum-wide pivot used by the mapping export:
// the treatment odds ratio, p-value, and significance tier per model.
// Missing models (failed fits) leave nil entries.
type WideRow struct {
	StratumCode int                 `json:"stratum_code"`
	StratumName string              `json:"stratum_name"`
	OR          map[string]*float64 `json:"or"`
	PValue      map[string]*float64 `json:"p_value"`
	Sig         map[string]*string  `json:"sig"`
}
