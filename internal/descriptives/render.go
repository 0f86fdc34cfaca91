package descriptives

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteSummary renders the category table as aligned text with grouped
// thousands, the form the tables take in reports.
func WriteSummary(w io.Writer, rows []CategoryRow) error {
	p := message.NewPrinter(language.AmericanEnglish)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	p.Fprintln(tw, "variable\tlevel\tn\tweighted_n\tpercent\tsmoking_prevalence")
	for _, row := range rows {
		p.Fprintf(tw, "%s\t%s\t%d\t%.0f\t%.1f\t%.1f\n",
			row.Variable, row.Level, row.N, row.WeightedN, row.Percent, row.Prevalence)
	}
	return eris.Wrap(tw.Flush(), "descriptives: flush summary")
}

// WritePrevalence renders the per-geography prevalence table. A zero ratio
// prints as a dash: the geography had no usable urban/rural split.
func WritePrevalence(w io.Writer, rows []PrevalenceRow) error {
	p := message.NewPrinter(language.AmericanEnglish)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	p.Fprintln(tw, "code\tname\turban_n\trural_n\turban_eff_n\trural_eff_n\turban_prev\trural_prev\tratio\tratio_2018\tratio_2024\tchange")
	for _, row := range rows {
		p.Fprintf(tw, "%d\t%s\t%d\t%d\t%.0f\t%.0f\t%.1f (%.1f–%.1f)\t%.1f (%.1f–%.1f)\t",
			row.StratumCode, row.StratumName, row.UrbanN, row.RuralN,
			row.UrbanEffectiveN, row.RuralEffectiveN,
			row.UrbanPrevalence, row.UrbanCILower, row.UrbanCIUpper,
			row.RuralPrevalence, row.RuralCILower, row.RuralCIUpper)
		p.Fprintf(tw, "%s\t%s\t%s\t", fmtRatio(row.Ratio), fmtRatio(row.Year2018.Ratio), fmtRatio(row.Year2024.Ratio))
		if row.Year2018.Ratio > 0 && row.Year2024.Ratio > 0 {
			p.Fprintf(tw, "%+.2f\n", row.RatioChange)
		} else {
			p.Fprintln(tw, "-")
		}
	}
	return eris.Wrap(tw.Flush(), "descriptives: flush prevalence")
}

// fmtRatio renders a rural/urban ratio, with a dash for geographies that had
// no usable split.
func fmtRatio(r float64) string {
	if r == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", r)
}
