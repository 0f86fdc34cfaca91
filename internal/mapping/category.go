// Package mapping prepares choropleth data: it joins the wide result table to
// state boundary geometry and emits GeoJSON with a map category and fill
// color per state and model.
package mapping

// Category is one legend bucket: a label and its fill color.
type Category struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend buckets, strongest rural disparity first.
var (
	CategoryORHigh = Category{"OR ≥ 1.50", "#034e7b"}
	CategoryORMid  = Category{"1.25 < OR < 1.50", "#3690c0"}
	CategoryORLow  = Category{"OR ≤ 1.25", "#a6bddb"}
	CategoryBelow1 = Category{"OR < 1.0", "#fee090"}
	CategoryNotSig = Category{"Non-significant", "#d9d9d9"}
	CategorySmallN = Category{"Rural sample size: n < 50", "#969696"}
)

// Legend returns the buckets in display order.
func Legend() []Category {
	return []Category{
		CategoryORHigh, CategoryORMid, CategoryORLow,
		CategoryBelow1, CategoryNotSig, CategorySmallN,
	}
}

// Categorize assigns a state's estimate to a legend bucket. A state absent
// from the results was skipped for rural sample size; a present state with a
// missing or non-significant estimate is grey; significant estimates bucket
// by odds ratio.
func Categorize(or, p *float64, present bool) Category {
	if !present {
		return CategorySmallN
	}
	if or == nil || p == nil || *p >= 0.05 {
		return CategoryNotSig
	}
	switch {
	case *or < 1.0:
		return CategoryBelow1
	case *or <= 1.25:
		return CategoryORLow
	case *or < 1.5:
		return CategoryORMid
	default:
		return CategoryORHigh
	}
}
