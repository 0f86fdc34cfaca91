package model

// ReferenceYear is the centering origin for the year variable: a record with
// YearCentered == -2 was surveyed in 2018.
const ReferenceYear = 2020

// AnalysisRecord is one respondent-year observation carrying every variable
// the regression models need. Records with a missing field never reach this
// type; dataset.Clean excludes them upstream.
type AnalysisRecord struct {
	Smoker       int // 1 = current smoker, 0 = non-smoker
	Rural        int // 1 = rural, 0 = urban (reference level)
	YearCentered int // survey year minus ReferenceYear

	StateFIPS int // two-digit state FIPS code

	AgeGroup  int // _AGE_G codes 1-6
	Sex       int // SEXVAR codes 1-2
	RaceGroup int // _RACEGR3 codes 1-5
	EduGroup  int // _EDUCAG codes 1-4

	// Survey design fields.
	Weight        float64 // _LLCPWT sampling weight, strictly positive
	DesignStratum string  // _STSTR variance stratum id
	PSU           string  // _PSU primary sampling unit id
}

// SurveyYear returns the absolute survey year, for display only;
// YearCentered remains the modeling variable.
func (r AnalysisRecord) SurveyYear() int {
	return r.YearCentered + ReferenceYear
}
