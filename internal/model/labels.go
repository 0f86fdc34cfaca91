package model

// Human-readable labels for the categorical survey codes. The lowest code of
// each covariate is the regression reference level.

// AgeLabels maps _AGE_G codes to age bands.
var AgeLabels = map[int]string{
	1: "18-24",
	2: "25-34",
	3: "35-44",
	4: "45-54",
	5: "55-64",
	6: "65 or older",
}

// SexLabels maps SEXVAR codes.
var SexLabels = map[int]string{
	1: "Male",
	2: "Female",
}

// RaceLabels maps _RACEGR3 codes.
var RaceLabels = map[int]string{
	1: "Non-Hispanic White",
	2: "Non-Hispanic Black",
	3: "Non-Hispanic Other",
	4: "Non-Hispanic Multiracial",
	5: "Hispanic",
}

// EduLabels maps _EDUCAG codes.
var EduLabels = map[int]string{
	1: "Did not graduate high school",
	2: "Graduated high school",
	3: "Attended college or technical school",
	4: "Graduated from college or technical school",
}

// UrbanRuralLabels maps the URRU treatment indicator.
var UrbanRuralLabels = map[int]string{
	0: "Urban",
	1: "Rural",
}

// YearLabels maps centered year codes to the survey year.
var YearLabels = map[int]string{
	-2: "2018",
	-1: "2019",
	0:  "2020",
	1:  "2021",
	2:  "2022",
	3:  "2023",
	4:  "2024",
}
