// Package dataset reads the combined BRFSS CSV and cleans it into analysis
// records.
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Column names in the combined survey CSV.
const (
	ColSmoker        = "currentsmoker"
	ColRural         = "URRU"
	ColYearCentered  = "year_centered"
	ColState         = "_STATE"
	ColAgeGroup      = "_AGE_G"
	ColSex           = "SEXVAR"
	ColRaceGroup     = "_RACEGR3"
	ColEduGroup      = "_EDUCAG"
	ColWeight        = "_LLCPWT"
	ColDesignStratum = "_STSTR"
	ColPSU           = "_PSU"
)

// RequiredColumns lists every column the pipeline reads, in file order
// significance only for error messages.
var RequiredColumns = []string{
	ColSmoker, ColRural, ColYearCentered, ColState, ColAgeGroup, ColSex,
	ColRaceGroup, ColEduGroup, ColWeight, ColDesignStratum, ColPSU,
}

// Row is one raw respondent row. Numeric fields hold NaN when the source
// value is missing or unparseable; string fields hold "".
type Row struct {
	Smoker        float64
	Rural         float64
	YearCentered  float64
	State         float64
	AgeGroup      float64
	Sex           float64
	RaceGroup     float64
	EduGroup      float64
	Weight        float64
	DesignStratum string
	PSU           string
}

// Load reads the combined survey CSV. It fails on an unreadable file or a
// missing required column; row-level problems surface later as NaN fields.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read header of %s", path)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("dataset: %s is missing required columns: %s",
			path, strings.Join(missing, ", "))
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", path)
		}

		rows = append(rows, Row{
			Smoker:        parseField(rec[idx[ColSmoker]]),
			Rural:         parseField(rec[idx[ColRural]]),
			YearCentered:  parseField(rec[idx[ColYearCentered]]),
			State:         parseField(rec[idx[ColState]]),
			AgeGroup:      parseField(rec[idx[ColAgeGroup]]),
			Sex:           parseField(rec[idx[ColSex]]),
			RaceGroup:     parseField(rec[idx[ColRaceGroup]]),
			EduGroup:      parseField(rec[idx[ColEduGroup]]),
			Weight:        parseField(rec[idx[ColWeight]]),
			DesignStratum: strings.TrimSpace(rec[idx[ColDesignStratum]]),
			PSU:           strings.TrimSpace(rec[idx[ColPSU]]),
		})
	}

	zap.L().Info("dataset: loaded", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}

// parseField parses a CSV cell as float64, returning NaN for blank or
// non-numeric values so missingness survives until Clean.
func parseField(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
