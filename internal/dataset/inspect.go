package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ColumnReport describes one required column: whether the file carries it and
// how many of its values are missing or unparseable.
type ColumnReport struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Missing int    `json:"missing"`
}

// Inspect scans the input file and reports per-column health without building
// records. Unlike Load, a missing column is not fatal here: the whole point is
// to show what the file lacks.
func Inspect(path string) ([]ColumnReport, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, eris.Wrapf(err, "dataset: read header of %s", path)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	reports := make([]ColumnReport, len(RequiredColumns))
	for i, col := range RequiredColumns {
		_, ok := idx[col]
		reports[i] = ColumnReport{Name: col, Present: ok}
	}

	stringCols := map[string]bool{ColDesignStratum: true, ColPSU: true}

	rows := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, eris.Wrapf(err, "dataset: read %s", path)
		}
		rows++

		for i, col := range RequiredColumns {
			if !reports[i].Present {
				continue
			}
			raw := rec[idx[col]]
			if stringCols[col] {
				if strings.TrimSpace(raw) == "" {
					reports[i].Missing++
				}
				continue
			}
			if math.IsNaN(parseField(raw)) {
				reports[i].Missing++
			}
		}
	}

	return reports, rows, nil
}
