package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "currentsmoker,URRU,year_centered,_STATE,_AGE_G,SEXVAR,_RACEGR3,_EDUCAG,_LLCPWT,_STSTR,_PSU\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brfss.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestLoad_MissingColumns(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "currentsmoker,URRU,year_centered\n1,0,-2\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "_LLCPWT")
}

func TestLoad_ParsesRowsAndMissingness(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, testHeader+
		"1,0,-2,26,3,1,1,2,450.2,26011,2601101\n"+
		",1,0,26,3,2,1,2,120.5,26011,2601102\n"+
		"0,1,bad,26,3,2,1,2,120.5,26011,2601103\n")

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1.0, rows[0].Smoker)
	assert.Equal(t, -2.0, rows[0].YearCentered)
	assert.Equal(t, "26011", rows[0].DesignStratum)

	assert.True(t, math.IsNaN(rows[1].Smoker))
	assert.True(t, math.IsNaN(rows[2].YearCentered))
}

func TestClean_ExcludesIncompleteRows(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, testHeader+
		"1,0,-2,26,3,1,1,2,450.2,26011,2601101\n"+ // complete
		",1,0,26,3,2,1,2,120.5,26011,2601102\n"+ // missing smoker
		"0,1,0,26,3,2,9,2,120.5,26011,2601103\n"+ // race code 9 = missing
		"0,1,0,26,3,2,1,9,120.5,26011,2601104\n"+ // edu code 9 = missing
		"0,1,0,26,3,2,1,2,0,26011,2601105\n"+ // non-positive weight
		"0,1,0,26,3,2,1,2,120.5,,2601106\n"+ // missing design stratum
		"0,2,0,26,3,2,1,2,120.5,26011,2601107\n"+ // URRU out of range
		"0,1,9,26,3,2,1,2,120.5,26011,2601108\n"+ // year outside the survey window
		"0,1,4,56,6,2,5,4,88.1,56003,5600301\n") // complete

	rows, err := Load(path)
	require.NoError(t, err)

	recs := Clean(rows)
	require.Len(t, recs, 2)

	assert.Equal(t, 26, recs[0].StateFIPS)
	assert.Equal(t, 2018, recs[0].SurveyYear())
	assert.Equal(t, 56, recs[1].StateFIPS)
	assert.Equal(t, 2024, recs[1].SurveyYear())

	// Every kept record is fully populated.
	for _, rec := range recs {
		assert.NotEmpty(t, rec.DesignStratum)
		assert.NotEmpty(t, rec.PSU)
		assert.Greater(t, rec.Weight, 0.0)
	}
}
