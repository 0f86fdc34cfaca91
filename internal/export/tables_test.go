package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralhealth-lab/disparity-cli/internal/descriptives"
)

func TestWriteSummaryCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "summary.csv")
	rows := []descriptives.CategoryRow{
		{Variable: "Urbanicity", Level: "Urban", N: 3, WeightedN: 16, Percent: 80, Prevalence: 25},
		{Variable: "Urbanicity", Level: "Rural", N: 2, WeightedN: 4, Percent: 20, Prevalence: 50},
	}
	require.NoError(t, WriteSummaryCSV(path, rows))

	got := readCSV(t, path)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"variable", "level", "n", "weighted_n", "percent", "smoking_prevalence"}, got[0])
	assert.Equal(t, []string{"Urbanicity", "Rural", "2", "4", "20", "50"}, got[2])
}

func TestWritePrevalenceCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prevalence.csv")
	rows := []descriptives.PrevalenceRow{
		{
			StratumCode: 0, StratumName: "Nationwide",
			UrbanN: 3, RuralN: 2,
			UrbanEffectiveN: 2.5, RuralEffectiveN: 2,
			UrbanPrevalence: 25, UrbanCILower: 0, UrbanCIUpper: 77,
			RuralPrevalence: 50, RuralCILower: 0, RuralCIUpper: 100,
			Ratio:       2,
			Year2018:    descriptives.YearSnapshot{Ratio: 0.5},
			Year2024:    descriptives.YearSnapshot{Ratio: 2},
			RatioChange: 1.5,
		},
		// No rural records: ratio, per-year, and change cells stay empty.
		{StratumCode: 72, StratumName: "Puerto Rico", UrbanN: 1, UrbanPrevalence: 10},
	}
	require.NoError(t, WritePrevalenceCSV(path, rows))

	got := readCSV(t, path)
	require.Len(t, got, 3)
	assert.Equal(t, "rural_urban_ratio", got[0][12])
	assert.Equal(t, "ratio_2018", got[0][15])
	assert.Equal(t, "change_in_ratio", got[0][19])

	assert.Equal(t, "2", got[1][12])
	assert.Equal(t, "0.5", got[1][15])
	assert.Equal(t, "2", got[1][18])
	assert.Equal(t, "1.5", got[1][19])

	assert.Equal(t, "Puerto Rico", got[2][1])
	assert.Equal(t, "", got[2][12])
	assert.Equal(t, "", got[2][19])
}
