package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
)

func TestAll_OrderAndGaps(t *testing.T) {
	t.Parallel()

	specs := All()

	// Nationwide plus 51 state-level codes (50 states + DC).
	require.Len(t, specs, 52)
	assert.Equal(t, NationwideCode, specs[0].Code)
	assert.Equal(t, "Nationwide", specs[0].Name)

	// Ascending code order after nationwide.
	for i := 2; i < len(specs); i++ {
		assert.Greater(t, specs[i].Code, specs[i-1].Code)
	}

	// The FIPS gaps never appear.
	seen := make(map[int]bool, len(specs))
	for _, s := range specs {
		seen[s.Code] = true
	}
	for _, gap := range []int{3, 7, 14, 43, 52} {
		assert.False(t, seen[gap], "gap code %d must be skipped", gap)
	}

	// Territories are not regression strata.
	assert.False(t, seen[66])
	assert.False(t, seen[72])
	assert.False(t, seen[78])
}

func TestByCode(t *testing.T) {
	t.Parallel()

	s, err := ByCode(26)
	require.NoError(t, err)
	assert.Equal(t, "Michigan", s.Name)

	_, err = ByCode(3)
	assert.Error(t, err)
	_, err = ByCode(99)
	assert.Error(t, err)
	_, err = ByCode(66) // territory: valid display name, not a stratum
	assert.Error(t, err)
}

func TestSpec_Match(t *testing.T) {
	t.Parallel()

	mi := model.AnalysisRecord{StateFIPS: 26}
	oh := model.AnalysisRecord{StateFIPS: 39}

	nationwide, err := ByCode(NationwideCode)
	require.NoError(t, err)
	assert.True(t, nationwide.Match(mi))
	assert.True(t, nationwide.Match(oh))
	assert.True(t, nationwide.Nationwide())

	michigan, err := ByCode(26)
	require.NoError(t, err)
	assert.True(t, michigan.Match(mi))
	assert.False(t, michigan.Match(oh))
	assert.False(t, michigan.Nationwide())
}

// State filters partition the population: every record with a valid state
// code matches exactly one non-nationwide stratum.
func TestSpec_FiltersPartition(t *testing.T) {
	t.Parallel()

	recs := []model.AnalysisRecord{
		{StateFIPS: 1}, {StateFIPS: 26}, {StateFIPS: 26}, {StateFIPS: 56},
	}
	specs := All()

	for _, rec := range recs {
		matches := 0
		for _, s := range specs[1:] {
			if s.Match(rec) {
				matches++
			}
		}
		assert.Equal(t, 1, matches)
	}
}

func TestDisplayName_Territories(t *testing.T) {
	t.Parallel()

	name, ok := DisplayName(72)
	assert.True(t, ok)
	assert.Equal(t, "Puerto Rico", name)

	_, ok = DisplayName(43)
	assert.False(t, ok)
}
