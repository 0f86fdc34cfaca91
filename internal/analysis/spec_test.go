package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModelSpecs(t *testing.T) {
	t.Parallel()

	specs, err := LoadModelSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 4)

	assert.Equal(t, "model1", specs[0].Name)
	assert.Equal(t, []string{"rural", "year_c"}, specs[0].Terms)
	assert.Equal(t, "model3b", specs[3].Name)

	// Each model strictly extends its predecessor.
	for i := 1; i < len(specs); i++ {
		prev := make(map[string]bool)
		for _, term := range specs[i-1].Terms {
			prev[term] = true
		}
		for term := range prev {
			assert.Contains(t, specs[i].Terms, term, "model %s must keep %s", specs[i].Name, term)
		}
		assert.Greater(t, len(specs[i].Terms), len(specs[i-1].Terms))
	}

	// model3b adds exactly the interaction to model3.
	assert.Equal(t, len(specs[2].Terms)+1, len(specs[3].Terms))
	inter, ok := specs[3].InteractionTerm()
	require.True(t, ok)
	assert.Equal(t, "rural:year_c", inter)
	_, ok = specs[2].InteractionTerm()
	assert.False(t, ok)
}

func TestValidateNesting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		specs   []ModelSpec
		wantErr string
	}{
		{
			name: "dropped term",
			specs: []ModelSpec{
				{Name: "a", Terms: []string{"rural", "year_c"}},
				{Name: "b", Terms: []string{"rural", "age", "sex"}},
			},
			wantErr: "drops term",
		},
		{
			name: "no extension",
			specs: []ModelSpec{
				{Name: "a", Terms: []string{"rural", "year_c"}},
				{Name: "b", Terms: []string{"rural", "year_c"}},
			},
			wantErr: "does not extend",
		},
		{
			name: "interaction without components",
			specs: []ModelSpec{
				{Name: "a", Terms: []string{"rural", "rural:age"}},
			},
			wantErr: "absent term",
		},
		{
			name: "missing treatment",
			specs: []ModelSpec{
				{Name: "a", Terms: []string{"year_c"}},
			},
			wantErr: "treatment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateNesting(tt.specs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
