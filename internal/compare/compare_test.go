package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxtab/internal/model"
)

func unit(id int64, weight float64, values map[string]float64) model.Record {
	return model.Record{ID: id, Weight: weight, Values: values}
}

func TestJoin(t *testing.T) {
	baseline := []model.Record{
		unit(2, 10, map[string]float64{"combined": 100, "e00200": 5000}),
		unit(1, 20, map[string]float64{"combined": 50, "e00200": 1000}),
	}
	reform := []model.Record{
		unit(1, 20, map[string]float64{"combined": 45, "e00200": 1000}),
		unit(2, 10, map[string]float64{"combined": 130, "e00200": 5000}),
	}

	joined, err := Join(baseline, reform, []string{"combined"})
	require.NoError(t, err)
	require.Len(t, joined, 2)

	first := joined[0]
	assert.Equal(t, int64(2), first.ID)
	assert.Equal(t, 10.0, first.Weight)
	assert.Equal(t, 5000.0, first.Values["e00200"])
	assert.Equal(t, 100.0, first.Values[Base("combined")])
	assert.Equal(t, 130.0, first.Values[Reform("combined")])
	assert.Equal(t, 30.0, first.Values[Diff("combined")])

	assert.Equal(t, -5.0, joined[1].Values["combined_diff"])

	// Inputs are left untouched.
	_, mutated := baseline[0].Values["combined_diff"]
	assert.False(t, mutated)
}

func TestJoin_Errors(t *testing.T) {
	v := map[string]float64{"combined": 1}
	tests := []struct {
		wantErr  error
		name     string
		baseline []model.Record
		reform   []model.Record
	}{
		{
			name:     "missing from reform",
			baseline: []model.Record{unit(1, 1, v), unit(2, 1, v)},
			reform:   []model.Record{unit(1, 1, v)},
			wantErr:  ErrUnmatchedRecord,
		},
		{
			name:     "missing from baseline",
			baseline: []model.Record{unit(1, 1, v)},
			reform:   []model.Record{unit(1, 1, v), unit(3, 1, v)},
			wantErr:  ErrUnmatchedRecord,
		},
		{
			name:     "duplicate in baseline",
			baseline: []model.Record{unit(1, 1, v), unit(1, 1, v)},
			reform:   []model.Record{unit(1, 1, v)},
			wantErr:  ErrDuplicateRecord,
		},
		{
			name:     "duplicate in reform",
			baseline: []model.Record{unit(1, 1, v)},
			reform:   []model.Record{unit(1, 1, v), unit(1, 1, v)},
			wantErr:  ErrDuplicateRecord,
		},
		{
			name:     "weights differ",
			baseline: []model.Record{unit(1, 1, v)},
			reform:   []model.Record{unit(1, 2, v)},
			wantErr:  ErrUnmatchedRecord,
		},
		{
			name:     "variable missing",
			baseline: []model.Record{unit(1, 1, v)},
			reform:   []model.Record{unit(1, 1, map[string]float64{})},
			wantErr:  ErrMissingVariable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Join(tt.baseline, tt.reform, []string{"combined"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJoin_Empty(t *testing.T) {
	joined, err := Join(nil, nil, []string{"combined"})
	require.NoError(t, err)
	assert.Empty(t, joined)
}
