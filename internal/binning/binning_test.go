package binning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name       string
		key        string
		boundaries []float64
		labels     []string
		wantErr    bool
	}{
		{name: "two finite edges", key: "x", boundaries: []float64{0, 1}},
		{name: "open both ends", key: "x", boundaries: []float64{-inf, 50, inf}},
		{name: "sentinel ends", key: "x", boundaries: []float64{-9e99, 1, 5000, 9e99}},
		{name: "matching labels", key: "x", boundaries: []float64{0, 1, 2}, labels: []string{"a", "b"}},
		{name: "empty key", key: " ", boundaries: []float64{0, 1}, wantErr: true},
		{name: "single boundary", key: "x", boundaries: []float64{0}, wantErr: true},
		{name: "no boundaries", key: "x", wantErr: true},
		{name: "not increasing", key: "x", boundaries: []float64{0, 2, 1}, wantErr: true},
		{name: "repeated edge", key: "x", boundaries: []float64{0, 1, 1, 2}, wantErr: true},
		{name: "NaN edge", key: "x", boundaries: []float64{0, math.NaN(), 2}, wantErr: true},
		{name: "interior infinity", key: "x", boundaries: []float64{-inf, inf, inf}, wantErr: true},
		{name: "interior sentinel", key: "x", boundaries: []float64{0, 9e99, 1e100}, wantErr: true},
		{name: "inverted open end", key: "x", boundaries: []float64{inf, inf}, wantErr: true},
		{name: "label count mismatch", key: "x", boundaries: []float64{0, 1, 2}, labels: []string{"a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New("test", tt.key, tt.boundaries, tt.labels)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidBoundaries)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.boundaries)-1, s.Len())
		})
	}
}

func TestNew_OpenEndsAreTagged(t *testing.T) {
	s, err := New("agi", "c00100", []float64{-9e99, 1, 5000, 9e99}, nil)
	require.NoError(t, err)

	first, last := s.Bins[0], s.Bins[len(s.Bins)-1]
	assert.True(t, first.LoUnbounded)
	assert.False(t, first.HiUnbounded)
	assert.True(t, last.HiUnbounded)
	assert.Equal(t, []string{"[-inf, 1)", "[1, 5000)", "[5000, inf)"}, s.Labels())

	// Keys beyond the sentinel magnitude still land in the open bins.
	idx, err := s.Assign(-1e300)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = s.Assign(math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestAssign(t *testing.T) {
	s, err := New("test", "k", []float64{math.Inf(-1), 50, 100, math.Inf(1)}, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  float64
		want int
	}{
		{name: "below first cut", key: 10, want: 0},
		{name: "interior boundary goes up", key: 50, want: 1},
		{name: "just below boundary", key: math.Nextafter(50, 0), want: 0},
		{name: "middle", key: 75, want: 1},
		{name: "upper boundary goes up", key: 100, want: 2},
		{name: "large", key: 1e12, want: 2},
		{name: "negative", key: -1e12, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Assign(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssign_OutOfRange(t *testing.T) {
	s, err := New("closed", "k", []float64{0, 10, 20}, nil)
	require.NoError(t, err)

	for _, key := range []float64{-0.5, 20, 25, math.NaN()} {
		_, err := s.Assign(key)
		assert.ErrorIs(t, err, ErrOutOfRange, "key %v", key)
		assert.False(t, s.Covers(key))
	}

	idx, err := s.Assign(0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.True(t, s.Covers(19.999))
}

func TestBoundariesRoundTrip(t *testing.T) {
	s, err := OpenEnded("wage", "e00200", []float64{50e3, 100e3}, nil)
	require.NoError(t, err)

	edges := s.Boundaries()
	require.Len(t, edges, 4)
	assert.True(t, math.IsInf(edges[0], -1))
	assert.Equal(t, 50e3, edges[1])
	assert.Equal(t, 100e3, edges[2])
	assert.True(t, math.IsInf(edges[3], 1))

	again, err := New("wage", "e00200", edges, s.Labels())
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			s, err := Preset(name)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name)
			assert.True(t, s.Bins[0].LoUnbounded)
			assert.True(t, s.Bins[s.Len()-1].HiUnbounded)
		})
	}

	agi, err := Preset("agi")
	require.NoError(t, err)
	assert.Equal(t, "[1, 5000)", agi.Bins[1].Label)
	assert.Equal(t, AGIVariable, agi.Key)

	_, err = Preset("nope")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	c, err := NewCatalog(map[string]Definition{
		"deciles": {Key: "c00100", Boundaries: []float64{-9e99, 0, 9e99}, Labels: []string{"neg", "pos"}},
		"wage":    {Key: "e00200", Boundaries: []float64{math.Inf(-1), 1, math.Inf(1)}},
	})
	require.NoError(t, err)

	deciles, err := c.Get("deciles")
	require.NoError(t, err)
	assert.Equal(t, []string{"neg", "pos"}, deciles.Labels())

	// User definitions shadow presets of the same name.
	wage, err := c.Get("wage")
	require.NoError(t, err)
	assert.Equal(t, 2, wage.Len())

	agi, err := c.Get("agi")
	require.NoError(t, err)
	assert.Equal(t, "agi", agi.Name)

	assert.Equal(t, []string{"agi", "deciles", "total", "wage"}, c.Names())

	_, err = NewCatalog(map[string]Definition{"bad": {Key: "x", Boundaries: []float64{2, 1}}})
	assert.ErrorIs(t, err, ErrInvalidBoundaries)
}
