// Package binning partitions a numeric bin key into ordered, half-open intervals.
//
// A Scheme is built once from n+1 strictly increasing boundaries and never
// changes afterwards. The first and last edges may be unbounded; they are
// tagged explicitly instead of relying on very large magnitudes so that
// extreme key values are never silently misclassified.
package binning

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// SentinelMagnitude is the smallest magnitude treated as an open end when it
// appears as the first or last boundary. Simulation notebooks conventionally
// write open ends as -9e99 and 9e99.
const SentinelMagnitude = 9e99

var (
	// ErrInvalidBoundaries reports boundaries that cannot form a partition.
	ErrInvalidBoundaries = errors.New("invalid bin boundaries")
	// ErrOutOfRange reports a key that no bin contains.
	ErrOutOfRange = errors.New("bin key outside scheme range")
)

// Bin is the half-open interval [Lo, Hi).
type Bin struct {
	Label       string
	Lo          float64
	Hi          float64
	LoUnbounded bool
	HiUnbounded bool
}

// Contains reports whether x falls inside the bin.
func (b Bin) Contains(x float64) bool {
	if math.IsNaN(x) {
		return false
	}
	if !b.LoUnbounded && x < b.Lo {
		return false
	}
	if !b.HiUnbounded && x >= b.Hi {
		return false
	}
	return true
}

// String renders the interval in [lo, hi) notation.
func (b Bin) String() string {
	lo := "-inf"
	if !b.LoUnbounded {
		lo = formatEdge(b.Lo)
	}
	hi := "inf"
	if !b.HiUnbounded {
		hi = formatEdge(b.Hi)
	}
	return "[" + lo + ", " + hi + ")"
}

// Scheme is an ordered, exhaustive set of bins over one variable.
type Scheme struct {
	Name string
	Key  string
	Bins []Bin
}

// New builds a scheme from boundaries. Labels may be nil, in which case
// each bin is labeled with its interval.
func New(name, key string, boundaries []float64, labels []string) (*Scheme, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: scheme %q has no bin key", ErrInvalidBoundaries, name)
	}
	if len(boundaries) < 2 {
		return nil, fmt.Errorf("%w: scheme %q needs at least 2 boundaries, got %d",
			ErrInvalidBoundaries, name, len(boundaries))
	}
	n := len(boundaries) - 1
	if labels != nil && len(labels) != n {
		return nil, fmt.Errorf("%w: scheme %q has %d bins but %d labels",
			ErrInvalidBoundaries, name, n, len(labels))
	}

	for i, v := range boundaries {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: scheme %q boundary %d is NaN", ErrInvalidBoundaries, name, i)
		}
		if i > 0 && !(v > boundaries[i-1]) {
			return nil, fmt.Errorf("%w: scheme %q boundaries not strictly increasing at index %d (%v <= %v)",
				ErrInvalidBoundaries, name, i, v, boundaries[i-1])
		}
		interior := i > 0 && i < n
		if interior && isOpenEnd(v) {
			return nil, fmt.Errorf("%w: scheme %q interior boundary %d is unbounded (%v)",
				ErrInvalidBoundaries, name, i, v)
		}
	}
	if math.IsInf(boundaries[0], 1) || math.IsInf(boundaries[n], -1) {
		return nil, fmt.Errorf("%w: scheme %q has an inverted open end", ErrInvalidBoundaries, name)
	}

	bins := make([]Bin, n)
	for i := range bins {
		b := Bin{Lo: boundaries[i], Hi: boundaries[i+1]}
		if i == 0 && (math.IsInf(b.Lo, -1) || b.Lo <= -SentinelMagnitude) {
			b.Lo, b.LoUnbounded = math.Inf(-1), true
		}
		if i == n-1 && (math.IsInf(b.Hi, 1) || b.Hi >= SentinelMagnitude) {
			b.Hi, b.HiUnbounded = math.Inf(1), true
		}
		if labels != nil && labels[i] != "" {
			b.Label = labels[i]
		} else {
			b.Label = b.String()
		}
		bins[i] = b
	}

	return &Scheme{Name: name, Key: key, Bins: bins}, nil
}

// OpenEnded builds a scheme covering the whole real line with the given
// interior cut points.
func OpenEnded(name, key string, cuts []float64, labels []string) (*Scheme, error) {
	boundaries := make([]float64, 0, len(cuts)+2)
	boundaries = append(boundaries, math.Inf(-1))
	boundaries = append(boundaries, cuts...)
	boundaries = append(boundaries, math.Inf(1))
	return New(name, key, boundaries, labels)
}

// Len returns the number of bins.
func (s *Scheme) Len() int {
	return len(s.Bins)
}

// Labels returns the bin labels in declared order.
func (s *Scheme) Labels() []string {
	labels := make([]string, len(s.Bins))
	for i, b := range s.Bins {
		labels[i] = b.Label
	}
	return labels
}

// Boundaries returns the n+1 edges of the scheme, with open ends as ±Inf.
func (s *Scheme) Boundaries() []float64 {
	if len(s.Bins) == 0 {
		return nil
	}
	edges := make([]float64, 0, len(s.Bins)+1)
	for _, b := range s.Bins {
		edges = append(edges, b.Lo)
	}
	return append(edges, s.Bins[len(s.Bins)-1].Hi)
}

// Assign returns the index of the bin containing x.
func (s *Scheme) Assign(x float64) (int, error) {
	if math.IsNaN(x) {
		return -1, fmt.Errorf("%w: %s is NaN", ErrOutOfRange, s.Key)
	}
	i := sort.Search(len(s.Bins), func(i int) bool {
		b := s.Bins[i]
		return b.HiUnbounded || x < b.Hi
	})
	if i == len(s.Bins) || !s.Bins[i].Contains(x) {
		return -1, fmt.Errorf("%w: %s=%v not in scheme %q %s",
			ErrOutOfRange, s.Key, x, s.Name, s.span())
	}
	return i, nil
}

// Covers reports whether some bin contains x.
func (s *Scheme) Covers(x float64) bool {
	_, err := s.Assign(x)
	return err == nil
}

func (s *Scheme) span() string {
	if len(s.Bins) == 0 {
		return "[]"
	}
	first, last := s.Bins[0], s.Bins[len(s.Bins)-1]
	return Bin{
		Lo:          first.Lo,
		LoUnbounded: first.LoUnbounded,
		Hi:          last.Hi,
		HiUnbounded: last.HiUnbounded,
	}.String()
}

func isOpenEnd(v float64) bool {
	return math.IsInf(v, 0) || math.Abs(v) >= SentinelMagnitude
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
