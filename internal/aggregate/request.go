package aggregate

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Default scales turn raw weights into millions of units and raw dollar
// amounts into billions.
const (
	DefaultCountScale  = 1e-6
	DefaultAmountScale = 1e-9
)

var (
	// ErrInvalidRequest reports a request that cannot be tabulated.
	ErrInvalidRequest = errors.New("invalid tabulation request")
	// ErrInvalidRecord reports a record that violates the input contract.
	ErrInvalidRecord = errors.New("invalid record")
)

// RatioKind selects how a row's derived ratio is computed.
type RatioKind int

// Ratio kinds.
const (
	RatioNone RatioKind = iota
	// RatioPercent is 100 * amount[Numerator] / amount[Denominator].
	RatioPercent
	// RatioAverage is amount[Numerator] / count.
	RatioAverage
	// RatioPercentChange is 100 * (amount[Numerator] - amount[Denominator]) / amount[Denominator].
	RatioPercentChange
)

func (k RatioKind) String() string {
	switch k {
	case RatioNone:
		return "none"
	case RatioPercent:
		return "percent"
	case RatioAverage:
		return "average"
	case RatioPercentChange:
		return "percent-change"
	default:
		return fmt.Sprintf("RatioKind(%d)", int(k))
	}
}

// Amount is one weighted sum column.
type Amount struct {
	Label    string
	Variable string
}

// Ratio describes the derived column.
type Ratio struct {
	Label       string
	Kind        RatioKind
	Numerator   int
	Denominator int
}

// Request describes one table.
type Request struct {
	Title       string
	LabelHeader string
	CountLabel  string
	// Recipients, when set, restricts counts and amounts to records whose
	// value for this variable is strictly positive.
	Recipients  string
	Amounts     []Amount
	Ratio       Ratio
	// CountScale and AmountScale multiply weighted counts and amounts.
	// Zero means DefaultCountScale / DefaultAmountScale; negative is invalid.
	CountScale  float64
	AmountScale float64
}

func (r *Request) withDefaults() Request {
	out := *r
	if out.CountScale == 0 {
		out.CountScale = DefaultCountScale
	}
	if out.AmountScale == 0 {
		out.AmountScale = DefaultAmountScale
	}
	if out.CountLabel == "" {
		out.CountLabel = "count"
	}
	if out.Ratio.Kind != RatioNone && out.Ratio.Label == "" {
		out.Ratio.Label = defaultRatioLabel(out.Ratio.Kind)
	}
	return out
}

func defaultRatioLabel(k RatioKind) string {
	switch k {
	case RatioPercent:
		return "pct"
	case RatioAverage:
		return "avg"
	default:
		return "pctchg"
	}
}

// Validate checks the request in isolation.
func (r *Request) Validate() error {
	for name, scale := range map[string]float64{"count": r.CountScale, "amount": r.AmountScale} {
		if math.IsNaN(scale) || math.IsInf(scale, 0) || scale < 0 {
			return fmt.Errorf("%w: %s scale %v", ErrInvalidRequest, name, scale)
		}
	}
	for i, a := range r.Amounts {
		if strings.TrimSpace(a.Variable) == "" {
			return fmt.Errorf("%w: amount %d has no variable", ErrInvalidRequest, i)
		}
	}

	inRange := func(i int) bool { return i >= 0 && i < len(r.Amounts) }
	switch r.Ratio.Kind {
	case RatioNone:
	case RatioAverage:
		if !inRange(r.Ratio.Numerator) {
			return fmt.Errorf("%w: ratio numerator %d out of range", ErrInvalidRequest, r.Ratio.Numerator)
		}
	case RatioPercent, RatioPercentChange:
		if !inRange(r.Ratio.Numerator) || !inRange(r.Ratio.Denominator) {
			return fmt.Errorf("%w: ratio columns %d/%d out of range",
				ErrInvalidRequest, r.Ratio.Numerator, r.Ratio.Denominator)
		}
	default:
		return fmt.Errorf("%w: unknown ratio kind %v", ErrInvalidRequest, r.Ratio.Kind)
	}
	return nil
}

// Variables lists every record variable the request reads besides the bin key.
func (r *Request) Variables() []string {
	vars := make([]string, 0, len(r.Amounts)+1)
	seen := make(map[string]bool)
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	for _, a := range r.Amounts {
		add(a.Variable)
	}
	add(r.Recipients)
	return vars
}
