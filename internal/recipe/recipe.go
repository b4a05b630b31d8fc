// Package recipe defines the named tabulations taxtab knows how to produce.
package recipe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/binning"
	"github.com/Veraticus/taxtab/internal/compare"
)

// ErrUnknownRecipe is returned when a recipe name is not registered.
var ErrUnknownRecipe = errors.New("unknown recipe")

// Recipe is a reusable pipeline definition.
type Recipe struct {
	// Build returns the aggregation request for a given analysis year.
	Build       func(year int) aggregate.Request
	Name        string
	Description string
	// Scheme is the bin scheme used unless the caller overrides it.
	Scheme string
	// Variables are joined across baseline and reform when NeedsReform is set.
	Variables   []string
	NeedsReform bool
}

const combined = "combined"

func revenue() Recipe {
	return Recipe{
		Name:        "revenue",
		Description: "Combined income and payroll tax revenue under baseline and reform",
		Scheme:      "total",
		NeedsReform: true,
		Variables:   []string{combined},
		Build: func(year int) aggregate.Request {
			return aggregate.Request{
				Title:      fmt.Sprintf("Combined tax revenue, %d ($B)", year),
				CountLabel: "units(#m)",
				Amounts: []aggregate.Amount{
					{Label: "base($B)", Variable: compare.Base(combined)},
					{Label: "reform($B)", Variable: compare.Reform(combined)},
					{Label: "diff($B)", Variable: compare.Diff(combined)},
				},
				Ratio: aggregate.Ratio{Kind: aggregate.RatioPercentChange, Numerator: 1, Denominator: 0},
			}
		},
	}
}

func response() Recipe {
	return Recipe{
		Name:        "response",
		Description: "Behavioral response in combined tax liability by earnings group",
		Scheme:      "wage",
		NeedsReform: true,
		Variables:   []string{combined},
		Build: func(year int) aggregate.Request {
			return aggregate.Request{
				Title:       fmt.Sprintf("Behavioral response by earnings group, %d", year),
				LabelHeader: "earnings group",
				CountLabel:  "units(#m)",
				Amounts: []aggregate.Amount{
					{Label: "base($B)", Variable: compare.Base(combined)},
					{Label: "resp($B)", Variable: compare.Diff(combined)},
				},
				Ratio: aggregate.Ratio{Kind: aggregate.RatioPercent, Label: "resp(%)", Numerator: 1, Denominator: 0},
			}
		},
	}
}

func eitc() Recipe {
	return Recipe{
		Name:        "eitc",
		Description: "Average EITC benefit among recipients by AGI category",
		Scheme:      "agi",
		Build: func(year int) aggregate.Request {
			return aggregate.Request{
				Title:       fmt.Sprintf("EITC recipients by AGI category, %d", year),
				LabelHeader: "AGI category",
				CountLabel:  "num(#m)",
				Recipients:  "eitc",
				Amounts:     []aggregate.Amount{{Label: "amt($B)", Variable: "eitc"}},
				Ratio:       aggregate.Ratio{Kind: aggregate.RatioAverage, Label: "avg($K)", Numerator: 0},
			}
		},
	}
}

func charity() Recipe {
	const giving = "e19800"
	return Recipe{
		Name:        "charity",
		Description: "Change in cash charitable contributions by AGI category",
		Scheme:      "agi",
		NeedsReform: true,
		Variables:   []string{giving},
		Build: func(year int) aggregate.Request {
			return aggregate.Request{
				Title:       fmt.Sprintf("Charitable giving by AGI category, %d", year),
				LabelHeader: "AGI category",
				CountLabel:  "units(#m)",
				Amounts: []aggregate.Amount{
					{Label: "base($B)", Variable: compare.Base(giving)},
					{Label: "diff($B)", Variable: compare.Diff(giving)},
				},
				// diff over base is the percent change in giving.
				Ratio: aggregate.Ratio{Kind: aggregate.RatioPercent, Label: "pctchg", Numerator: 1, Denominator: 0},
			}
		},
	}
}

// Registry looks up recipes by name.
type Registry struct {
	recipes map[string]Recipe
}

// NewRegistry returns a registry holding the built-in recipes plus any extras.
// An extra recipe replaces a built-in of the same name.
func NewRegistry(extra ...Recipe) *Registry {
	r := &Registry{recipes: make(map[string]Recipe)}
	for _, rec := range []Recipe{revenue(), response(), eitc(), charity()} {
		r.recipes[rec.Name] = rec
	}
	for _, rec := range extra {
		r.recipes[rec.Name] = rec
	}
	return r
}

// Get returns the named recipe.
func (r *Registry) Get(name string) (Recipe, error) {
	rec, ok := r.recipes[name]
	if !ok {
		return Recipe{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownRecipe, name, r.Names())
	}
	return rec, nil
}

// Names lists registered recipes in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns registered recipes sorted by name.
func (r *Registry) List() []Recipe {
	out := make([]Recipe, 0, len(r.recipes))
	for _, name := range r.Names() {
		out = append(out, r.recipes[name])
	}
	return out
}

// Resolve returns the scheme a recipe should use, preferring override.
func (rec Recipe) Resolve(catalog *binning.Catalog, override string) (*binning.Scheme, error) {
	name := rec.Scheme
	if override != "" {
		name = override
	}
	if catalog == nil {
		return binning.Preset(name)
	}
	return catalog.Get(name)
}
