package binning

import (
	"fmt"
	"sort"
)

// Variable names used by the built-in schemes.
const (
	WageVariable = "e00200"
	AGIVariable  = "c00100"
)

// Definition is the serializable form of a scheme, as found in config files.
type Definition struct {
	Key        string    `mapstructure:"key" yaml:"key"`
	Boundaries []float64 `mapstructure:"boundaries" yaml:"boundaries"`
	Labels     []string  `mapstructure:"labels" yaml:"labels"`
}

// Build validates the definition and returns the scheme.
func (d Definition) Build(name string) (*Scheme, error) {
	return New(name, d.Key, d.Boundaries, d.Labels)
}

var presets = map[string]func() (*Scheme, error){
	"wage": func() (*Scheme, error) {
		return OpenEnded("wage", WageVariable,
			[]float64{50e3, 100e3, 200e3, 500e3, 1e6},
			[]string{"<50K", "50-100K", "100-200K", "200-500K", "500K-1M", ">=1M"})
	},
	"agi": func() (*Scheme, error) {
		return OpenEnded("agi", AGIVariable,
			[]float64{1, 5e3, 10e3, 15e3, 20e3, 25e3, 30e3, 40e3, 50e3}, nil)
	},
	"total": func() (*Scheme, error) {
		return OpenEnded("total", AGIVariable, nil, []string{"all units"})
	},
}

// Preset returns a built-in scheme by name.
func Preset(name string) (*Scheme, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown bin scheme %q", name)
	}
	return build()
}

// PresetNames lists the built-in schemes in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog resolves scheme names against user definitions first and the
// built-in presets second.
type Catalog struct {
	defined map[string]*Scheme
}

// NewCatalog validates every definition up front so a bad config fails before
// any records are read.
func NewCatalog(defs map[string]Definition) (*Catalog, error) {
	c := &Catalog{defined: make(map[string]*Scheme, len(defs))}
	for name, def := range defs {
		s, err := def.Build(name)
		if err != nil {
			return nil, err
		}
		c.defined[name] = s
	}
	return c, nil
}

// Get returns the named scheme.
func (c *Catalog) Get(name string) (*Scheme, error) {
	if c != nil {
		if s, ok := c.defined[name]; ok {
			return s, nil
		}
	}
	return Preset(name)
}

// Names lists every scheme the catalog can resolve.
func (c *Catalog) Names() []string {
	seen := make(map[string]struct{})
	for _, name := range PresetNames() {
		seen[name] = struct{}{}
	}
	if c != nil {
		for name := range c.defined {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
