package model

import (
	"sort"
	"time"
)

// Reform is a named set of policy-parameter changes relative to a baseline.
// The simulation applies it; taxtab only records which reform a dataset used.
type Reform struct {
	CreatedAt  time.Time
	Parameters map[string]map[string]any
	Name       string
	Source     string
	Raw        string
	ID         int64
}

// ParameterNames returns the reform's parameter names in sorted order.
func (r *Reform) ParameterNames() []string {
	names := make([]string, 0, len(r.Parameters))
	for name := range r.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Years returns the sorted set of years any parameter changes in.
func (r *Reform) Years() []string {
	seen := make(map[string]struct{})
	for _, byYear := range r.Parameters {
		for year := range byYear {
			seen[year] = struct{}{}
		}
	}
	years := make([]string, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Strings(years)
	return years
}
