// Package model contains the core data types shared across taxtab.
package model

import "sort"

// Record is one simulated filing unit produced by the external simulation.
type Record struct {
	Values map[string]float64
	ID     int64
	Weight float64
}

// Value returns the named quantity and whether the record carries it.
func (r Record) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// VariableNames returns the sorted set of variable names present on any record.
func VariableNames(records []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for name := range r.Values {
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

// TotalWeight sums the sampling weights of records.
func TotalWeight(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.Weight
	}
	return total
}
