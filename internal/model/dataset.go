package model

import (
	"fmt"
	"time"
)

// Scenario identifies which simulation run produced a dataset.
type Scenario string

// Scenario constants.
const (
	ScenarioBaseline Scenario = "baseline"
	ScenarioReform   Scenario = "reform"
)

// Valid reports whether s is a known scenario.
func (s Scenario) Valid() bool {
	return s == ScenarioBaseline || s == ScenarioReform
}

// ParseScenario converts user input into a Scenario.
func ParseScenario(s string) (Scenario, error) {
	scenario := Scenario(s)
	if !scenario.Valid() {
		return "", fmt.Errorf("unknown scenario %q (want %q or %q)", s, ScenarioBaseline, ScenarioReform)
	}
	return scenario, nil
}

// Dataset describes a stored set of records for one analysis year.
type Dataset struct {
	CreatedAt    time.Time
	Name         string
	Scenario     Scenario
	Source       string
	ReformName   string
	WeightColumn string
	Variables    []string
	ID           int64
	Year         int
	RecordCount  int
}

// ReportRun is a rendered tabulation kept for later reference.
type ReportRun struct {
	CreatedAt         time.Time
	Recipe            string
	Scheme            string
	Title             string
	Rendered          string
	ID                int64
	BaselineDatasetID int64
	ReformDatasetID   int64
}
