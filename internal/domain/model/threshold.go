package model

import (
	"errors"
	"fmt"
)

// ThresholdSpec holds the numeric build-gate ceilings. Nil pointer fields mean
// "no ceiling" for that count.
type ThresholdSpec struct {
	Total    *int
	Critical *int
	High     *int
	Medium   *int
	Low      *int
}

// IsEmpty reports whether no ceiling is set.
func (t ThresholdSpec) IsEmpty() bool {
	return t.Total == nil && t.Critical == nil && t.High == nil && t.Medium == nil && t.Low == nil
}

// Validate rejects a threshold set with no ceilings and negative ceilings.
func (t ThresholdSpec) Validate() error {
	if t.IsEmpty() {
		return fmt.Errorf("%w: at least one threshold must be specified", ErrConfiguration)
	}

	var errs []error
	for _, c := range t.ceilings(FindingCounts{}) {
		if c.limit != nil && *c.limit < 0 {
			errs = append(errs, fmt.Errorf("%s threshold must not be negative, got %d", c.name, *c.limit))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Breach describes one count that exceeded its ceiling.
type Breach struct {
	Name  string
	Count int
	Limit int
}

// Evaluate applies the ceilings to counts. The gate fails if any count
// strictly exceeds its ceiling; the ceilings are OR'd together.
func (t ThresholdSpec) Evaluate(counts FindingCounts) (Verdict, []Breach) {
	var breaches []Breach
	for _, c := range t.ceilings(counts) {
		if c.limit != nil && c.count > *c.limit {
			breaches = append(breaches, Breach{Name: c.name, Count: c.count, Limit: *c.limit})
		}
	}
	if len(breaches) > 0 {
		return VerdictFail, breaches
	}
	return VerdictPass, nil
}

type ceiling struct {
	name  string
	count int
	limit *int
}

func (t ThresholdSpec) ceilings(counts FindingCounts) []ceiling {
	return []ceiling{
		{"total", counts.Total, t.Total},
		{"critical", counts.Critical, t.Critical},
		{"high", counts.High, t.High},
		{"medium", counts.Medium, t.Medium},
		{"low", counts.Low, t.Low},
	}
}
