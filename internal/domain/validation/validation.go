// Package validation is the content gate run before exercises ship: every
// exercise with at least one assertion must have a skeleton the analyzer
// finds nothing in.
package validation

import (
	"fmt"
	"io"
	"sort"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/analyzer"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// Result is the analyzer outcome for one exercise
type Result struct {
	Exercise types.ExerciseKey   `json:"exercise"`
	Skipped  bool                `json:"skipped,omitempty"` // No assertions, so nothing to protect
	Findings []types.LeakFinding `json:"findings"`
}

// Report is the outcome of a validation pass
type Report struct {
	Results  []Result `json:"results"`
	Checked  int      `json:"checked"`
	Skipped  int      `json:"skipped"`
	Findings int      `json:"findings"`
}

// Failed reports whether any checked exercise has findings
func (r *Report) Failed() bool {
	return r.Findings > 0
}

// Failures returns only the results with findings
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if len(res.Findings) > 0 {
			out = append(out, res)
		}
	}
	return out
}

// Validate analyzes every exercise's skeleton. A nil scanner uses the
// default analyzer.
func Validate(exercises []*types.Exercise, scanner analyzer.Scanner) *Report {
	if scanner == nil {
		scanner = analyzer.New()
	}

	report := &Report{Results: make([]Result, 0, len(exercises))}
	for _, e := range exercises {
		res := Result{Exercise: e.Key(), Findings: []types.LeakFinding{}}
		if len(e.Assertions) == 0 {
			res.Skipped = true
			report.Skipped++
		} else {
			res.Findings = scanner.Analyze(e.SkeletonSource)
			report.Checked++
			report.Findings += len(res.Findings)
		}
		report.Results = append(report.Results, res)
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].Exercise.String() < report.Results[j].Exercise.String()
	})
	return report
}

// Write prints failures in a compiler-like "exercise:line: [rule] content"
// form followed by a summary line
func (r *Report) Write(w io.Writer) error {
	for _, res := range r.Failures() {
		for _, f := range res.Findings {
			if _, err := fmt.Fprintf(w, "%s:%s\n", res.Exercise, f); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d checked, %d skipped, %d findings\n", r.Checked, r.Skipped, r.Findings)
	return err
}
