package http

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
	"github.com/GriffinCanCode/PatternLab/backend/internal/store"
)

// ExerciseStats summarizes the recorded runs of one exercise
type ExerciseStats struct {
	Runs     int            `json:"runs"`
	ByStatus map[string]int `json:"by_status"`
	// Fraction of reported runs where every assertion passed
	SolveRate float64 `json:"solve_rate"`
	// Fraction of assertions passed across reported runs
	AssertionPassRate float64       `json:"assertion_pass_rate"`
	DurationMS        DurationStats `json:"duration_ms"`
}

// DurationStats describes run wall times in milliseconds
type DurationStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes exercise statistics. Durations cover every run;
// pass rates cover only reported runs, since timed out and crashed runs
// were never verified.
func Summarize(samples []store.Sample) ExerciseStats {
	out := ExerciseStats{Runs: len(samples), ByStatus: make(map[string]int)}
	if len(samples) == 0 {
		return out
	}

	durations := make([]float64, 0, len(samples))
	var reported, solved, passed, total int
	for _, s := range samples {
		out.ByStatus[string(s.Status)]++
		durations = append(durations, float64(s.DurationMS))
		if s.Status != types.StatusReported {
			continue
		}
		reported++
		passed += s.Passed
		total += s.Total
		if s.Total > 0 && s.Passed == s.Total {
			solved++
		}
	}
	if reported > 0 {
		out.SolveRate = float64(solved) / float64(reported)
	}
	if total > 0 {
		out.AssertionPassRate = float64(passed) / float64(total)
	}

	sort.Float64s(durations)
	out.DurationMS = DurationStats{
		Mean:   stat.Mean(durations, nil),
		Median: stat.Quantile(0.5, stat.Empirical, durations, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, durations, nil),
		Min:    floats.Min(durations),
		Max:    floats.Max(durations),
	}
	if len(durations) > 1 {
		out.DurationMS.StdDev = stat.StdDev(durations, nil)
	}
	return out
}
