package http

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
	"github.com/GriffinCanCode/PatternLab/backend/internal/store"
)

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)
	assert.Zero(t, stats.Runs)
	assert.Zero(t, stats.DurationMS.Mean)
	assert.NotNil(t, stats.ByStatus)
}

func TestSummarize(t *testing.T) {
	stats := Summarize([]store.Sample{
		{Status: types.StatusReported, Passed: 2, Total: 2, DurationMS: 100},
		{Status: types.StatusReported, Passed: 1, Total: 2, DurationMS: 200},
		{Status: types.StatusTimedOut, DurationMS: 300},
		{Status: types.StatusCrashed, DurationMS: 400},
	})

	assert.Equal(t, 4, stats.Runs)
	assert.Equal(t, map[string]int{"reported": 2, "timed_out": 1, "crashed": 1}, stats.ByStatus)
	assert.Equal(t, 0.5, stats.SolveRate)
	assert.Equal(t, 0.75, stats.AssertionPassRate)
	assert.Equal(t, 250.0, stats.DurationMS.Mean)
	assert.Equal(t, 200.0, stats.DurationMS.Median)
	assert.Equal(t, 400.0, stats.DurationMS.P95)
	assert.Equal(t, 100.0, stats.DurationMS.Min)
	assert.Equal(t, 400.0, stats.DurationMS.Max)
	assert.InDelta(t, 129.1, stats.DurationMS.StdDev, 0.1)
}

func TestSummarizeSingleSample(t *testing.T) {
	stats := Summarize([]store.Sample{{Status: types.StatusReported, Passed: 0, Total: 0, DurationMS: 50}})
	assert.Zero(t, stats.DurationMS.StdDev)
	assert.Zero(t, stats.SolveRate, "no assertions means nothing was solved")
	assert.Equal(t, 50.0, stats.DurationMS.Median)
}
