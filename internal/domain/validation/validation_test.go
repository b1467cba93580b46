package validation

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

func ex(pattern, skeleton string, assertions int) *types.Exercise {
	e := &types.Exercise{Framework: types.FrameworkVanilla, Pattern: pattern, SkeletonSource: skeleton}
	for i := 0; i < assertions; i++ {
		e.Assertions = append(e.Assertions, types.Assertion{Index: i, PredicateSource: "true"})
	}
	return e
}

func TestValidate(t *testing.T) {
	leaky := "const visible = items.filter(i => i.done);\n"
	clean := "// TODO: filter the items\n"

	report := Validate([]*types.Exercise{
		ex("b-clean", clean, 1),
		ex("a-leaky", leaky, 2),
		ex("c-unguarded", leaky, 0),
	}, nil)

	assert.True(t, report.Failed())
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Findings)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "a-leaky", report.Results[0].Exercise.Pattern)
	assert.True(t, report.Results[2].Skipped)
	assert.Empty(t, report.Results[2].Findings, "skipped exercises are not analyzed")

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].Findings[0].LineNumber)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	assert.Contains(t, buf.String(), "vanilla/a-leaky:1: [")
	assert.Contains(t, buf.String(), "2 checked, 1 skipped, 1 findings")
}

func TestValidateClean(t *testing.T) {
	report := Validate([]*types.Exercise{ex("todo", "function render() {\n  // TODO\n}\n", 1)}, nil)
	assert.False(t, report.Failed())
	assert.Empty(t, report.Failures())
}

type stubScanner struct{ calls int }

func (s *stubScanner) Analyze(string) []types.LeakFinding {
	s.calls++
	return []types.LeakFinding{{LineNumber: 3, RuleID: "stub", Content: "x"}}
}

func TestValidateCustomScanner(t *testing.T) {
	s := &stubScanner{}
	report := Validate([]*types.Exercise{ex("a", "", 1), ex("b", "", 0)}, s)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, 1, report.Findings)
}
