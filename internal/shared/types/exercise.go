package types

import (
	"fmt"
	"strings"
	"time"
)

// FrameworkID identifies the UI framework an exercise is written against
type FrameworkID string

const (
	FrameworkVanilla FrameworkID = "vanilla"
	FrameworkReact   FrameworkID = "react"
	FrameworkVue     FrameworkID = "vue"
)

// Frameworks returns every supported framework in a stable order
func Frameworks() []FrameworkID {
	return []FrameworkID{FrameworkVanilla, FrameworkReact, FrameworkVue}
}

// Valid reports whether the framework is one of the supported set
func (f FrameworkID) Valid() bool {
	switch f {
	case FrameworkVanilla, FrameworkReact, FrameworkVue:
		return true
	}
	return false
}

func (f FrameworkID) String() string { return string(f) }

// ExerciseKey identifies an exercise by framework and pattern
type ExerciseKey struct {
	Framework FrameworkID `json:"framework"`
	Pattern   string      `json:"pattern"`
}

// String renders the key as "framework/pattern"
func (k ExerciseKey) String() string {
	return fmt.Sprintf("%s/%s", k.Framework, k.Pattern)
}

// ParseExerciseKey parses a "framework/pattern" string
func ParseExerciseKey(s string) (ExerciseKey, error) {
	framework, pattern, ok := strings.Cut(s, "/")
	if !ok || framework == "" || pattern == "" {
		return ExerciseKey{}, fmt.Errorf("invalid exercise key %q: want framework/pattern", s)
	}
	return ExerciseKey{Framework: FrameworkID(framework), Pattern: pattern}, nil
}

// Assertion is one correctness predicate. Index is stable and 0-based;
// it never changes between compile and run.
type Assertion struct {
	Index           int    `json:"index"`
	Name            string `json:"name"`
	PredicateSource string `json:"predicate"`
}

// Exercise is immutable content: a skeleton plus its ordered assertions
type Exercise struct {
	Framework      FrameworkID `json:"framework"`
	Pattern        string      `json:"pattern"`
	Title          string      `json:"title,omitempty"`
	Description    string      `json:"description,omitempty"`
	Fixture        string      `json:"fixture,omitempty"` // Initial page markup
	SkeletonSource string      `json:"skeleton"`
	Assertions     []Assertion `json:"assertions"`
}

// Key returns the exercise's registry key
func (e *Exercise) Key() ExerciseKey {
	return ExerciseKey{Framework: e.Framework, Pattern: e.Pattern}
}

// LeakFinding reports a skeleton line that reveals working implementation
type LeakFinding struct {
	LineNumber int    `json:"line"` // 1-based
	Content    string `json:"content"`
	RuleID     string `json:"rule"`
}

// String renders the finding in a compiler-like "line: [rule] content" form
func (f LeakFinding) String() string {
	return fmt.Sprintf("%d: [%s] %s", f.LineNumber, f.RuleID, f.Content)
}

// ExerciseSummary is the listing view of an exercise
type ExerciseSummary struct {
	Framework  FrameworkID `json:"framework"`
	Pattern    string      `json:"pattern"`
	Title      string      `json:"title,omitempty"`
	Assertions int         `json:"assertions"`
}

// Summary returns the listing view of the exercise
func (e *Exercise) Summary() ExerciseSummary {
	return ExerciseSummary{
		Framework:  e.Framework,
		Pattern:    e.Pattern,
		Title:      e.Title,
		Assertions: len(e.Assertions),
	}
}

// RegistryStats reports registry contents
type RegistryStats struct {
	Total       int                 `json:"total"`
	ByFramework map[FrameworkID]int `json:"by_framework"`
	LoadedAt    *time.Time          `json:"loaded_at,omitempty"`
}
