// Package types provides shared data structures for the grading backend.
//
// This package defines the core abstraction shared by the skeleton analyzer
// and the assessment protocol: an ordered assertion list attached to a
// framework/pattern identifier.
//
// Content Types:
//   - Exercise: Skeleton source plus assertions for one framework/pattern
//   - Assertion: Named boolean predicate with a stable 0-based index
//   - LeakFinding: Analyzer diagnostic for a skeleton line
//
// Grading Types:
//   - GradingRun: One graded attempt, identified by a monotonic run ID
//   - GradingResult: Outcome of a single assertion within a run
//   - RunStatus: Run lifecycle state
//   - RunEvent: Status transition notification
//
// Example Usage:
//
//	ex := &types.Exercise{
//	    Framework:      types.FrameworkReact,
//	    Pattern:        "tabs",
//	    SkeletonSource: skeleton,
//	    Assertions:     assertions,
//	}
package types
