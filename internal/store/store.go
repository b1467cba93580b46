package store

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// ErrNotFound is returned when a run is not in the history.
var ErrNotFound = errors.New("run not found")

// Store persists finished grading runs.
type Store interface {
	RecordRun(ctx context.Context, run *types.GradingRun) error
	GetRun(ctx context.Context, runID int64) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, int, error)
	ExerciseDurations(ctx context.Context, framework types.FrameworkID, pattern string) ([]Sample, error)
	Close() error
}

// Run is the stored view of a finished grading run.
type Run struct {
	RunID        int64             `json:"run_id"`
	SessionID    string            `json:"session_id"`
	Framework    types.FrameworkID `json:"framework"`
	Pattern      string            `json:"pattern"`
	Status       types.RunStatus   `json:"status"`
	Passed       int               `json:"passed"`
	Total        int               `json:"total"`
	Error        string            `json:"error,omitempty"`
	LearnerError string            `json:"learner_error,omitempty"`
	DurationMS   int64             `json:"duration_ms"`
	CreatedAt    time.Time         `json:"created_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
}

// Sample is one run's contribution to exercise statistics.
type Sample struct {
	Status     types.RunStatus
	Passed     int
	Total      int
	DurationMS int64
}

// fromRun flattens a grading run for storage.
func fromRun(run *types.GradingRun) *Run {
	return &Run{
		RunID:        run.RunID,
		SessionID:    run.SessionID,
		Framework:    run.Exercise.Framework,
		Pattern:      run.Exercise.Pattern,
		Status:       run.Status,
		Passed:       run.Passed(),
		Total:        len(run.Results),
		Error:        run.Error,
		LearnerError: run.LearnerError,
		DurationMS:   run.Duration().Milliseconds(),
		CreatedAt:    run.CreatedAt.UTC(),
		FinishedAt:   utc(run.FinishedAt),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *Run) sample() Sample {
	return Sample{Status: r.Status, Passed: r.Passed, Total: r.Total, DurationMS: r.DurationMS}
}
