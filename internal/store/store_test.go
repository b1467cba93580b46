package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(0),
	}
}

func makeRun(id int64, pattern string, status types.RunStatus, took time.Duration, passes ...bool) *types.GradingRun {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(id) * time.Second)
	finished := created.Add(took)
	run := &types.GradingRun{
		RunID:      id,
		SessionID:  "sess_test",
		Exercise:   types.ExerciseKey{Framework: types.FrameworkVanilla, Pattern: pattern},
		Status:     status,
		CreatedAt:  created,
		FinishedAt: &finished,
	}
	for i, p := range passes {
		run.Results = append(run.Results, types.GradingResult{AssertionIndex: i, Pass: p})
	}
	return run
}

func TestRecordAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := makeRun(7, "todo", types.StatusReported, 120*time.Millisecond, true, false, true)
			run.LearnerError = "ReferenceError: x is not defined"
			require.NoError(t, s.RecordRun(ctx, run))

			got, err := s.GetRun(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, int64(7), got.RunID)
			assert.Equal(t, "sess_test", got.SessionID)
			assert.Equal(t, types.FrameworkVanilla, got.Framework)
			assert.Equal(t, "todo", got.Pattern)
			assert.Equal(t, types.StatusReported, got.Status)
			assert.Equal(t, 2, got.Passed)
			assert.Equal(t, 3, got.Total)
			assert.Equal(t, int64(120), got.DurationMS)
			assert.Equal(t, run.LearnerError, got.LearnerError)
			assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
			require.NotNil(t, got.FinishedAt)
			assert.True(t, run.FinishedAt.Equal(*got.FinishedAt))

			_, err = s.GetRun(ctx, 8)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRecordRunTwiceKeepsLatest(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.RecordRun(ctx, makeRun(1, "todo", types.StatusTimedOut, time.Second)))
			require.NoError(t, s.RecordRun(ctx, makeRun(1, "todo", types.StatusReported, time.Second, true)))

			got, err := s.GetRun(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, types.StatusReported, got.Status)

			_, total, err := s.ListRuns(ctx, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, 1, total)
		})
	}
}

func TestListRunsPaginates(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for id := int64(1); id <= 5; id++ {
				require.NoError(t, s.RecordRun(ctx, makeRun(id, "todo", types.StatusReported, time.Millisecond)))
			}

			runs, total, err := s.ListRuns(ctx, 2, 0)
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			require.Len(t, runs, 2)
			assert.Equal(t, int64(5), runs[0].RunID)
			assert.Equal(t, int64(4), runs[1].RunID)

			runs, _, err = s.ListRuns(ctx, 2, 4)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, int64(1), runs[0].RunID)

			runs, _, err = s.ListRuns(ctx, 2, 10)
			require.NoError(t, err)
			assert.Empty(t, runs)
		})
	}
}

func TestExerciseDurations(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.RecordRun(ctx, makeRun(1, "todo", types.StatusReported, 100*time.Millisecond, true)))
			require.NoError(t, s.RecordRun(ctx, makeRun(2, "other", types.StatusReported, time.Second)))
			require.NoError(t, s.RecordRun(ctx, makeRun(3, "todo", types.StatusTimedOut, 2*time.Second)))

			samples, err := s.ExerciseDurations(ctx, types.FrameworkVanilla, "todo")
			require.NoError(t, err)
			require.Len(t, samples, 2)
			assert.Equal(t, Sample{Status: types.StatusReported, Passed: 1, Total: 1, DurationMS: 100}, samples[0])
			assert.Equal(t, Sample{Status: types.StatusTimedOut, DurationMS: 2000}, samples[1])

			samples, err = s.ExerciseDurations(ctx, types.FrameworkReact, "todo")
			require.NoError(t, err)
			assert.Empty(t, samples)
		})
	}
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	for id := int64(1); id <= 3; id++ {
		require.NoError(t, s.RecordRun(ctx, makeRun(id, "todo", types.StatusReported, time.Millisecond)))
	}

	_, err := s.GetRun(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, total, err := s.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordRun(ctx, makeRun(42, "todo", types.StatusCrashed, time.Millisecond)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetRun(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCrashed, got.Status)
}
