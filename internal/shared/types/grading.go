package types

import "time"

// RunStatus represents grading run lifecycle states
type RunStatus string

const (
	StatusIdle     RunStatus = "idle"
	StatusLoading  RunStatus = "loading"
	StatusReady    RunStatus = "ready"
	StatusRunning  RunStatus = "running"
	StatusReported RunStatus = "reported"
	StatusTimedOut RunStatus = "timed_out"
	StatusCrashed  RunStatus = "crashed"
)

// Terminal reports whether no further transitions can happen
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusReported, StatusTimedOut, StatusCrashed:
		return true
	}
	return false
}

// Verified reports whether the run produced assertion outcomes.
// Timed out and crashed runs could not be verified.
func (s RunStatus) Verified() bool {
	return s == StatusReported
}

// GradingResult is the outcome of one assertion
type GradingResult struct {
	AssertionIndex int    `json:"index"`
	Name           string `json:"name"`
	Pass           bool   `json:"pass"`
	Error          string `json:"error,omitempty"`
}

// GradingRun is one graded attempt at an exercise
type GradingRun struct {
	RunID         int64           `json:"run_id"`
	SessionID     string          `json:"session_id"`
	Exercise      ExerciseKey     `json:"exercise"`
	SubmittedCode string          `json:"-"`
	Status        RunStatus       `json:"status"`
	Results       []GradingResult `json:"results"`
	Discarded     bool            `json:"discarded"`
	Error         string          `json:"error,omitempty"`
	LearnerError  string          `json:"learner_error,omitempty"` // First uncaught error from learner code
	CreatedAt     time.Time       `json:"created_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// Passed counts passing results
func (r *GradingRun) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Pass {
			n++
		}
	}
	return n
}

// Duration returns the wall time between creation and finish
func (r *GradingRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.CreatedAt)
}

// Clone returns a deep copy safe to hand to other goroutines
func (r *GradingRun) Clone() *GradingRun {
	c := *r
	if r.Results != nil {
		c.Results = append([]GradingResult(nil), r.Results...)
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// RunEvent notifies subscribers of a run status transition
type RunEvent struct {
	RunID     int64     `json:"run_id"`
	SessionID string    `json:"session_id"`
	Status    RunStatus `json:"status"`
	Discarded bool      `json:"discarded,omitempty"`
	Passed    int       `json:"passed,omitempty"`
	Total     int       `json:"total,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
