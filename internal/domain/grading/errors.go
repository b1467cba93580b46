package grading

import "errors"

var (
	// ErrHostTimeout: the realm did not report before its deadline. The run
	// could not be verified; this is not a failing result.
	ErrHostTimeout = errors.New("host did not report before the deadline")
	// ErrHostCrash: the realm could not be initialized or faulted. Retryable.
	ErrHostCrash = errors.New("host crashed")

	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionClosed      = errors.New("session is closed")
	ErrRunNotFound        = errors.New("run not found")
	ErrCoordinatorClosed  = errors.New("coordinator is closed")
	ErrSubmissionRejected = errors.New("submission rejected")
)
