/*
Package grading coordinates grading runs against sandbox hosts.

# Run lifecycle

	IDLE -> LOADING -> READY -> RUNNING -> REPORTED | TIMED_OUT | CRASHED

A Session owns one exercise and at most one active run. Submit discards
whatever run is in flight, takes a fresh host, and loads the learner code
with the exercise's compiled assertion program. When the host reports
READY the session triggers the assertions and starts the run deadline.

The result message is the only data a host sends back. It is decoded and
validated by package protocol; a message for any run other than the
current one is ignored, which is what makes superseded hosts harmless.

# Failure modes

  - TIMED_OUT: no READY before LoadTimeout, or no valid result before
    RunTimeout. The run could not be verified.
  - CRASHED: the host failed outside learner code, or the framework's
    circuit breaker is open. Crashes are retryable.

Learner exceptions are neither: they are recorded on the run and the
predicates simply fail.

# Usage

	coord := grading.New(grading.DefaultConfig(), grading.Deps{
		Hosts:     grading.PoolFactory(pool),
		Exercises: registry,
		History:   store,
	})
	defer coord.Close()

	session, err := coord.Open(types.FrameworkReact, "controlled-input")
	run, err := session.Grade(ctx, code)
*/
package grading
