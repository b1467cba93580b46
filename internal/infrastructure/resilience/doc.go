/*
Package resilience provides the circuit breaker that guards grading hosts.

# Overview

A realm that repeatedly fails to initialize usually means a broken
bootstrap or bad content, not a learner mistake. Each framework gets its own
breaker; once it opens, submissions fail fast instead of spinning up hosts
that will crash again.

# Usage

	breakers := resilience.NewGroup(resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	ticket, err := breakers.Get("react").Allow()
	if err != nil {
		return err // resilience.ErrCircuitOpen
	}
	// later, when the run finishes
	ticket.Done(status != crashed)

Runs that are superseded before finishing call Abandon, which counts
neither way.

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
