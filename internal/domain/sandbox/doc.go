/*
Package sandbox runs learner submissions in isolated goja realms.

# Overview

A Host is one single-use realm. It carries a small browser surface built
on golang.org/x/net/html: document and element proxies, events, timers on
a virtual clock, localStorage, console capture and a whitelisted require
for the framework runtime. Each host goroutine owns its runtime; other
goroutines only trigger runs and interrupt.

# Load order

 1. Environment: console, timers, storage, require, prelude
 2. Fixture markup parsed into the document
 3. Framework bootstrap (vanilla, react or vue)
 4. Host channel and the compiled assessment program
 5. Learner code, transformed by esbuild, then mounted
 6. One event-loop turn, then EventReady

The assessment program runs before learner code so that learner code
cannot redefine the trigger or the result channel. Learner exceptions are
recorded and reported with EventReady; they never fault the host.

# Events

	outbox := make(chan sandbox.Event, 8)
	host, _ := pool.Acquire(ctx)
	_ = host.Load(spec, outbox)
	// wait for EventReady, then
	_ = host.Trigger(spec.RunID)
	// read EventMessage payloads
	host.Discard()

Discard interrupts a runaway realm, including tight loops in learner
code, and is safe to call at any time.
*/
package sandbox
