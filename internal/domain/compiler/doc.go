// Package compiler turns an exercise's ordered assertion list into a
// self-contained assessment program for the execution host.
//
// The program installs exactly two global bindings in the realm that
// loads it, both non-writable and non-configurable:
//
//   - __assessmentRegistry__: a frozen array of {index, name, predicate}
//   - __runAssessment__(runId): evaluates every predicate in registration
//     order, each inside its own try/catch, and posts one
//     "assessment-result" message through the host channel
//
// The host channel binding is captured and removed from the global scope
// when the program loads, so code evaluated afterwards cannot post results.
//
// Predicate sources are boolean expressions, embedded as JSON string
// literals and compiled to functions once, when the program loads. Each
// trigger evaluates them synchronously against the live page; only a
// strict true passes and a returned promise is a failure. A predicate that
// fails to parse becomes an entry whose function throws, so N assertions
// always produce N results. The program references nothing but the
// realm's own globals.
package compiler
