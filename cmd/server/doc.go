// Package main is the entry point for the PatternLab grading server.
//
// The server loads exercise content, prewarms sandboxed execution hosts
// and grades learner submissions against each exercise's assertions.
//
// The server provides:
//   - REST API for exercises, sessions and runs
//   - WebSocket streaming of run transitions
//   - Skeleton analysis
//   - Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -content ./content
//
//	# Persist run history, development logging
//	./server -db history.db -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
