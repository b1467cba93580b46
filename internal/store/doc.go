// Package store persists finished grading runs.
//
// SQLiteStore uses modernc.org/sqlite (pure Go, WAL, busy timeout) and a
// single grading_runs table. MemoryStore is a bounded stand-in used when no
// database path is configured. Both satisfy grading.History.
package store
