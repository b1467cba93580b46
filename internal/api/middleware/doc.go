// Package middleware provides gin middleware for the grading API:
// CORS, per-IP and global rate limiting, gzip compression and panic
// recovery. Tracing and request metrics live with their infrastructure
// packages.
package middleware
