// Package id provides centralized ID generation for the grading backend.
//
// Two ID families exist:
//   - Prefixed ULIDs for sessions and requests (sess_*, req_*). They are
//     lexicographically sortable and readable in logs.
//   - Run IDs: a process-wide monotonically increasing int64 counter. A run
//     ID is never reused and the counter never resets while sessions are live,
//     which is what lets the coordinator reject messages from discarded hosts.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies a grading session
type SessionID string

// RequestID identifies an API request or trace span
type RequestID string

const (
	SessionPrefix = "sess"
	RequestPrefix = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// IsValidPrefixed checks a "prefix_ULID" identifier
func IsValidPrefixed(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	return ok && IsValid(rest)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// ============================================================================
// Run IDs
// ============================================================================

// RunCounter hands out monotonically increasing run IDs. The zero value
// starts at 1.
type RunCounter struct {
	last atomic.Int64
}

// Next returns the next run ID
func (c *RunCounter) Next() int64 {
	return c.last.Add(1)
}

// Last returns the most recently issued run ID, or 0
func (c *RunCounter) Last() int64 {
	return c.last.Load()
}

var processRuns RunCounter

// NextRunID returns the next run ID from the process-wide counter
func NextRunID() int64 {
	return processRuns.Next()
}

// ProcessRuns exposes the process-wide counter for components that accept
// an injected counter
func ProcessRuns() *RunCounter {
	return &processRuns
}
