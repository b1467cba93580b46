package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// Config defines execution host limits
type Config struct {
	MaxCallStack int           // Maximum JS call stack depth
	SettleWindow time.Duration // Virtual time flushed per event-loop turn
	TaskBudget   int           // Maximum timer callbacks per turn
}

// DefaultConfig returns the default host limits
func DefaultConfig() Config {
	return Config{
		MaxCallStack: 1024,
		SettleWindow: 50 * time.Millisecond,
		TaskBudget:   1000,
	}
}

// Spec is everything a host needs to load one run
type Spec struct {
	RunID     int64
	Framework types.FrameworkID
	Fixture   string // initial page markup
	Source    string // learner submission
	Program   string // compiled assessment program
}

// EventKind classifies host-to-coordinator events
type EventKind int

const (
	// EventReady: top-level execution and the first event-loop turn finished
	EventReady EventKind = iota
	// EventFault: the realm failed and cannot report
	EventFault
	// EventMessage: the realm posted a message through the host channel
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventFault:
		return "fault"
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is posted by a host to its outbox. RunID is the run the host was
// loaded for; message payloads carry their own runId and are validated by
// the receiver.
type Event struct {
	RunID        int64
	Kind         EventKind
	Data         []byte
	Err          error
	LearnerError string
}

// LogEntry is one captured console call
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// Load phases
const (
	PhaseEnvironment = "environment"
	PhaseBootstrap   = "bootstrap"
	PhaseProgram     = "program"
	PhaseTrigger     = "trigger"
	PhaseRuntime     = "runtime"
)

var (
	ErrTriggerMissing = errors.New("assessment trigger not installed")
	ErrHostDiscarded  = errors.New("host discarded")
	ErrHostBusy       = errors.New("host already loaded")
	ErrPoolClosed     = errors.New("sandbox pool is closed")
)

// LoadError reports a realm that failed outside learner code
type LoadError struct {
	Phase string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("sandbox %s failed: %v", e.Phase, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
