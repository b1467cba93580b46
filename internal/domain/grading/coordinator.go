package grading

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/id"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/utils"
)

// Config defines coordinator limits
type Config struct {
	LoadTimeout        time.Duration // LOADING deadline; exceeding it times the run out
	RunTimeout         time.Duration // RUNNING deadline
	MaxSubmissionBytes int
	RunsPerSession     int // Finished runs kept for Run lookups
	Breaker            resilience.Settings
}

// DefaultConfig returns the default coordinator limits
func DefaultConfig() Config {
	return Config{
		LoadTimeout:        3 * time.Second,
		RunTimeout:         2 * time.Second,
		MaxSubmissionBytes: utils.MaxSubmissionSize,
		RunsPerSession:     32,
		Breaker: resilience.Settings{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		},
	}
}

// Deps are the coordinator's collaborators. Metrics, Tracer, History and
// Logger are optional.
type Deps struct {
	Hosts     HostFactory
	Exercises Exercises
	Programs  *compiler.Cache
	History   History
	Metrics   *monitoring.Metrics
	Tracer    *tracing.Tracer
	Logger    *logging.Logger
	Runs      *id.RunCounter
}

// Coordinator owns grading sessions. Each session drives at most one run
// at a time against its own host.
type Coordinator struct {
	cfg      Config
	deps     Deps
	log      *logging.Logger
	breakers *resilience.Group

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	records chan *types.GradingRun
	wg      sync.WaitGroup
}

// Stats summarizes coordinator state
type Stats struct {
	Sessions int                 `json:"sessions"`
	Breakers map[string]string   `json:"breakers"`
	Programs compiler.CacheStats `json:"programs"`
	Runs     int64               `json:"last_run_id"`
}

// New creates a coordinator
func New(cfg Config, deps Deps) *Coordinator {
	def := DefaultConfig()
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = def.LoadTimeout
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}
	if cfg.MaxSubmissionBytes <= 0 {
		cfg.MaxSubmissionBytes = def.MaxSubmissionBytes
	}
	if cfg.RunsPerSession <= 0 {
		cfg.RunsPerSession = def.RunsPerSession
	}
	if cfg.Breaker.ReadyToTrip == nil {
		cfg.Breaker = def.Breaker
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Programs == nil {
		deps.Programs = compiler.NewCache(compiler.DefaultCacheSize)
	}
	if deps.Runs == nil {
		deps.Runs = id.ProcessRuns()
	}

	c := &Coordinator{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger.Named("grading"),
		sessions: make(map[string]*Session),
		records:  make(chan *types.GradingRun, 256),
	}

	breaker := cfg.Breaker
	userHook := breaker.OnStateChange
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		c.log.Warn("Framework breaker state changed",
			logging.Framework(name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		if deps.Metrics != nil {
			deps.Metrics.SetBreakerOpen(name, to == resilience.StateOpen)
		}
		if userHook != nil {
			userHook(name, from, to)
		}
	}
	c.breakers = resilience.NewGroup(breaker)

	c.wg.Add(1)
	go c.recordLoop()
	return c
}

// Open starts a session for one exercise
func (c *Coordinator) Open(framework types.FrameworkID, pattern string) (*Session, error) {
	exercise, err := c.deps.Exercises.Get(framework, pattern)
	if err != nil {
		return nil, err
	}
	program, fingerprint := c.deps.Programs.Program(exercise.Assertions)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCoordinatorClosed
	}

	s := newSession(c, exercise, program)
	c.sessions[s.id] = s
	c.gauge()
	s.log.Info("Session opened",
		logging.Pattern(exercise.Pattern),
		zap.String("program", utils.ShortHash(fingerprint)),
	)
	return s, nil
}

// Session looks up an open session
func (c *Coordinator) Session(sessionID string) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// CloseSession discards the session's active run and forgets it
func (c *Coordinator) CloseSession(sessionID string) error {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if ok {
		delete(c.sessions, sessionID)
		c.gauge()
	}
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.close()
	return nil
}

// Sessions returns the IDs of all open sessions in order
func (c *Coordinator) Sessions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.sessions))
	for sid := range c.sessions {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

// Stats returns a snapshot of coordinator state
func (c *Coordinator) Stats() Stats {
	c.mu.RLock()
	n := len(c.sessions)
	c.mu.RUnlock()

	return Stats{
		Sessions: n,
		Breakers: c.breakers.States(),
		Programs: c.deps.Programs.Stats(),
		Runs:     c.deps.Runs.Last(),
	}
}

// Close closes every session and flushes pending history writes
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.sessions = make(map[string]*Session)
	c.gauge()
	c.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	close(c.records)
	c.wg.Wait()
}

// gauge must be called with c.mu held
func (c *Coordinator) gauge() {
	if c.deps.Metrics != nil {
		c.deps.Metrics.SetSessionsActive(len(c.sessions))
	}
}

// record queues a finished run for the history store. Sessions are closed
// before records is, so no send happens after close.
func (c *Coordinator) record(run *types.GradingRun) {
	if c.deps.History == nil {
		return
	}
	select {
	case c.records <- run:
	default:
		c.log.Warn("History queue full, dropping run", logging.RunID(run.RunID))
	}
}

func (c *Coordinator) recordLoop() {
	defer c.wg.Done()
	for run := range c.records {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.deps.History.RecordRun(ctx, run); err != nil {
			c.log.Error("Failed to record run", logging.RunID(run.RunID), zap.Error(err))
		}
		cancel()
	}
}

func (c *Coordinator) dropped(reason string, err error, runID int64) {
	c.log.Debug("Ignoring host message",
		logging.RunID(runID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordDroppedMessage(reason)
	}
}

func (c *Coordinator) finished(run *types.GradingRun) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordRun(run.Exercise.Framework.String(), string(run.Status), run.Duration())
	}
	c.record(run)
}

func isCircuitError(err error) bool {
	return errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests)
}
