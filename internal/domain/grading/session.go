package grading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/protocol"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/id"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/utils"
)

const (
	inboxSize      = 16
	subscriberSize = 32
)

// active is the run a session is currently driving
type active struct {
	run    *types.GradingRun
	host   Host
	timer  *time.Timer
	ticket *resilience.Ticket
	span   *tracing.Span
}

// Session grades submissions for one exercise. All of its hosts post to
// one inbox; events are correlated by run ID, so anything from a
// superseded host is ignored.
type Session struct {
	c        *Coordinator
	id       string
	exercise *types.Exercise
	program  string
	log      *logging.Logger

	inbox    chan sandbox.Event
	done     chan struct{}
	loopDone chan struct{}

	mu      sync.Mutex
	closed  bool
	current *active
	runs    map[int64]*types.GradingRun
	order   []int64
	latest  int64
	waiters map[int64][]chan *types.GradingRun
	subs    map[int]chan types.RunEvent
	nextSub int
}

func newSession(c *Coordinator, exercise *types.Exercise, program string) *Session {
	sid := id.NewSessionID().String()
	s := &Session{
		c:        c,
		id:       sid,
		exercise: exercise,
		program:  program,
		log: c.log.With(
			logging.SessionID(sid),
			logging.Framework(exercise.Framework.String()),
		),
		inbox:    make(chan sandbox.Event, inboxSize),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		runs:     make(map[int64]*types.GradingRun),
		waiters:  make(map[int64][]chan *types.GradingRun),
		subs:     make(map[int]chan types.RunEvent),
	}
	go s.loop()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Exercise returns the exercise being graded
func (s *Session) Exercise() *types.Exercise {
	return s.exercise
}

// Submit discards any in-flight run and starts grading code in a fresh
// host. It returns as soon as the host is loading.
func (s *Session) Submit(ctx context.Context, code string) (int64, error) {
	if err := utils.ValidateSource(code, "code", s.c.cfg.MaxSubmissionBytes); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}
	select {
	case <-s.done:
		return 0, ErrSessionClosed
	default:
	}

	host, err := s.c.deps.Hosts.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire host: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		host.Discard()
		return 0, ErrSessionClosed
	}
	s.supersede()

	run := &types.GradingRun{
		RunID:         s.c.deps.Runs.Next(),
		SessionID:     s.id,
		Exercise:      s.exercise.Key(),
		SubmittedCode: code,
		Status:        types.StatusIdle,
		CreatedAt:     time.Now(),
	}
	cur := &active{run: run, host: host}
	if tracer := s.c.deps.Tracer; tracer != nil {
		cur.span, _ = tracer.StartSpan(ctx, "grading.run")
		cur.span.SetTag("framework", s.exercise.Framework.String())
		cur.span.SetTag("pattern", s.exercise.Pattern)
	}
	s.store(run)
	s.current = cur

	ticket, err := s.c.breakers.Get(s.exercise.Framework.String()).Allow()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrHostCrash, err)
		s.finish(cur, types.StatusCrashed, err)
		return run.RunID, err
	}
	cur.ticket = ticket

	s.transition(cur, types.StatusLoading)
	spec := sandbox.Spec{
		RunID:     run.RunID,
		Framework: s.exercise.Framework,
		Fixture:   s.exercise.Fixture,
		Source:    code,
		Program:   s.program,
	}
	if err := host.Load(spec, s.inbox); err != nil {
		s.finish(cur, types.StatusCrashed, fmt.Errorf("%w: %v", ErrHostCrash, err))
		return run.RunID, nil
	}

	runID := run.RunID
	cur.timer = time.AfterFunc(s.c.cfg.LoadTimeout, func() {
		s.expire(runID, types.StatusLoading)
	})
	s.log.Debug("Run submitted", logging.RunID(runID), zap.Int("bytes", len(code)))
	return runID, nil
}

// Grade submits code and waits for the run to finish
func (s *Session) Grade(ctx context.Context, code string) (*types.GradingRun, error) {
	runID, err := s.Submit(ctx, code)
	if err != nil {
		if runID != 0 {
			if run, lookupErr := s.Run(runID); lookupErr == nil {
				return run, err
			}
		}
		return nil, err
	}
	return s.Wait(ctx, runID)
}

// Wait blocks until runID is terminal or superseded
func (s *Session) Wait(ctx context.Context, runID int64) (*types.GradingRun, error) {
	s.mu.Lock()
	run, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if settled(run) {
		clone := run.Clone()
		s.mu.Unlock()
		return clone, nil
	}
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	ch := make(chan *types.GradingRun, 1)
	s.waiters[runID] = append(s.waiters[runID], ch)
	s.mu.Unlock()

	select {
	case r, ok := <-ch:
		if !ok {
			return nil, ErrSessionClosed
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run returns a snapshot of a recent run
func (s *Session) Run(runID int64) (*types.GradingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return run.Clone(), nil
}

// Latest returns a snapshot of the most recent run
func (s *Session) Latest() (*types.GradingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[s.latest]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run.Clone(), nil
}

// Subscribe streams run transitions. Slow subscribers miss events rather
// than block the session. The channel closes with the session or cancel.
func (s *Session) Subscribe() (<-chan types.RunEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan types.RunEvent, subscriberSize)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[key]; ok {
				delete(s.subs, key)
				close(sub)
			}
		})
	}
}

func settled(run *types.GradingRun) bool {
	return run.Status.Terminal() || run.Discarded
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.done:
			return
		case e := <-s.inbox:
			s.mu.Lock()
			if !s.closed {
				s.handle(e)
			}
			s.mu.Unlock()
		}
	}
}

// handle must be called with s.mu held
func (s *Session) handle(e sandbox.Event) {
	cur := s.current
	if cur == nil || cur.run.RunID != e.RunID {
		if e.Kind == sandbox.EventMessage {
			s.c.dropped("stale", nil, e.RunID)
		}
		return
	}

	switch e.Kind {
	case sandbox.EventReady:
		if cur.run.Status != types.StatusLoading {
			return
		}
		cur.run.LearnerError = e.LearnerError
		cur.timer.Stop()
		s.transition(cur, types.StatusReady)

		runID := cur.run.RunID
		s.transition(cur, types.StatusRunning)
		cur.timer = time.AfterFunc(s.c.cfg.RunTimeout, func() {
			s.expire(runID, types.StatusRunning)
		})
		if err := cur.host.Trigger(runID); err != nil {
			s.finish(cur, types.StatusCrashed, fmt.Errorf("%w: %v", ErrHostCrash, err))
		}

	case sandbox.EventFault:
		s.finish(cur, types.StatusCrashed, fmt.Errorf("%w: %v", ErrHostCrash, e.Err))

	case sandbox.EventMessage:
		if cur.run.Status != types.StatusRunning {
			s.c.dropped("unexpected", nil, e.RunID)
			return
		}
		results, err := protocol.Parse(e.Data, cur.run.RunID, s.exercise.Assertions)
		if err != nil {
			reason := "malformed"
			if errors.Is(err, protocol.ErrStaleMessage) {
				reason = "stale"
			}
			s.c.dropped(reason, err, e.RunID)
			return
		}
		cur.run.Results = results
		s.finish(cur, types.StatusReported, nil)
	}
}

// expire fires from a deadline timer
func (s *Session) expire(runID int64, phase types.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	if s.closed || cur == nil || cur.run.RunID != runID || cur.run.Status != phase {
		return
	}
	s.finish(cur, types.StatusTimedOut, ErrHostTimeout)
}

// transition must be called with s.mu held
func (s *Session) transition(cur *active, status types.RunStatus) {
	cur.run.Status = status
	s.publish(cur.run)
}

// finish moves the current run to a terminal status. Must be called with
// s.mu held.
func (s *Session) finish(cur *active, status types.RunStatus, err error) {
	s.release(cur)
	if cur.ticket != nil {
		cur.ticket.Done(status != types.StatusCrashed)
	}

	run := cur.run
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if err != nil {
		run.Error = err.Error()
	}
	if cur.span != nil {
		cur.span.SetTag("status", string(status))
		if status == types.StatusCrashed {
			cur.span.SetError(err)
		}
		s.c.deps.Tracer.Submit(cur.span)
	}
	if s.current == cur {
		s.current = nil
	}

	s.log.Info("Run finished",
		logging.RunID(run.RunID),
		logging.Status(string(status)),
		logging.Duration(run.Duration()),
		zap.Int("passed", run.Passed()),
		zap.Int("total", len(s.exercise.Assertions)),
	)
	s.publish(run)
	s.wake(run)
	s.c.finished(run.Clone())
}

// supersede discards the in-flight run, if any. Must be called with s.mu
// held.
func (s *Session) supersede() {
	cur := s.current
	if cur == nil {
		return
	}
	s.release(cur)
	cur.ticket.Abandon()

	now := time.Now()
	cur.run.Discarded = true
	cur.run.FinishedAt = &now
	if cur.span != nil {
		cur.span.SetTag("status", "discarded")
		s.c.deps.Tracer.Submit(cur.span)
	}
	s.current = nil

	s.log.Debug("Run superseded", logging.RunID(cur.run.RunID), logging.Status(string(cur.run.Status)))
	s.publish(cur.run)
	s.wake(cur.run)
}

func (s *Session) release(cur *active) {
	if cur.timer != nil {
		cur.timer.Stop()
	}
	if cur.host != nil {
		cur.host.Discard()
	}
}

func (s *Session) store(run *types.GradingRun) {
	s.runs[run.RunID] = run
	s.order = append(s.order, run.RunID)
	s.latest = run.RunID
	for len(s.order) > s.c.cfg.RunsPerSession {
		delete(s.runs, s.order[0])
		delete(s.waiters, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Session) publish(run *types.GradingRun) {
	if len(s.subs) == 0 {
		return
	}
	e := types.RunEvent{
		RunID:     run.RunID,
		SessionID: s.id,
		Status:    run.Status,
		Discarded: run.Discarded,
		Error:     run.Error,
		At:        time.Now(),
	}
	if run.Status == types.StatusReported {
		e.Passed = run.Passed()
		e.Total = len(run.Results)
	}
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Session) wake(run *types.GradingRun) {
	for _, ch := range s.waiters[run.RunID] {
		ch <- run.Clone()
	}
	delete(s.waiters, run.RunID)
}

// close discards the active run and stops the session loop
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.supersede()
	s.closed = true
	for key, ch := range s.subs {
		close(ch)
		delete(s.subs, key)
	}
	for runID, list := range s.waiters {
		for _, ch := range list {
			close(ch)
		}
		delete(s.waiters, runID)
	}
	s.mu.Unlock()

	close(s.done)
	<-s.loopDone
	s.log.Info("Session closed")
}
