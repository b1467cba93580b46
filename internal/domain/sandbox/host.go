package sandbox

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
)

// Host is one isolated execution realm. A goroutine started by Load owns
// the goja runtime; other goroutines only send triggers and interrupt.
// A host serves exactly one run and is never reused.
type Host struct {
	cfg Config
	log *logging.Logger

	vm         *goja.Runtime
	clock      *clock
	dom        *DOM
	module     *goja.Object
	modules    map[string]goja.Value
	controller *goja.Object
	stringify  goja.Callable

	runID  int64
	outbox chan<- Event
	cmds   chan int64

	loaded      atomic.Bool
	done        chan struct{}
	exited      chan struct{}
	discardOnce sync.Once

	learnerErr atomic.Value // string
	consoleMu  sync.Mutex
	console    []LogEntry
}

// NewHost creates a realm with the framework-independent environment
// installed. It does not start executing until Load.
func NewHost(cfg Config, log *logging.Logger) (*Host, error) {
	if log == nil {
		log = logging.Nop()
	}
	vm := goja.New()
	if cfg.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(cfg.MaxCallStack)
	}
	if cfg.TaskBudget <= 0 {
		cfg.TaskBudget = DefaultConfig().TaskBudget
	}

	h := &Host{
		cfg:    cfg,
		log:    log,
		vm:     vm,
		clock:  newClock(),
		cmds:   make(chan int64, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	if err := h.installEnvironment(); err != nil {
		return nil, &LoadError{Phase: PhaseEnvironment, Err: err}
	}
	return h, nil
}

// Load starts the realm goroutine for spec. Progress is reported to
// outbox: EventReady once the first event-loop turn finishes, or
// EventFault if the realm cannot reach READY.
func (h *Host) Load(spec Spec, outbox chan<- Event) error {
	select {
	case <-h.done:
		return ErrHostDiscarded
	default:
	}
	if !h.loaded.CompareAndSwap(false, true) {
		return ErrHostBusy
	}
	h.runID = spec.RunID
	h.outbox = outbox
	h.log = h.log.With(logging.RunID(spec.RunID), logging.Framework(spec.Framework.String()))

	go h.loop(spec)
	return nil
}

// Trigger asks a READY realm to evaluate its assertions for runID
func (h *Host) Trigger(runID int64) error {
	select {
	case <-h.done:
		return ErrHostDiscarded
	default:
	}
	select {
	case h.cmds <- runID:
		return nil
	case <-h.done:
		return ErrHostDiscarded
	}
}

// Discard interrupts whatever the realm is running and stops it. It is
// safe to call more than once and from any goroutine.
func (h *Host) Discard() {
	h.discardOnce.Do(func() {
		close(h.done)
		h.vm.Interrupt(ErrHostDiscarded)
		if h.loaded.CompareAndSwap(false, true) {
			close(h.exited)
		}
	})
}

// Done is closed once the realm goroutine has exited
func (h *Host) Done() <-chan struct{} {
	return h.exited
}

// RunID returns the run the host was loaded for
func (h *Host) RunID() int64 {
	return h.runID
}

// LearnerError returns the first error raised by learner code, if any
func (h *Host) LearnerError() string {
	if v, ok := h.learnerErr.Load().(string); ok {
		return v
	}
	return ""
}

// Console returns captured console output
func (h *Host) Console() []LogEntry {
	h.consoleMu.Lock()
	defer h.consoleMu.Unlock()
	return append([]LogEntry(nil), h.console...)
}

func (h *Host) discarded() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func isInterrupted(err error) bool {
	var ie *goja.InterruptedError
	return errors.As(err, &ie)
}

func (h *Host) emit(e Event) {
	e.RunID = h.runID
	select {
	case h.outbox <- e:
	case <-h.done:
	}
}

func (h *Host) fault(phase string, err error) {
	h.log.Warn("Realm fault", zap.String("phase", phase), zap.Error(err))
	h.emit(Event{Kind: EventFault, Err: &LoadError{Phase: phase, Err: err}})
}

func (h *Host) loop(spec Spec) {
	defer close(h.exited)
	defer func() {
		r := recover()
		if r == nil || h.discarded() {
			return
		}
		if err, ok := r.(error); ok && isInterrupted(err) {
			return
		}
		h.fault(PhaseRuntime, fmt.Errorf("host panic: %v", r))
	}()

	if err := h.load(spec); err != nil {
		if h.discarded() || isInterrupted(err) {
			return
		}
		var le *LoadError
		if errors.As(err, &le) {
			h.fault(le.Phase, le.Err)
			return
		}
		h.fault(PhaseRuntime, err)
		return
	}
	h.emit(Event{Kind: EventReady, LearnerError: h.LearnerError()})

	for {
		select {
		case <-h.done:
			return
		case runID := <-h.cmds:
			if err := h.trigger(runID); err != nil {
				if h.discarded() || isInterrupted(err) {
					return
				}
				h.fault(PhaseTrigger, err)
				return
			}
		}
	}
}

// recordLearnerError keeps the first learner-side error
func (h *Host) recordLearnerError(err error) {
	msg := describe(err)
	h.learnerErr.CompareAndSwap(nil, msg)
	h.log.Debug("Learner code error", zap.String("error", msg))
}

func (h *Host) load(spec Spec) error {
	root, err := ParseFixture(spec.Fixture)
	if err != nil {
		return &LoadError{Phase: PhaseEnvironment, Err: err}
	}
	h.dom = newDOM(h.vm, root, h.recordLearnerError)
	if err := h.dom.install(); err != nil {
		return &LoadError{Phase: PhaseEnvironment, Err: err}
	}

	if err := h.loadBootstrap(spec); err != nil {
		return err
	}

	if err := h.installChannel(); err != nil {
		return &LoadError{Phase: PhaseEnvironment, Err: err}
	}
	if _, err := h.vm.RunScript("assessment.js", spec.Program); err != nil {
		if isInterrupted(err) {
			return err
		}
		return &LoadError{Phase: PhaseProgram, Err: err}
	}
	if _, ok := goja.AssertFunction(h.vm.Get(compiler.TriggerBinding)); !ok {
		return &LoadError{Phase: PhaseProgram, Err: ErrTriggerMissing}
	}

	if err := h.runLearner(spec); err != nil {
		return err
	}

	h.settle()
	return nil
}

func (h *Host) loadBootstrap(spec Spec) error {
	src, err := Bootstrap(spec.Framework)
	if err != nil {
		return &LoadError{Phase: PhaseBootstrap, Err: err}
	}
	v, err := h.vm.RunScript("bootstrap.js", src)
	if err != nil {
		return &LoadError{Phase: PhaseBootstrap, Err: err}
	}
	controller, ok := v.(*goja.Object)
	if !ok {
		return &LoadError{Phase: PhaseBootstrap, Err: errors.New("bootstrap returned no controller")}
	}
	h.controller = controller

	if modules, ok := controller.Get("modules").(*goja.Object); ok {
		for _, name := range modules.Keys() {
			h.modules[name] = modules.Get(name)
		}
	}
	return nil
}

// runLearner evaluates the submission and mounts its default export.
// Learner failures are recorded, not returned; only an interrupt aborts.
func (h *Host) runLearner(spec Spec) error {
	code, err := Transform(spec.Source, spec.Framework)
	if err != nil {
		h.recordLearnerError(err)
		return nil
	}
	if _, err := h.vm.RunScript(SourceFile, code); err != nil {
		if isInterrupted(err) {
			return err
		}
		h.recordLearnerError(err)
	}

	mount, ok := goja.AssertFunction(h.controller.Get("mount"))
	if !ok {
		return nil
	}
	if _, err := mount(h.controller, h.module.Get("exports"), h.dom.wrap(h.dom.MountPoint())); err != nil {
		if isInterrupted(err) {
			return err
		}
		h.recordLearnerError(err)
	}
	return nil
}

func (h *Host) trigger(runID int64) error {
	run, ok := goja.AssertFunction(h.vm.Get(compiler.TriggerBinding))
	if !ok {
		return ErrTriggerMissing
	}
	if _, err := run(goja.Undefined(), h.vm.ToValue(runID)); err != nil {
		return err
	}
	h.settle()
	return nil
}
