package sandbox

import (
	"sort"
	"time"

	"github.com/dop251/goja"
)

// minInterval keeps zero-delay intervals from monopolizing a turn
const minInterval = time.Millisecond

type task struct {
	id       int64
	due      time.Duration
	interval time.Duration
	fn       goja.Callable
	args     []goja.Value
}

// clock is a virtual-time timer queue. Nothing waits on wall time: each
// event-loop turn advances the clock by the settle window and runs what
// fell due, up to the task budget.
type clock struct {
	now    time.Duration
	nextID int64
	tasks  map[int64]*task
}

func newClock() *clock {
	return &clock{tasks: make(map[int64]*task)}
}

func (c *clock) schedule(fn goja.Callable, delay time.Duration, repeat bool, args []goja.Value) int64 {
	if delay < 0 {
		delay = 0
	}
	c.nextID++
	t := &task{id: c.nextID, due: c.now + delay, fn: fn, args: args}
	if repeat {
		t.interval = delay
		if t.interval < minInterval {
			t.interval = minInterval
		}
	}
	c.tasks[t.id] = t
	return t.id
}

func (c *clock) cancel(id int64) {
	delete(c.tasks, id)
}

func (c *clock) pending() int {
	return len(c.tasks)
}

// next returns the earliest task due at or before deadline
func (c *clock) next(deadline time.Duration) *task {
	var due []*task
	for _, t := range c.tasks {
		if t.due <= deadline {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	return due[0]
}

// turn runs due tasks within window and returns how many ran
func (c *clock) turn(window time.Duration, budget int, run func(*task)) int {
	deadline := c.now + window
	ran := 0
	for ran < budget {
		t := c.next(deadline)
		if t == nil {
			break
		}
		if t.due > c.now {
			c.now = t.due
		}
		if t.interval > 0 {
			t.due = c.now + t.interval
		} else {
			delete(c.tasks, t.id)
		}
		ran++
		run(t)
	}
	if ran < budget && c.now < deadline {
		c.now = deadline
	}
	return ran
}

func (h *Host) installTimers() error {
	vm := h.vm
	delay := func(v goja.Value) time.Duration {
		if v == nil || goja.IsUndefined(v) {
			return 0
		}
		return time.Duration(v.ToFloat() * float64(time.Millisecond))
	}
	add := func(repeat bool) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(0))
			if !ok {
				return vm.ToValue(0)
			}
			var rest []goja.Value
			if len(call.Arguments) > 2 {
				rest = append(rest, call.Arguments[2:]...)
			}
			return vm.ToValue(h.clock.schedule(fn, delay(call.Argument(1)), repeat, rest))
		}
	}
	cancel := func(call goja.FunctionCall) goja.Value {
		h.clock.cancel(call.Argument(0).ToInteger())
		return goja.Undefined()
	}

	bindings := map[string]interface{}{
		"setTimeout":    add(false),
		"setInterval":   add(true),
		"clearTimeout":  cancel,
		"clearInterval": cancel,
		"requestAnimationFrame": func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(0))
			if !ok {
				return vm.ToValue(0)
			}
			return vm.ToValue(h.clock.schedule(fn, 16*time.Millisecond, false, []goja.Value{vm.ToValue(0)}))
		},
		"cancelAnimationFrame": cancel,
	}
	for name, v := range bindings {
		if err := vm.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// settle runs one event-loop turn. Promise jobs drain after every
// callback, since each is a top-level call.
func (h *Host) settle() int {
	return h.clock.turn(h.cfg.SettleWindow, h.cfg.TaskBudget, func(t *task) {
		if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
			h.dom.report(err)
		}
	})
}
