package sandbox

import (
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
)

// maxConsoleEntries bounds captured console output per host
const maxConsoleEntries = 200

// installEnvironment sets up the framework-independent globals
func (h *Host) installEnvironment() error {
	vm := h.vm
	global := vm.GlobalObject()

	// Node-style escape hatches never exist in the realm
	for _, name := range []string{"process", "require", "module", "exports", "global"} {
		_ = global.Delete(name)
	}

	steps := []func() error{
		h.installConsole,
		h.installTimers,
		h.installStorage,
		h.installModules,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	prelude, err := Prelude()
	if err != nil {
		return err
	}
	if _, err := vm.RunScript("prelude.js", prelude); err != nil {
		return err
	}

	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if ok {
		h.stringify = stringify
	}
	return nil
}

func (h *Host) installConsole() error {
	console := h.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug", "trace"} {
		if err := console.Set(level, h.consoleFunc(level)); err != nil {
			return err
		}
	}
	return h.vm.Set("console", console)
}

func (h *Host) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = h.format(arg)
		}
		msg := strings.Join(parts, " ")

		h.consoleMu.Lock()
		if len(h.console) < maxConsoleEntries {
			h.console = append(h.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		}
		h.consoleMu.Unlock()

		h.log.Debug("console",
			logging.RunID(h.runID),
			zap.String("level", level),
			zap.String("message", msg),
		)
		return goja.Undefined()
	}
}

// format renders a console argument the way browsers roughly do
func (h *Host) format(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	obj, ok := v.(*goja.Object)
	if !ok || h.stringify == nil {
		return v.String()
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return v.String()
	}
	if _, isNode := obj.Export().(*element); isNode {
		return v.String()
	}
	if obj.Get("stack") != nil && obj.Get("message") != nil {
		return v.String()
	}
	out, err := h.stringify(goja.Undefined(), v)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return v.String()
	}
	return out.String()
}

// storage is an in-memory localStorage
type storage struct {
	vm    *goja.Runtime
	items map[string]string
}

func (s *storage) sortedKeys() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *storage) Get(key string) goja.Value {
	vm := s.vm
	switch key {
	case "length":
		return vm.ToValue(len(s.items))
	case "getItem":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if v, ok := s.items[call.Argument(0).String()]; ok {
				return vm.ToValue(v)
			}
			return goja.Null()
		})
	case "setItem":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			s.items[call.Argument(0).String()] = call.Argument(1).String()
			return goja.Undefined()
		})
	case "removeItem":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			delete(s.items, call.Argument(0).String())
			return goja.Undefined()
		})
	case "clear":
		return vm.ToValue(func(goja.FunctionCall) goja.Value {
			s.items = make(map[string]string)
			return goja.Undefined()
		})
	case "key":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			keys := s.sortedKeys()
			i := int(call.Argument(0).ToInteger())
			if i < 0 || i >= len(keys) {
				return goja.Null()
			}
			return vm.ToValue(keys[i])
		})
	}
	if v, ok := s.items[key]; ok {
		return vm.ToValue(v)
	}
	return nil
}

func (s *storage) Set(key string, val goja.Value) bool {
	s.items[key] = val.String()
	return true
}

func (s *storage) Has(key string) bool {
	_, ok := s.items[key]
	return ok
}

func (s *storage) Delete(key string) bool {
	delete(s.items, key)
	return true
}

func (s *storage) Keys() []string { return s.sortedKeys() }

func (h *Host) installStorage() error {
	for _, name := range []string{"localStorage", "sessionStorage"} {
		obj := h.vm.NewDynamicObject(&storage{vm: h.vm, items: make(map[string]string)})
		if err := h.vm.Set(name, obj); err != nil {
			return err
		}
	}
	return nil
}

// installModules binds a whitelisted require plus CommonJS module/exports
func (h *Host) installModules() error {
	vm := h.vm
	h.modules = make(map[string]goja.Value)

	err := vm.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if m, ok := h.modules[name]; ok {
			return m
		}
		panic(vm.NewGoError(&ModuleError{Name: name}))
	})
	if err != nil {
		return err
	}

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return err
	}
	h.module = module
	if err := vm.Set("module", module); err != nil {
		return err
	}
	return vm.Set("exports", exports)
}

// ModuleError is a require of a module outside the whitelist
type ModuleError struct {
	Name string
}

func (e *ModuleError) Error() string {
	return "Cannot find module '" + e.Name + "'"
}

// installChannel binds the one-way message channel to the coordinator
func (h *Host) installChannel() error {
	channel := h.vm.NewObject()
	err := channel.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		data := call.Argument(0).String()
		h.emit(Event{Kind: EventMessage, Data: []byte(data)})
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	return h.vm.Set(compiler.ChannelBinding, channel)
}

func describeValue(v goja.Value) string {
	if v == nil {
		return ""
	}
	if obj, ok := v.(*goja.Object); ok {
		name := obj.Get("name")
		msg := obj.Get("message")
		if msg != nil && !goja.IsUndefined(msg) {
			if name != nil && !goja.IsUndefined(name) && name.String() != "" {
				return name.String() + ": " + msg.String()
			}
			return msg.String()
		}
	}
	return v.String()
}

// describe renders an error from the realm without a stack trace
func describe(err error) string {
	switch e := err.(type) {
	case *goja.Exception:
		return describeValue(e.Value())
	case *goja.CompilerSyntaxError:
		return "SyntaxError: " + e.Message
	}
	return err.Error()
}
