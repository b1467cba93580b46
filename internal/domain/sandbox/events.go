package sandbox

import (
	"golang.org/x/net/html"

	"github.com/dop251/goja"
)

const (
	phaseCapturing = 1
	phaseAtTarget  = 2
	phaseBubbling  = 3
)

type listener struct {
	ref     goja.Value
	fn      goja.Callable
	this    goja.Value
	capture bool
	once    bool
	removed bool
}

// target holds event listeners for a node, the document or the window
type target struct {
	listeners map[string][]*listener
}

func listenerOptions(v goja.Value) (capture, once bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false, false
	}
	if obj, ok := v.(*goja.Object); ok {
		return obj.Get("capture") != nil && obj.Get("capture").ToBoolean(),
			obj.Get("once") != nil && obj.Get("once").ToBoolean()
	}
	return v.ToBoolean(), false
}

func (t *target) add(call goja.FunctionCall) {
	typ := call.Argument(0).String()
	ref := call.Argument(1)
	fn, this := resolveHandler(ref)
	if fn == nil {
		return
	}
	capture, once := listenerOptions(call.Argument(2))
	for _, l := range t.listeners[typ] {
		if l.ref.SameAs(ref) && l.capture == capture {
			return
		}
	}
	if t.listeners == nil {
		t.listeners = make(map[string][]*listener)
	}
	t.listeners[typ] = append(t.listeners[typ], &listener{
		ref: ref, fn: fn, this: this, capture: capture, once: once,
	})
}

func (t *target) remove(call goja.FunctionCall) {
	typ := call.Argument(0).String()
	ref := call.Argument(1)
	capture, _ := listenerOptions(call.Argument(2))
	list := t.listeners[typ]
	for i, l := range list {
		if l.ref.SameAs(ref) && l.capture == capture {
			l.removed = true
			t.listeners[typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// resolveHandler accepts a function or an object with handleEvent
func resolveHandler(v goja.Value) (goja.Callable, goja.Value) {
	if fn, ok := goja.AssertFunction(v); ok {
		return fn, nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if fn, ok := goja.AssertFunction(obj.Get("handleEvent")); ok {
			return fn, obj
		}
	}
	return nil, nil
}

type hop struct {
	t       *target
	node    *html.Node
	current goja.Value
}

// path lists targets from the event target up to the window
func (d *DOM) path(n *html.Node) []hop {
	var out []hop
	for c := n; c != nil; c = c.Parent {
		out = append(out, hop{t: &d.stateOf(c).target, node: c, current: d.wrap(c)})
	}
	if contains(d.root, n) {
		out = append(out, hop{t: d.window, current: d.vm.GlobalObject()})
	}
	return out
}

func flag(obj *goja.Object, name string) bool {
	v := obj.Get(name)
	return v != nil && v.ToBoolean()
}

// dispatch runs capture, target and bubble phases for evt at n and
// reports whether the default action may proceed
func (d *DOM) dispatch(n *html.Node, v goja.Value) bool {
	evt, ok := v.(*goja.Object)
	if !ok || evt.Get("type") == nil {
		panic(d.vm.NewTypeError("dispatchEvent: argument is not an Event"))
	}
	typ := evt.Get("type").String()
	bubbles := flag(evt, "bubbles")
	path := d.path(n)
	tgt := d.wrap(n)

	_ = evt.Set("target", tgt)
	_ = evt.Set("srcElement", tgt)

	stopped := func() bool { return flag(evt, "cancelBubble") }

	for i := len(path) - 1; i > 0 && !stopped(); i-- {
		d.invoke(path[i], typ, evt, phaseCapturing)
	}
	if !stopped() {
		d.invoke(path[0], typ, evt, phaseAtTarget)
	}
	if bubbles {
		for i := 1; i < len(path) && !stopped(); i++ {
			d.invoke(path[i], typ, evt, phaseBubbling)
		}
	}

	_ = evt.Set("currentTarget", goja.Null())
	_ = evt.Set("eventPhase", 0)
	return !flag(evt, "defaultPrevented")
}

func (d *DOM) invoke(h hop, typ string, evt *goja.Object, phase int) {
	_ = evt.Set("currentTarget", h.current)
	_ = evt.Set("eventPhase", phase)

	list := append([]*listener(nil), h.t.listeners[typ]...)
	for _, l := range list {
		if l.removed {
			continue
		}
		if phase == phaseCapturing && !l.capture || phase == phaseBubbling && l.capture {
			continue
		}
		if l.once {
			l.removed = true
			d.dropListener(h.t, typ, l)
		}
		this := l.this
		if this == nil {
			this = h.current
		}
		d.callback(l.fn, this, evt)
		if flag(evt, "__immediateStopped") {
			return
		}
	}

	// on<type> handler properties
	if h.node != nil && phase != phaseCapturing {
		if handler, ok := d.stateOf(h.node).expando["on"+typ]; ok {
			if fn, ok := goja.AssertFunction(handler); ok {
				d.callback(fn, h.current, evt)
			}
		}
	}
}

func (d *DOM) dropListener(t *target, typ string, drop *listener) {
	list := t.listeners[typ]
	for i, l := range list {
		if l == drop {
			t.listeners[typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// callback invokes learner code; a throw is reported and does not stop
// the dispatch
func (d *DOM) callback(fn goja.Callable, this goja.Value, args ...goja.Value) {
	if _, err := fn(this, args...); err != nil {
		d.report(err)
	}
}

// newEvent constructs an event through the realm's own constructors
func (d *DOM) newEvent(ctor, typ string, bubbles, cancelable bool) *goja.Object {
	init := d.vm.NewObject()
	_ = init.Set("bubbles", bubbles)
	_ = init.Set("cancelable", cancelable)
	c := d.vm.Get(ctor)
	if c == nil || goja.IsUndefined(c) {
		c = d.vm.Get("Event")
	}
	evt, err := d.vm.New(c, d.vm.ToValue(typ), init)
	if err != nil {
		panic(err)
	}
	return evt
}

func (d *DOM) fire(n *html.Node, ctor, typ string, bubbles, cancelable bool) bool {
	return d.dispatch(n, d.newEvent(ctor, typ, bubbles, cancelable))
}

// click toggles checkable inputs and dispatches click, input and change
func (d *DOM) click(n *html.Node) {
	if n.Type == html.ElementNode {
		if _, disabled := attr(n, "disabled"); disabled {
			return
		}
	}

	checkable := n.Data == "input" && (attrOr(n, "type", "") == "checkbox" || attrOr(n, "type", "") == "radio")
	var before bool
	if checkable {
		before = d.checked(n)
		if attrOr(n, "type", "") == "radio" {
			d.setChecked(n, true)
		} else {
			d.setChecked(n, !before)
		}
	}

	proceed := d.fire(n, "MouseEvent", "click", true, true)

	if checkable {
		if !proceed {
			d.setChecked(n, before)
			return
		}
		if d.checked(n) != before {
			d.fire(n, "Event", "input", true, false)
			d.fire(n, "Event", "change", true, false)
		}
		return
	}

	if proceed && n.Data == "button" && attrOr(n, "type", "submit") == "submit" {
		for p := n.Parent; p != nil; p = p.Parent {
			if p.Type == html.ElementNode && p.Data == "form" {
				d.fire(p, "Event", "submit", true, true)
				break
			}
		}
	}
}

func (d *DOM) focus(n *html.Node) {
	if d.active == n {
		return
	}
	if prev := d.active; prev != nil {
		d.active = nil
		d.fire(prev, "FocusEvent", "blur", false, false)
		d.fire(prev, "FocusEvent", "focusout", true, false)
	}
	d.active = n
	d.fire(n, "FocusEvent", "focus", false, false)
	d.fire(n, "FocusEvent", "focusin", true, false)
}

func (d *DOM) blur(n *html.Node) {
	if d.active != n {
		return
	}
	d.active = nil
	d.fire(n, "FocusEvent", "blur", false, false)
	d.fire(n, "FocusEvent", "focusout", true, false)
}
