package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultFixture is the page used when an exercise has none
const DefaultFixture = `<!DOCTYPE html><html><head></head><body><div id="root"></div></body></html>`

// DOM is a document for one realm, built from an exercise fixture.
// It is only touched from the realm's goroutine.
type DOM struct {
	vm     *goja.Runtime
	root   *html.Node
	head   *html.Node
	body   *html.Node
	active *html.Node

	state    map[*html.Node]*nodeState
	proxies  map[*html.Node]*goja.Object
	document *goja.Object
	window   *target

	onError func(error)
}

// nodeState is per-node data the markup does not carry
type nodeState struct {
	target
	expando map[string]goja.Value
	value   *string
	checked *bool
}

// ParseFixture builds the document tree for a fixture
func ParseFixture(fixture string) (*html.Node, error) {
	if strings.TrimSpace(fixture) == "" {
		fixture = DefaultFixture
	}
	root, err := html.Parse(strings.NewReader(fixture))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return root, nil
}

func newDOM(vm *goja.Runtime, root *html.Node, onError func(error)) *DOM {
	d := &DOM{
		vm:      vm,
		root:    root,
		head:    findElement(root, atom.Head),
		body:    findElement(root, atom.Body),
		state:   make(map[*html.Node]*nodeState),
		proxies: make(map[*html.Node]*goja.Object),
		window:  &target{},
		onError: onError,
	}
	if d.body == nil {
		d.body = root
	}
	return d
}

// MountPoint returns the node a default export renders into
func (d *DOM) MountPoint() *html.Node {
	for _, id := range []string{"root", "app"} {
		if n := findByID(d.root, id); n != nil {
			return n
		}
	}
	return d.body
}

// HTML renders the current document
func (d *DOM) HTML() string {
	return outerHTML(d.root)
}

func (d *DOM) stateOf(n *html.Node) *nodeState {
	s, ok := d.state[n]
	if !ok {
		s = &nodeState{}
		d.state[n] = s
	}
	return s
}

// wrap returns the identity-preserving proxy for n
func (d *DOM) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if n.Type == html.DocumentNode {
		return d.document
	}
	if obj, ok := d.proxies[n]; ok {
		return obj
	}
	obj := d.vm.NewDynamicObject(&element{d: d, n: n})
	d.proxies[n] = obj
	return obj
}

func (d *DOM) wrapAll(nodes []*html.Node) goja.Value {
	vals := make([]interface{}, len(nodes))
	for i, n := range nodes {
		vals[i] = d.wrap(n)
	}
	return d.vm.NewArray(vals...)
}

// unwrap resolves a JS value to the node behind it
func (d *DOM) unwrap(v goja.Value) (*html.Node, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	if obj == d.document {
		return d.root, true
	}
	if el, ok := obj.Export().(*element); ok && el.d == d {
		return el.n, true
	}
	return nil, false
}

func (d *DOM) mustNode(v goja.Value, method string) *html.Node {
	n, ok := d.unwrap(v)
	if !ok {
		panic(d.vm.NewTypeError(method + ": argument is not a Node"))
	}
	return n
}

func (d *DOM) throw(name, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	ctor := d.vm.Get(name)
	if ctor == nil || goja.IsUndefined(ctor) {
		panic(d.vm.NewTypeError(msg))
	}
	obj, err := d.vm.New(ctor, d.vm.ToValue(msg))
	if err != nil {
		panic(d.vm.NewTypeError(msg))
	}
	panic(obj)
}

func (d *DOM) compile(selector string) cascadia.Selector {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		d.throw("SyntaxError", "'%s' is not a valid selector", selector)
	}
	return sel
}

func (d *DOM) selection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

func (d *DOM) querySelector(scope *html.Node, selector string) goja.Value {
	found := d.selection(scope).FindMatcher(d.compile(selector)).First()
	if found.Length() == 0 {
		return goja.Null()
	}
	return d.wrap(found.Get(0))
}

func (d *DOM) querySelectorAll(scope *html.Node, selector string) goja.Value {
	return d.wrapAll(d.selection(scope).FindMatcher(d.compile(selector)).Nodes)
}

func (d *DOM) byTagName(scope *html.Node, tag string) goja.Value {
	tag = strings.ToLower(tag)
	found := d.selection(scope).Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return tag == "*" || goquery.NodeName(s) == tag
	})
	return d.wrapAll(found.Nodes)
}

func (d *DOM) byClassName(scope *html.Node, names string) goja.Value {
	want := strings.Fields(names)
	found := d.selection(scope).Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if len(want) == 0 {
			return false
		}
		for _, c := range want {
			if !s.HasClass(c) {
				return false
			}
		}
		return true
	})
	return d.wrapAll(found.Nodes)
}

// xpath evaluates an XPath expression over the whole document
func (d *DOM) xpath(expr string) goja.Value {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		d.throw("SyntaxError", "'%s' is not a valid XPath expression", expr)
	}
	return d.wrapAll(nodes)
}

func (d *DOM) createElement(tag string) goja.Value {
	tag = strings.ToLower(tag)
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	return d.wrap(n)
}

func (d *DOM) createTextNode(text string) goja.Value {
	return d.wrap(&html.Node{Type: html.TextNode, Data: text})
}

func (d *DOM) activeElement() goja.Value {
	if d.active != nil && contains(d.root, d.active) {
		return d.wrap(d.active)
	}
	return d.wrap(d.body)
}

// report forwards a learner-side error raised inside a callback
func (d *DOM) report(err error) {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}
	if d.onError != nil {
		d.onError(err)
	}
}

// install binds document, window and $x into the realm
func (d *DOM) install() error {
	vm := d.vm
	doc := vm.NewObject()
	d.document = doc

	methods := map[string]func(goja.FunctionCall) goja.Value{
		"getElementById": func(call goja.FunctionCall) goja.Value {
			return d.wrap(findByID(d.root, call.Argument(0).String()))
		},
		"querySelector": func(call goja.FunctionCall) goja.Value {
			return d.querySelector(d.root, call.Argument(0).String())
		},
		"querySelectorAll": func(call goja.FunctionCall) goja.Value {
			return d.querySelectorAll(d.root, call.Argument(0).String())
		},
		"getElementsByTagName": func(call goja.FunctionCall) goja.Value {
			return d.byTagName(d.root, call.Argument(0).String())
		},
		"getElementsByClassName": func(call goja.FunctionCall) goja.Value {
			return d.byClassName(d.root, call.Argument(0).String())
		},
		"createElement": func(call goja.FunctionCall) goja.Value {
			return d.createElement(call.Argument(0).String())
		},
		"createTextNode": func(call goja.FunctionCall) goja.Value {
			return d.createTextNode(call.Argument(0).String())
		},
		"addEventListener": func(call goja.FunctionCall) goja.Value {
			d.stateOf(d.root).add(call)
			return goja.Undefined()
		},
		"removeEventListener": func(call goja.FunctionCall) goja.Value {
			d.stateOf(d.root).remove(call)
			return goja.Undefined()
		},
		"dispatchEvent": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(d.dispatch(d.root, call.Argument(0)))
		},
	}
	for name, fn := range methods {
		if err := doc.Set(name, fn); err != nil {
			return err
		}
	}

	getters := map[string]func() goja.Value{
		"body":            func() goja.Value { return d.wrap(d.body) },
		"head":            func() goja.Value { return d.wrap(d.head) },
		"documentElement": func() goja.Value { return d.wrap(findElement(d.root, atom.Html)) },
		"activeElement":   d.activeElement,
		"title": func() goja.Value {
			if t := findElement(d.root, atom.Title); t != nil {
				return vm.ToValue(textContent(t))
			}
			return vm.ToValue("")
		},
		"nodeType": func() goja.Value { return vm.ToValue(9) },
	}
	for name, get := range getters {
		get := get
		err := doc.DefineAccessorProperty(name, vm.ToValue(func(goja.FunctionCall) goja.Value {
			return get()
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
		if err != nil {
			return err
		}
	}

	global := vm.GlobalObject()
	bindings := map[string]interface{}{
		"document": doc,
		"window":   global,
		"self":     global,
		"$x": func(call goja.FunctionCall) goja.Value {
			return d.xpath(call.Argument(0).String())
		},
		"addEventListener": func(call goja.FunctionCall) goja.Value {
			d.window.add(call)
			return goja.Undefined()
		},
		"removeEventListener": func(call goja.FunctionCall) goja.Value {
			d.window.remove(call)
			return goja.Undefined()
		},
	}
	for name, v := range bindings {
		if err := global.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}
