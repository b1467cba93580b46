package sandbox

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// element is the DynamicObject behind every node proxy
type element struct {
	d *DOM
	n *html.Node
}

// reflected string attributes: property name -> attribute name
var reflectedAttrs = map[string]string{
	"id":          "id",
	"className":   "class",
	"name":        "name",
	"href":        "href",
	"src":         "src",
	"alt":         "alt",
	"title":       "title",
	"placeholder": "placeholder",
	"htmlFor":     "for",
	"role":        "role",
	"lang":        "lang",
	"action":      "action",
	"method":      "method",
	"min":         "min",
	"max":         "max",
	"step":        "step",
	"pattern":     "pattern",
}

// reflected boolean attributes
var booleanAttrs = map[string]string{
	"disabled":  "disabled",
	"hidden":    "hidden",
	"required":  "required",
	"readOnly":  "readonly",
	"multiple":  "multiple",
	"autofocus": "autofocus",
}

func (e *element) vm() *goja.Runtime { return e.d.vm }

func (e *element) fn(f func(goja.FunctionCall) goja.Value) goja.Value {
	return e.vm().ToValue(f)
}

func (e *element) str(s string) goja.Value { return e.vm().ToValue(s) }

func (e *element) isElement() bool { return e.n.Type == html.ElementNode }

func (e *element) Get(key string) goja.Value {
	d, n := e.d, e.n

	if name, ok := reflectedAttrs[key]; ok && e.isElement() {
		return e.str(attrOr(n, name, ""))
	}
	if name, ok := booleanAttrs[key]; ok && e.isElement() {
		_, on := attr(n, name)
		return e.vm().ToValue(on)
	}

	switch key {
	case "tagName", "nodeName":
		return e.str(tagName(n))
	case "localName":
		return e.str(n.Data)
	case "nodeType":
		return e.vm().ToValue(nodeType(n))
	case "nodeValue", "data":
		if e.isElement() {
			return goja.Null()
		}
		return e.str(n.Data)
	case "type":
		if n.Data == "input" {
			return e.str(strings.ToLower(attrOr(n, "type", "text")))
		}
		if n.Data == "button" {
			return e.str(strings.ToLower(attrOr(n, "type", "submit")))
		}
		return e.str(attrOr(n, "type", ""))
	case "textContent", "innerText":
		return e.str(textContent(n))
	case "innerHTML":
		return e.str(innerHTML(n))
	case "outerHTML":
		return e.str(outerHTML(n))
	case "value":
		return e.str(d.value(n))
	case "checked":
		return e.vm().ToValue(d.checked(n))
	case "selected":
		_, on := attr(n, "selected")
		return e.vm().ToValue(on)
	case "isConnected":
		return e.vm().ToValue(contains(d.root, n))
	case "ownerDocument":
		return d.document
	case "attributes":
		return e.attributes()
	case "classList":
		return e.vm().NewDynamicObject(&classList{e: e})
	case "dataset":
		return e.vm().NewDynamicObject(&dataset{e: e})
	case "style":
		return e.vm().NewDynamicObject(&style{e: e})

	case "parentNode":
		return d.wrap(n.Parent)
	case "parentElement":
		if n.Parent != nil && n.Parent.Type == html.ElementNode {
			return d.wrap(n.Parent)
		}
		return goja.Null()
	case "children":
		return d.wrapAll(elementChildren(n))
	case "childNodes":
		return d.wrapAll(childNodes(n))
	case "childElementCount":
		return e.vm().ToValue(len(elementChildren(n)))
	case "firstChild":
		return d.wrap(n.FirstChild)
	case "lastChild":
		return d.wrap(n.LastChild)
	case "firstElementChild":
		kids := elementChildren(n)
		if len(kids) == 0 {
			return goja.Null()
		}
		return d.wrap(kids[0])
	case "lastElementChild":
		kids := elementChildren(n)
		if len(kids) == 0 {
			return goja.Null()
		}
		return d.wrap(kids[len(kids)-1])
	case "nextSibling":
		return d.wrap(n.NextSibling)
	case "previousSibling":
		return d.wrap(n.PrevSibling)
	case "nextElementSibling":
		return d.wrap(nextElement(n))
	case "previousElementSibling":
		return d.wrap(prevElement(n))
	}

	if m := e.method(key); m != nil {
		return m
	}
	if v, ok := d.stateOf(n).expando[key]; ok {
		return v
	}
	return nil
}

func (e *element) method(key string) goja.Value {
	d, n, vm := e.d, e.n, e.vm()

	switch key {
	case "getAttribute":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			if v, ok := attr(n, strings.ToLower(call.Argument(0).String())); ok {
				return vm.ToValue(v)
			}
			return goja.Null()
		})
	case "setAttribute":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			setAttr(n, call.Argument(0).String(), call.Argument(1).String())
			return goja.Undefined()
		})
	case "removeAttribute":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			removeAttr(n, call.Argument(0).String())
			return goja.Undefined()
		})
	case "hasAttribute":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			_, ok := attr(n, strings.ToLower(call.Argument(0).String()))
			return vm.ToValue(ok)
		})
	case "toggleAttribute":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			name := strings.ToLower(call.Argument(0).String())
			_, on := attr(n, name)
			next := !on
			if force := call.Argument(1); !goja.IsUndefined(force) {
				next = force.ToBoolean()
			}
			setBoolAttr(n, name, next)
			return vm.ToValue(next)
		})

	case "appendChild":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			child := d.mustNode(call.Argument(0), "appendChild")
			e.guardCycle(child)
			detach(child)
			n.AppendChild(child)
			return call.Argument(0)
		})
	case "append":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			for _, arg := range call.Arguments {
				child := e.nodeOrText(arg)
				e.guardCycle(child)
				detach(child)
				n.AppendChild(child)
			}
			return goja.Undefined()
		})
	case "prepend":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			first := n.FirstChild
			for _, arg := range call.Arguments {
				child := e.nodeOrText(arg)
				e.guardCycle(child)
				detach(child)
				n.InsertBefore(child, first)
			}
			return goja.Undefined()
		})
	case "insertBefore":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			child := d.mustNode(call.Argument(0), "insertBefore")
			var ref *html.Node
			if r := call.Argument(1); !goja.IsNull(r) && !goja.IsUndefined(r) {
				ref = d.mustNode(r, "insertBefore")
				if ref.Parent != n {
					d.throw("Error", "insertBefore: reference node is not a child")
				}
			}
			e.guardCycle(child)
			detach(child)
			n.InsertBefore(child, ref)
			return call.Argument(0)
		})
	case "removeChild":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			child := d.mustNode(call.Argument(0), "removeChild")
			if child.Parent != n {
				d.throw("Error", "removeChild: node is not a child of this node")
			}
			n.RemoveChild(child)
			return call.Argument(0)
		})
	case "replaceChild":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			next := d.mustNode(call.Argument(0), "replaceChild")
			old := d.mustNode(call.Argument(1), "replaceChild")
			if old.Parent != n {
				d.throw("Error", "replaceChild: node is not a child of this node")
			}
			e.guardCycle(next)
			detach(next)
			n.InsertBefore(next, old)
			n.RemoveChild(old)
			return call.Argument(1)
		})
	case "replaceChildren":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			clearChildren(n)
			for _, arg := range call.Arguments {
				child := e.nodeOrText(arg)
				detach(child)
				n.AppendChild(child)
			}
			return goja.Undefined()
		})
	case "remove":
		return e.fn(func(goja.FunctionCall) goja.Value {
			detach(n)
			return goja.Undefined()
		})
	case "cloneNode":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			return d.wrap(cloneNode(n, call.Argument(0).ToBoolean()))
		})
	case "contains":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			other, ok := d.unwrap(call.Argument(0))
			return vm.ToValue(ok && contains(n, other))
		})
	case "hasChildNodes":
		return e.fn(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(n.FirstChild != nil)
		})

	case "querySelector":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			return d.querySelector(n, call.Argument(0).String())
		})
	case "querySelectorAll":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			return d.querySelectorAll(n, call.Argument(0).String())
		})
	case "getElementsByTagName":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			return d.byTagName(n, call.Argument(0).String())
		})
	case "getElementsByClassName":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			return d.byClassName(n, call.Argument(0).String())
		})
	case "matches":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(d.selection(n).IsMatcher(d.compile(call.Argument(0).String())))
		})
	case "closest":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			found := d.selection(n).ClosestMatcher(d.compile(call.Argument(0).String()))
			if found.Length() == 0 {
				return goja.Null()
			}
			return d.wrap(found.Get(0))
		})

	case "addEventListener":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			d.stateOf(n).add(call)
			return goja.Undefined()
		})
	case "removeEventListener":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			d.stateOf(n).remove(call)
			return goja.Undefined()
		})
	case "dispatchEvent":
		return e.fn(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(d.dispatch(n, call.Argument(0)))
		})
	case "click":
		return e.fn(func(goja.FunctionCall) goja.Value {
			d.click(n)
			return goja.Undefined()
		})
	case "focus":
		return e.fn(func(goja.FunctionCall) goja.Value {
			d.focus(n)
			return goja.Undefined()
		})
	case "blur":
		return e.fn(func(goja.FunctionCall) goja.Value {
			d.blur(n)
			return goja.Undefined()
		})
	case "getBoundingClientRect":
		return e.fn(func(goja.FunctionCall) goja.Value {
			rect := vm.NewObject()
			for _, k := range []string{"x", "y", "top", "left", "right", "bottom", "width", "height"} {
				_ = rect.Set(k, 0)
			}
			return rect
		})
	case "toString":
		return e.fn(func(goja.FunctionCall) goja.Value {
			return vm.ToValue("[object " + interfaceName(n) + "]")
		})
	}
	return nil
}

func (e *element) Set(key string, val goja.Value) bool {
	d, n := e.d, e.n

	if name, ok := reflectedAttrs[key]; ok && e.isElement() {
		setAttr(n, name, val.String())
		return true
	}
	if name, ok := booleanAttrs[key]; ok && e.isElement() {
		setBoolAttr(n, name, val.ToBoolean())
		return true
	}

	switch key {
	case "textContent", "innerText", "nodeValue", "data":
		s := ""
		if !goja.IsNull(val) && !goja.IsUndefined(val) {
			s = val.String()
		}
		setTextContent(n, s)
		return true
	case "innerHTML":
		if err := setInnerHTML(n, val.String()); err != nil {
			d.throw("SyntaxError", "innerHTML: %v", err)
		}
		return true
	case "value":
		d.setValue(n, val.String())
		return true
	case "checked":
		d.setChecked(n, val.ToBoolean())
		return true
	case "selected":
		setBoolAttr(n, "selected", val.ToBoolean())
		return true
	case "type":
		setAttr(n, "type", val.String())
		return true
	case "style":
		setAttr(n, "style", val.String())
		return true
	case "tagName", "nodeName", "nodeType", "children", "childNodes", "parentNode",
		"parentElement", "classList", "dataset", "attributes", "outerHTML", "isConnected":
		// read-only
		return false
	}

	s := d.stateOf(n)
	if s.expando == nil {
		s.expando = make(map[string]goja.Value)
	}
	s.expando[key] = val
	return true
}

func (e *element) Has(key string) bool {
	return e.Get(key) != nil
}

func (e *element) Delete(key string) bool {
	delete(e.d.stateOf(e.n).expando, key)
	return true
}

func (e *element) Keys() []string {
	expando := e.d.stateOf(e.n).expando
	keys := make([]string, 0, len(expando))
	for k := range expando {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *element) attributes() goja.Value {
	vals := make([]interface{}, len(e.n.Attr))
	for i, a := range e.n.Attr {
		obj := e.vm().NewObject()
		_ = obj.Set("name", a.Key)
		_ = obj.Set("value", a.Val)
		vals[i] = obj
	}
	return e.vm().NewArray(vals...)
}

// nodeOrText accepts a node proxy or coerces anything else to a text node
func (e *element) nodeOrText(v goja.Value) *html.Node {
	if n, ok := e.d.unwrap(v); ok {
		return n
	}
	return &html.Node{Type: html.TextNode, Data: v.String()}
}

func (e *element) guardCycle(child *html.Node) {
	if contains(child, e.n) {
		e.d.throw("Error", "HierarchyRequestError: the new child contains the parent")
	}
	if child.Type == html.DocumentNode {
		e.d.throw("Error", "HierarchyRequestError: cannot insert a document")
	}
}

// Form control state

func (d *DOM) value(n *html.Node) string {
	s := d.stateOf(n)
	if s.value != nil {
		return *s.value
	}
	switch n.DataAtom {
	case atom.Textarea:
		return textContent(n)
	case atom.Select:
		var first *html.Node
		var picked *html.Node
		d.selection(n).Find("option").Each(func(i int, opt *goquery.Selection) {
			if i == 0 {
				first = opt.Get(0)
			}
			if _, ok := opt.Attr("selected"); ok && picked == nil {
				picked = opt.Get(0)
			}
		})
		if picked == nil {
			picked = first
		}
		if picked == nil {
			return ""
		}
		return d.value(picked)
	case atom.Option:
		if v, ok := attr(n, "value"); ok {
			return v
		}
		return strings.TrimSpace(textContent(n))
	case atom.Input:
		if t := attrOr(n, "type", ""); t == "checkbox" || t == "radio" {
			return attrOr(n, "value", "on")
		}
	}
	return attrOr(n, "value", "")
}

func (d *DOM) setValue(n *html.Node, v string) {
	if n.DataAtom == atom.Select {
		d.selection(n).Find("option").Each(func(_ int, opt *goquery.Selection) {
			node := opt.Get(0)
			setBoolAttr(node, "selected", d.value(node) == v)
		})
		return
	}
	d.stateOf(n).value = &v
}

func (d *DOM) checked(n *html.Node) bool {
	if s := d.stateOf(n); s.checked != nil {
		return *s.checked
	}
	_, on := attr(n, "checked")
	return on
}

func (d *DOM) setChecked(n *html.Node, on bool) {
	d.stateOf(n).checked = &on
	if !on || attrOr(n, "type", "") != "radio" {
		return
	}
	name := attrOr(n, "name", "")
	if name == "" {
		return
	}
	scope := n.Parent
	for scope != nil && scope.Parent != nil && scope.Data != "form" {
		scope = scope.Parent
	}
	if scope == nil {
		return
	}
	d.selection(scope).Find("input[type=radio]").Each(func(_ int, s *goquery.Selection) {
		other := s.Get(0)
		if other != n && attrOr(other, "name", "") == name {
			off := false
			d.stateOf(other).checked = &off
		}
	})
}

func interfaceName(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return "Text"
	case html.CommentNode:
		return "Comment"
	}
	if n.Data == "" {
		return "HTMLElement"
	}
	return "HTML" + strings.ToUpper(n.Data[:1]) + n.Data[1:] + "Element"
}
