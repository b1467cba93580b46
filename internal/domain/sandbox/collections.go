package sandbox

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// classList is a live DOMTokenList over the class attribute
type classList struct {
	e *element
}

func (c *classList) tokens() []string { return classNames(c.e.n) }

func (c *classList) write(tokens []string) {
	setAttr(c.e.n, "class", strings.Join(tokens, " "))
}

func (c *classList) has(name string) bool {
	for _, t := range c.tokens() {
		if t == name {
			return true
		}
	}
	return false
}

func (c *classList) add(names ...string) {
	tokens := c.tokens()
	for _, name := range names {
		if !c.hasIn(tokens, name) {
			tokens = append(tokens, name)
		}
	}
	c.write(tokens)
}

func (c *classList) hasIn(tokens []string, name string) bool {
	for _, t := range tokens {
		if t == name {
			return true
		}
	}
	return false
}

func (c *classList) remove(names ...string) {
	var out []string
	for _, t := range c.tokens() {
		if !c.hasIn(names, t) {
			out = append(out, t)
		}
	}
	c.write(out)
}

func args(call goja.FunctionCall) []string {
	out := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		out[i] = a.String()
	}
	return out
}

func (c *classList) Get(key string) goja.Value {
	vm := c.e.vm()
	if i, err := strconv.Atoi(key); err == nil {
		tokens := c.tokens()
		if i >= 0 && i < len(tokens) {
			return vm.ToValue(tokens[i])
		}
		return goja.Undefined()
	}

	switch key {
	case "length":
		return vm.ToValue(len(c.tokens()))
	case "value":
		return vm.ToValue(attrOr(c.e.n, "class", ""))
	case "add":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			c.add(args(call)...)
			return goja.Undefined()
		})
	case "remove":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			c.remove(args(call)...)
			return goja.Undefined()
		})
	case "contains":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(c.has(call.Argument(0).String()))
		})
	case "toggle":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			name := call.Argument(0).String()
			on := !c.has(name)
			if force := call.Argument(1); !goja.IsUndefined(force) {
				on = force.ToBoolean()
			}
			if on {
				c.add(name)
			} else {
				c.remove(name)
			}
			return vm.ToValue(on)
		})
	case "replace":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			old, next := call.Argument(0).String(), call.Argument(1).String()
			tokens := c.tokens()
			for i, t := range tokens {
				if t == old {
					tokens[i] = next
					c.write(tokens)
					return vm.ToValue(true)
				}
			}
			return vm.ToValue(false)
		})
	case "item":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			tokens := c.tokens()
			i := int(call.Argument(0).ToInteger())
			if i < 0 || i >= len(tokens) {
				return goja.Null()
			}
			return vm.ToValue(tokens[i])
		})
	case "toString":
		return vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(attrOr(c.e.n, "class", ""))
		})
	}
	return nil
}

func (c *classList) Set(key string, val goja.Value) bool {
	if key == "value" {
		setAttr(c.e.n, "class", val.String())
		return true
	}
	return false
}

func (c *classList) Has(key string) bool { return c.Get(key) != nil }
func (c *classList) Delete(string) bool  { return false }

func (c *classList) Keys() []string {
	n := len(c.tokens())
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// dataset maps camelCase keys onto data-* attributes
type dataset struct {
	e *element
}

func (ds *dataset) Get(key string) goja.Value {
	if v, ok := attr(ds.e.n, "data-"+camelToKebab(key)); ok {
		return ds.e.vm().ToValue(v)
	}
	return nil
}

func (ds *dataset) Set(key string, val goja.Value) bool {
	setAttr(ds.e.n, "data-"+camelToKebab(key), val.String())
	return true
}

func (ds *dataset) Has(key string) bool {
	_, ok := attr(ds.e.n, "data-"+camelToKebab(key))
	return ok
}

func (ds *dataset) Delete(key string) bool {
	removeAttr(ds.e.n, "data-"+camelToKebab(key))
	return true
}

func (ds *dataset) Keys() []string {
	var keys []string
	for _, a := range ds.e.n.Attr {
		if strings.HasPrefix(a.Key, "data-") {
			keys = append(keys, kebabToCamel(strings.TrimPrefix(a.Key, "data-")))
		}
	}
	return keys
}

// style is a CSSStyleDeclaration over the inline style attribute
type style struct {
	e *element
}

type declaration struct {
	prop, val string
}

func (s *style) parse() []declaration {
	var out []declaration
	for _, part := range strings.Split(attrOr(s.e.n, "style", ""), ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "" {
			continue
		}
		out = append(out, declaration{prop: prop, val: strings.TrimSpace(val)})
	}
	return out
}

func (s *style) write(decls []declaration) {
	if len(decls) == 0 {
		removeAttr(s.e.n, "style")
		return
	}
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.prop + ": " + d.val + ";"
	}
	setAttr(s.e.n, "style", strings.Join(parts, " "))
}

func (s *style) lookup(prop string) string {
	for _, d := range s.parse() {
		if d.prop == prop {
			return d.val
		}
	}
	return ""
}

func (s *style) put(prop, val string) {
	decls := s.parse()
	for i, d := range decls {
		if d.prop == prop {
			if val == "" {
				s.write(append(decls[:i], decls[i+1:]...))
				return
			}
			decls[i].val = val
			s.write(decls)
			return
		}
	}
	if val != "" {
		s.write(append(decls, declaration{prop: prop, val: val}))
	}
}

func cssProperty(key string) string {
	if strings.HasPrefix(key, "--") {
		return key
	}
	if key == "cssFloat" {
		return "float"
	}
	return camelToKebab(key)
}

func (s *style) Get(key string) goja.Value {
	vm := s.e.vm()
	switch key {
	case "cssText":
		return vm.ToValue(attrOr(s.e.n, "style", ""))
	case "length":
		return vm.ToValue(len(s.parse()))
	case "getPropertyValue":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(s.lookup(strings.ToLower(call.Argument(0).String())))
		})
	case "setProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			s.put(strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
			return goja.Undefined()
		})
	case "removeProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			prop := strings.ToLower(call.Argument(0).String())
			old := s.lookup(prop)
			s.put(prop, "")
			return vm.ToValue(old)
		})
	}
	return vm.ToValue(s.lookup(cssProperty(key)))
}

func (s *style) Set(key string, val goja.Value) bool {
	if key == "cssText" {
		setAttr(s.e.n, "style", val.String())
		return true
	}
	v := ""
	if !goja.IsNull(val) && !goja.IsUndefined(val) {
		v = val.String()
	}
	s.put(cssProperty(key), v)
	return true
}

func (s *style) Has(key string) bool { return s.lookup(cssProperty(key)) != "" }

func (s *style) Delete(key string) bool {
	s.put(cssProperty(key), "")
	return true
}

func (s *style) Keys() []string {
	var keys []string
	for _, d := range s.parse() {
		keys = append(keys, kebabToCamel(d.prop))
	}
	sort.Strings(keys)
	return keys
}
