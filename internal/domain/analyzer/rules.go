package analyzer

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one implementation-shape pattern
type Rule struct {
	ID      string
	Methods []string
	pattern *regexp.Regexp
}

// inlineCallback matches the start of an inline function argument:
// function expressions, parenthesized arrow params, or a bare arrow param.
const inlineCallback = `\s*\(\s*(?:async\s+)?(?:function\b|\(\s*[^()]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`

// NewRule builds a rule matching `.method(<inline callback>` for any of the
// given method names
func NewRule(id string, methods ...string) Rule {
	quoted := make([]string, len(methods))
	for i, m := range methods {
		quoted[i] = regexp.QuoteMeta(m)
	}
	expr := fmt.Sprintf(`\.(?:%s)%s`, strings.Join(quoted, "|"), inlineCallback)
	return Rule{
		ID:      id,
		Methods: methods,
		pattern: regexp.MustCompile(expr),
	}
}

// DefaultRules returns the fixed family of leak rules
func DefaultRules() []Rule {
	return []Rule{
		NewRule("filter-callback", "filter"),
		NewRule("map-callback", "map"),
		NewRule("reduce-callback", "reduce", "reduceRight"),
		NewRule("find-callback", "find", "findIndex", "findLast", "findLastIndex"),
		NewRule("sort-comparator", "sort", "toSorted"),
		NewRule("foreach-callback", "forEach"),
		NewRule("predicate-callback", "some", "every"),
		NewRule("flatmap-callback", "flatMap"),
	}
}

// match returns the rule whose pattern matches earliest in text.
// Ties go to the rule listed first.
func match(rules []Rule, text string) (Rule, bool) {
	best := -1
	var found Rule
	for _, r := range rules {
		loc := r.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
			found = r
		}
	}
	return found, best != -1
}

var (
	// declaration captures the value expression of const/let/var NAME = value.
	// NAME may be an identifier or a flat array/object destructuring.
	declaration = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(?:[A-Za-z_$][\w$]*|\[[^\]]*\]|\{[^}]*\})\s*(?::\s*[^=]+)?=\s*(.*)$`)

	// functionValue matches function and arrow-function initializers
	functionValue = regexp.MustCompile(`^(?:async\s+)?(?:function\b|\(\s*[^()]*\)\s*(?::\s*[^=]+)?=>|[A-Za-z_$][\w$]*\s*=>)`)

	// stateConstructor matches hook and reactive-state constructor calls
	stateConstructor = regexp.MustCompile(`^(?:await\s+)?(?:[A-Za-z_$][\w$]*\.)?(?:use[A-Z][\w$]*|ref|reactive|computed|watch|watchEffect|shallowRef|shallowReactive|readonly|toRef|toRefs|signal|createSignal|createMemo|createEffect|createStore|writable|readable|derived|effect)\s*(?:<[^>]*>)?\s*\(`)

	// moduleSource matches `{ a, b } = Module` and `= require('mod')`
	moduleSource = regexp.MustCompile(`^(?:[A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*|require\(\s*['"][^'"]+['"]\s*\)|await\s+import\(\s*['"][^'"]+['"]\s*\))\s*;?$`)
	objectBinding = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\{[^}]*\})`)

	// placeholder matches marker comments left for the learner
	placeholder = regexp.MustCompile(`(?i)(?://|/\*)\s*(?:todo\b|fixme\b|your code|implement|\.\.\.|…)`)

	// templateStart matches a bare return, return ( or return {
	templateStart = regexp.MustCompile(`^\s*return\s*(?:\(|\{|;?\s*$)`)
)
