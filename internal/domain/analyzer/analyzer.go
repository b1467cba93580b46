package analyzer

import (
	"strings"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// MaxLookahead is how many following lines are joined to an unterminated
// candidate before it is re-tested
const MaxLookahead = 4

// Scanner finds implementation leaks in skeleton source
type Scanner interface {
	Analyze(source string) []types.LeakFinding
}

type mode int

const (
	modeNormal mode = iota
	modeSkippedBlock
	modeTemplate
)

// Analyzer is the line-heuristic Scanner
type Analyzer struct {
	rules        []Rule
	maxLookahead int
}

// New creates an analyzer with the default rule family
func New() *Analyzer {
	return NewWithRules(DefaultRules())
}

// NewWithRules creates an analyzer with a custom rule family
func NewWithRules(rules []Rule) *Analyzer {
	return &Analyzer{rules: rules, maxLookahead: MaxLookahead}
}

var defaultAnalyzer = New()

// Analyze scans source with the default analyzer
func Analyze(source string) []types.LeakFinding {
	return defaultAnalyzer.Analyze(source)
}

// Rules returns the analyzer's rule family
func (a *Analyzer) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	copy(out, a.rules)
	return out
}

// Analyze returns findings in ascending line order. It never fails; an
// empty source yields no findings.
func (a *Analyzer) Analyze(source string) []types.LeakFinding {
	findings := []types.LeakFinding{}
	if source == "" {
		return findings
	}

	lines := splitLines(source)
	state := modeNormal
	depth := 0

	for i, line := range lines {
		switch state {
		case modeTemplate:
			return findings

		case modeSkippedBlock:
			depth += braceDelta(line)
			if depth <= 0 {
				depth = 0
				state = modeNormal
			}
			continue
		}

		if templateStart.MatchString(stripComment(line)) {
			state = modeTemplate
			continue
		}

		m := declaration.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if placeholder.MatchString(line) {
			continue
		}

		value := strings.TrimSpace(stripComment(m[1]))
		if functionValue.MatchString(value) {
			continue
		}
		if stateConstructor.MatchString(value) {
			if delta := braceDelta(line); delta > 0 {
				state = modeSkippedBlock
				depth = delta
			}
			continue
		}
		if objectBinding.MatchString(line) && moduleSource.MatchString(value) {
			continue
		}

		if rule, ok := a.test(lines, i); ok {
			findings = append(findings, types.LeakFinding{
				LineNumber: i + 1,
				Content:    strings.TrimSpace(line),
				RuleID:     rule.ID,
			})
		}
	}

	return findings
}

// test checks the candidate at lines[i], joining following lines once if
// the candidate is unterminated
func (a *Analyzer) test(lines []string, i int) (Rule, bool) {
	code := codeOnly(lines[i])
	if rule, ok := match(a.rules, code); ok {
		return rule, true
	}
	if terminated(lines[i]) {
		return Rule{}, false
	}

	var b strings.Builder
	b.WriteString(code)
	for j := i + 1; j < len(lines) && j <= i+a.maxLookahead; j++ {
		b.WriteByte(' ')
		b.WriteString(strings.TrimSpace(codeOnly(lines[j])))
		if terminated(lines[j]) {
			break
		}
	}
	return match(a.rules, b.String())
}

func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// terminated reports whether the line ends in a semicolon, ignoring a
// trailing line comment
func terminated(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(codeOnly(line)), ";")
}
