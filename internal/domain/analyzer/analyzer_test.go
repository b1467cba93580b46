package analyzer

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

var update = flag.Bool("update", false, "rewrite golden files")

func render(findings []types.LeakFinding) string {
	var b strings.Builder
	for _, f := range findings {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func TestGolden(t *testing.T) {
	sources, err := filepath.Glob(filepath.Join("testdata", "*.src"))
	require.NoError(t, err)
	require.NotEmpty(t, sources)

	for _, src := range sources {
		name := strings.TrimSuffix(filepath.Base(src), ".src")
		t.Run(name, func(t *testing.T) {
			input, err := os.ReadFile(src)
			require.NoError(t, err)

			got := render(Analyze(string(input)))
			golden := strings.TrimSuffix(src, ".src") + ".golden"

			if *update {
				require.NoError(t, os.WriteFile(golden, []byte(got), 0o644))
			}

			want, err := os.ReadFile(golden)
			require.NoError(t, err)
			assert.Equal(t, string(want), got)
		})
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []types.LeakFinding
	}{
		{
			name:   "filter leak",
			source: "const filtered = items.filter(x => x.active);",
			want: []types.LeakFinding{
				{LineNumber: 1, Content: "const filtered = items.filter(x => x.active);", RuleID: "filter-callback"},
			},
		},
		{
			name:   "hook destructuring exempt",
			source: "const [state, setState] = useState(false);",
			want:   []types.LeakFinding{},
		},
		{
			name:   "generic hook exempt",
			source: "const [name, setName] = useState<string>('');",
			want:   []types.LeakFinding{},
		},
		{
			name:   "module destructuring exempt",
			source: "const { ref, computed } = require('vue');",
			want:   []types.LeakFinding{},
		},
		{
			name:   "arrow declaration exempt",
			source: "const pick = (xs) => xs.filter(x => x.ok);",
			want:   []types.LeakFinding{},
		},
		{
			name:   "function expression exempt",
			source: "const pick = function (xs) { return xs.map(x => x); };",
			want:   []types.LeakFinding{},
		},
		{
			name:   "placeholder marker exempt",
			source: "const done = items.every(i => i.done); /* TODO */",
			want:   []types.LeakFinding{},
		},
		{
			name:   "plain value not flagged",
			source: "let count = 0;\nvar names = [];\nconst el = document.querySelector('#app');",
			want:   []types.LeakFinding{},
		},
		{
			name:   "method reference is not an inline callback",
			source: "const upper = names.map(toUpper);",
			want:   []types.LeakFinding{},
		},
		{
			name:   "export prefix",
			source: "export const first = items.find(function (i) { return i.id === 1; });",
			want: []types.LeakFinding{
				{LineNumber: 1, Content: "export const first = items.find(function (i) { return i.id === 1; });", RuleID: "find-callback"},
			},
		},
		{
			name:   "earliest rule wins",
			source: "const ids = items.filter(i => i.ok).map(i => i.id);",
			want: []types.LeakFinding{
				{LineNumber: 1, Content: "const ids = items.filter(i => i.ok).map(i => i.id);", RuleID: "filter-callback"},
			},
		},
		{
			name:   "async callback",
			source: "const all = urls.flatMap(async (u) => fetch(u));",
			want: []types.LeakFinding{
				{LineNumber: 1, Content: "const all = urls.flatMap(async (u) => fetch(u));", RuleID: "flatmap-callback"},
			},
		},
		{
			name:   "crlf line endings",
			source: "let a = 1;\r\nconst b = xs.forEach(x => log(x));\r\n",
			want: []types.LeakFinding{
				{LineNumber: 2, Content: "const b = xs.forEach(x => log(x));", RuleID: "foreach-callback"},
			},
		},
		{
			name:   "bare effect and lifecycle bodies are scanned",
			source: "useEffect(() => {\n  const saved = todos.filter(t => t.done);\n}, [todos]);\nonMounted(() => {\n  const ids = items.map(i => i.id);\n});",
			want: []types.LeakFinding{
				{LineNumber: 2, Content: "const saved = todos.filter(t => t.done);", RuleID: "filter-callback"},
				{LineNumber: 5, Content: "const ids = items.map(i => i.id);", RuleID: "map-callback"},
			},
		},
		{
			name:   "bare return before a line comment starts the template",
			source: "return; // done\nconst late = items.filter(x => x);",
			want:   []types.LeakFinding{},
		},
		{
			name:   "empty source",
			source: "",
			want:   []types.LeakFinding{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.source))
		})
	}
}

func TestAnalyzeCommentSuppression(t *testing.T) {
	sources := []string{
		"// const x = items.filter(i => i);",
		"   // let y = items.map(i => i);",
		"const label = 1; // items.reduce((a, b) => a + b)",
		"const s = 'items.some(i => i)';",
		"/* const z = items.sort((a, b) => a - b); */",
	}
	for _, src := range sources {
		assert.Empty(t, Analyze(src), src)
	}
}

func TestAnalyzeBraceCorrectness(t *testing.T) {
	t.Run("balanced trigger does not skip the next line", func(t *testing.T) {
		src := "const total = computed(() => { return 1; });\nconst doubled = xs.map(n => n * 2);"
		findings := Analyze(src)
		require.Len(t, findings, 1)
		assert.Equal(t, 2, findings[0].LineNumber)
	})

	t.Run("braces inside strings are ignored", func(t *testing.T) {
		src := strings.Join([]string{
			"const state = reactive({",
			"  open: '{',",
			"});",
			"const picked = xs.find(x => x.open);",
		}, "\n")
		findings := Analyze(src)
		require.Len(t, findings, 1)
		assert.Equal(t, 4, findings[0].LineNumber)
	})

	t.Run("nested braces stay skipped until balanced", func(t *testing.T) {
		src := strings.Join([]string{
			"const value = useMemo(() => {",
			"  if (ready) {",
			"    const a = xs.map(x => x);",
			"  }",
			"  const b = xs.filter(x => x);",
			"}, [xs]);",
			"const c = xs.some(x => x);",
		}, "\n")
		findings := Analyze(src)
		require.Len(t, findings, 1)
		assert.Equal(t, 7, findings[0].LineNumber)
		assert.Equal(t, "predicate-callback", findings[0].RuleID)
	})

	t.Run("unclosed block runs to end of source", func(t *testing.T) {
		src := "const v = useMemo(() => {\nconst a = xs.map(x => x);"
		assert.Empty(t, Analyze(src))
	})
}

func TestAnalyzeLookahead(t *testing.T) {
	t.Run("joined within bound", func(t *testing.T) {
		src := strings.Join([]string{
			"const result = items",
			"  .a()",
			"  .b()",
			"  .c()",
			"  .filter(x => x);",
		}, "\n")
		findings := Analyze(src)
		require.Len(t, findings, 1)
		assert.Equal(t, 1, findings[0].LineNumber)
		assert.Equal(t, "const result = items", findings[0].Content)
	})

	t.Run("beyond bound", func(t *testing.T) {
		src := strings.Join([]string{
			"const result = items",
			"  .a()",
			"  .b()",
			"  .c()",
			"  .d()",
			"  .filter(x => x);",
		}, "\n")
		assert.Empty(t, Analyze(src))
	})

	t.Run("stops at terminator", func(t *testing.T) {
		src := "const n = items\n  .length;\nconst y = z.filter(q => q);"
		findings := Analyze(src)
		require.Len(t, findings, 1)
		assert.Equal(t, 3, findings[0].LineNumber)
	})

	t.Run("arguments split across lines", func(t *testing.T) {
		src := "const sum = items.reduce(\n  (acc, x) => acc + x,\n  0\n);"
		findings := Analyze(src)
		require.Len(t, findings, 1)
		assert.Equal(t, "reduce-callback", findings[0].RuleID)
	})
}

func TestAnalyzeTemplateRegion(t *testing.T) {
	for _, ret := range []string{"return (", "return {", "return", "  return;"} {
		t.Run(ret, func(t *testing.T) {
			src := ret + "\nconst x = xs.map(v => v);"
			assert.Empty(t, Analyze(src))
		})
	}

	t.Run("return with value does not enter", func(t *testing.T) {
		src := "return total;\nconst x = xs.map(v => v);"
		assert.Len(t, Analyze(src), 1)
	})
}

func TestAnalyzeIdempotent(t *testing.T) {
	input, err := os.ReadFile(filepath.Join("testdata", "hooks_exempt.src"))
	require.NoError(t, err)

	first := Analyze(string(input))
	second := Analyze(string(input))
	assert.Equal(t, first, second)
}

func TestAnalyzeNeverPanics(t *testing.T) {
	inputs := []string{
		`const x = "unterminated`,
		`const y = /* open comment`,
		`\`,
		`const z = "\`,
		"}}}}}}",
		"{{{{{{",
		"const = ;",
		"const [ = xs.map(",
		"\x00\xff\xfe",
		strings.Repeat("const a = b\n", 200),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Analyze(in) })
	}
}

func TestScannerInterface(t *testing.T) {
	var s Scanner = New()
	assert.Empty(t, s.Analyze("let x = 1;"))

	custom := NewWithRules([]Rule{NewRule("push-callback", "push")})
	findings := custom.Analyze("const n = xs.push(x => x);")
	require.Len(t, findings, 1)
	assert.Equal(t, "push-callback", findings[0].RuleID)
	assert.Len(t, custom.Rules(), 1)
}

func TestDefaultRuleIDsStable(t *testing.T) {
	var ids []string
	for _, r := range DefaultRules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{
		"filter-callback",
		"map-callback",
		"reduce-callback",
		"find-callback",
		"sort-comparator",
		"foreach-callback",
		"predicate-callback",
		"flatmap-callback",
	}, ids)
}
