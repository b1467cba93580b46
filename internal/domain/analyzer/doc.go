// Package analyzer guards the authoring contract for skeleton (starter) code.
//
// A skeleton is the scaffolded source a learner completes. It must declare
// state and wiring but never ship the working logic. The analyzer scans a
// skeleton and reports lines that leak implementation, such as a
// declaration whose value is computed by filter/map/reduce with an inline
// callback.
//
// # Heuristic, not a parser
//
// The scan is a single forward pass over lines with three modes:
//
//   - normal: declaration lines (const/let/var NAME = ...) are leak candidates
//   - skipped block: the brace-delimited body opened by a declaration whose
//     value is a hook or state constructor (const v = computed(() => {) is
//     not checked; braces are counted per character until they balance.
//     Bare statements such as useEffect(() => { are scanned normally.
//   - template region: after the first bare return, return ( or return {
//     (a trailing line comment ignored) nothing else in the file is checked
//
// Candidates without a statement terminator are joined with up to four
// following lines and re-tested once, which approximates multi-line
// statements. The template-region rule produces false negatives when logic
// follows an early return in a nested helper; this is accepted behavior.
//
// Anything satisfying Scanner can replace the heuristic (for example an
// AST-based scanner) without touching callers.
//
// # Usage
//
//	findings := analyzer.Analyze(skeleton)
//	for _, f := range findings {
//		fmt.Println(f)
//	}
package analyzer
