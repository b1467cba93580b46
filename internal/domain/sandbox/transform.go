package sandbox

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// SourceFile names learner code in diagnostics
const SourceFile = "submission.jsx"

// SyntaxError is a learner source that failed to compile
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("SyntaxError: %s (%s:%d:%d)", e.Message, SourceFile, e.Line, e.Column)
	}
	return "SyntaxError: " + e.Message
}

// Transform compiles learner source to script-compatible ES2017: JSX to
// the framework's factory, ES modules to CommonJS.
func Transform(source string, framework types.FrameworkID) (string, error) {
	jsx, ok := jsxByFramework[framework]
	if !ok {
		jsx = jsxByFramework[types.FrameworkReact]
	}

	result := api.Transform(source, api.TransformOptions{
		Loader:      api.LoaderJSX,
		Format:      api.FormatCommonJS,
		Target:      api.ES2017,
		JSX:         api.JSXTransform,
		JSXFactory:  jsx.Factory,
		JSXFragment: jsx.Fragment,
		Sourcefile:  SourceFile,
		LogLevel:    api.LogLevelSilent,
		Charset:     api.CharsetUTF8,
	})

	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		serr := &SyntaxError{Message: msg.Text}
		if msg.Location != nil {
			serr.Line = msg.Location.Line
			serr.Column = msg.Location.Column + 1
		}
		if extra := len(result.Errors) - 1; extra > 0 {
			serr.Message += fmt.Sprintf(" (and %d more)", extra)
		}
		return "", serr
	}
	return strings.TrimSpace(string(result.Code)) + "\n", nil
}
