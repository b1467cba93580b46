package sandbox

import (
	"embed"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

//go:embed bootstrap/*.js
var bootstrapFS embed.FS

// jsxConfig is the JSX factory pair learner code compiles against
type jsxConfig struct {
	Factory  string
	Fragment string
}

var jsxByFramework = map[types.FrameworkID]jsxConfig{
	types.FrameworkVanilla: {Factory: "React.createElement", Fragment: "React.Fragment"},
	types.FrameworkReact:   {Factory: "React.createElement", Fragment: "React.Fragment"},
	types.FrameworkVue:     {Factory: "Vue.h", Fragment: "Vue.Fragment"},
}

func readBootstrap(name string) (string, error) {
	data, err := bootstrapFS.ReadFile("bootstrap/" + name + ".js")
	if err != nil {
		return "", fmt.Errorf("bootstrap %s: %w", name, err)
	}
	return string(data), nil
}

// Prelude returns the framework-independent environment script
func Prelude() (string, error) {
	return readBootstrap("prelude")
}

// Bootstrap returns the framework script. Evaluating it yields a
// controller object with modules, mounted() and mount(exports, el).
func Bootstrap(framework types.FrameworkID) (string, error) {
	if !framework.Valid() {
		return "", fmt.Errorf("no bootstrap for framework %q", framework)
	}
	body, err := readBootstrap(framework.String())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("(function (global) {\n")
	if framework != types.FrameworkVanilla {
		shared, err := readBootstrap("render")
		if err != nil {
			return "", err
		}
		b.WriteString(shared)
		b.WriteString("\n")
	}
	b.WriteString(body)
	b.WriteString("\n})(this);\n")
	return b.String(), nil
}
