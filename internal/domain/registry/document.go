package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// document is the on-disk exercise format. A file holds one exercise, or a
// list under "exercises" whose entries inherit a top-level framework.
type document struct {
	Framework    string      `json:"framework" yaml:"framework" toml:"framework"`
	Pattern      string      `json:"pattern" yaml:"pattern" toml:"pattern"`
	Title        string      `json:"title" yaml:"title" toml:"title"`
	Description  string      `json:"description" yaml:"description" toml:"description"`
	Fixture      string      `json:"fixture" yaml:"fixture" toml:"fixture"`
	Skeleton     string      `json:"skeleton" yaml:"skeleton" toml:"skeleton"`
	SkeletonFile string      `json:"skeleton_file" yaml:"skeleton_file" toml:"skeleton_file"`
	Assertions   []assertion `json:"assertions" yaml:"assertions" toml:"assertions"`
	Exercises    []document  `json:"exercises" yaml:"exercises" toml:"exercises"`
}

type assertion struct {
	Name      string `json:"name" yaml:"name" toml:"name"`
	Predicate string `json:"predicate" yaml:"predicate" toml:"predicate"`
}

// Format is a content file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks a format from a file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported content format %q", filepath.Ext(path))
}

func decode(data []byte, format Format) (*document, error) {
	var doc document
	var err error
	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		err = fmt.Errorf("unsupported content format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Parse decodes content into exercises. baseDir resolves skeleton_file
// references; pass "" to disallow them.
func Parse(data []byte, format Format, baseDir string) ([]*types.Exercise, error) {
	doc, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExercise, err)
	}
	return doc.exercises(baseDir)
}

func (d *document) exercises(baseDir string) ([]*types.Exercise, error) {
	if len(d.Exercises) == 0 {
		e, err := d.exercise(baseDir)
		if err != nil {
			return nil, err
		}
		return []*types.Exercise{e}, nil
	}

	out := make([]*types.Exercise, 0, len(d.Exercises))
	for i := range d.Exercises {
		child := d.Exercises[i]
		if child.Framework == "" {
			child.Framework = d.Framework
		}
		if child.Fixture == "" {
			child.Fixture = d.Fixture
		}
		e, err := child.exercise(baseDir)
		if err != nil {
			return nil, fmt.Errorf("exercise %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *document) exercise(baseDir string) (*types.Exercise, error) {
	skeleton := d.Skeleton
	if d.SkeletonFile != "" {
		if baseDir == "" {
			return nil, fmt.Errorf("%w: skeleton_file not allowed here", ErrInvalidExercise)
		}
		path := filepath.Join(baseDir, filepath.FromSlash(d.SkeletonFile))
		rel, err := filepath.Rel(baseDir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("%w: skeleton_file escapes content directory", ErrInvalidExercise)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read skeleton: %w", err)
		}
		skeleton = string(data)
	}

	e := &types.Exercise{
		Framework:      types.FrameworkID(strings.ToLower(strings.TrimSpace(d.Framework))),
		Pattern:        strings.TrimSpace(d.Pattern),
		Title:          d.Title,
		Description:    d.Description,
		Fixture:        d.Fixture,
		SkeletonSource: skeleton,
		Assertions:     make([]types.Assertion, len(d.Assertions)),
	}
	for i, a := range d.Assertions {
		e.Assertions[i] = types.Assertion{Index: i, Name: a.Name, PredicateSource: a.Predicate}
	}
	return e, nil
}
