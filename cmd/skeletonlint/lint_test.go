package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContent(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

const cleanExercise = `framework: vanilla
pattern: todo
skeleton: |
  function render(items) {
    // TODO: show only visible items
  }
assertions:
  - name: renders
    predicate: "true"
`

const leakyExercise = `{
  "framework": "react",
  "pattern": "filter",
  "skeleton": "const visible = items.filter(i => i.visible);\n",
  "assertions": [{"name": "filters", "predicate": "true"}]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLintClean(t *testing.T) {
	dir := writeContent(t, map[string]string{"vanilla/todo.yaml": cleanExercise})

	out, err := execute(t, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 checked, 0 skipped, 0 findings")
}

func TestLintFindings(t *testing.T) {
	dir := writeContent(t, map[string]string{
		"vanilla/todo.yaml": cleanExercise,
		"react/filter.json": leakyExercise,
	})

	out, err := execute(t, "--dir", dir)
	assert.ErrorIs(t, err, errFindings)
	assert.Contains(t, out, "react/filter:1: [filter-callback]")
	assert.Contains(t, out, "2 checked, 0 skipped, 1 findings")
}

func TestLintJSON(t *testing.T) {
	dir := writeContent(t, map[string]string{"react/filter.json": leakyExercise})

	out, err := execute(t, "--json", dir)
	assert.ErrorIs(t, err, errFindings)
	assert.Contains(t, out, `"findings": 1`)
	assert.Contains(t, out, `"rule": "filter-callback"`)
}

func TestLintDuplicateContent(t *testing.T) {
	dir := writeContent(t, map[string]string{
		"a.yaml": cleanExercise,
		"b.yaml": cleanExercise,
	})

	_, err := execute(t, dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errFindings)
}

func TestLintStrictMissingDir(t *testing.T) {
	_, err := execute(t, "--strict", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
