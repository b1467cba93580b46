package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/config"
)

const content = `
framework: vanilla
pattern: todo
title: Todo list
skeleton: |
  // Render the list into #root
assertions:
  - name: renders
    predicate: document.querySelector("#root") !== null
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "todo.yaml"), []byte(content), 0o644))

	cfg := config.Default()
	cfg.Content.Dir = dir
	cfg.Grading.PoolSize = 1
	cfg.RateLimit.Enabled = false
	cfg.Logging.Level = "error"
	return cfg
}

func TestNewServerServesContent(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.DBPath = filepath.Join(t.TempDir(), "history.db")

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, srv.Close()) }()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/exercises/vanilla/todo", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Todo list"`)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `patternlab_registry_exercises{framework="vanilla"} 1`)
	assert.Contains(t, w.Body.String(), "patternlab_sandbox_hosts_available")
}

func TestNewServerStrictContent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Content.Dir = filepath.Join(t.TempDir(), "missing")
	cfg.Content.Strict = true

	_, err := NewServer(cfg)
	assert.Error(t, err)
}
