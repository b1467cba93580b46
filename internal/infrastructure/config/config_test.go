package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("CONTENT_DIR", "/srv/content")
	t.Setenv("CONTENT_STRICT", "true")
	t.Setenv("GRADING_RUN_TIMEOUT", "500ms")
	t.Setenv("GRADING_POOL_SIZE", "0")
	t.Setenv("SANDBOX_TASK_BUDGET", "25")
	t.Setenv("HISTORY_DB_PATH", "/tmp/history.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "/srv/content", cfg.Content.Dir)
	assert.True(t, cfg.Content.Strict)
	assert.Equal(t, 500*time.Millisecond, cfg.Grading.RunTimeout)
	assert.Equal(t, 0, cfg.Grading.PoolSize)
	assert.Equal(t, 25, cfg.Sandbox.TaskBudget)
	assert.Equal(t, "/tmp/history.db", cfg.History.DBPath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unparseable duration", "GRADING_LOAD_TIMEOUT", "soon"},
		{"zero run timeout", "GRADING_RUN_TIMEOUT", "0s"},
		{"negative pool", "GRADING_POOL_SIZE", "-1"},
		{"zero budget", "SANDBOX_TASK_BUDGET", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("GRADING_RUN_TIMEOUT", "never")
	assert.Equal(t, Default(), LoadOrDefault())
}
