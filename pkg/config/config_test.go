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

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5, cfg.Database.TxMaxRetries)
	assert.Equal(t, 4*time.Hour, cfg.Rules.EvaluationWindow)
	assert.True(t, cfg.Rules.CacheEnabled)
	assert.Empty(t, cfg.Rules.GraphPalette)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("RULES_EVALUATION_WINDOW", "90m")
	t.Setenv("RULES_GRAPH_PALETTE", "#111, #222 ,")
	t.Setenv("DB_TX_MAX_RETRIES", "9")
	t.Setenv("RULES_CACHE_TTL", "not-a-duration")
	t.Setenv("DB_AUTO_MIGRATE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Rules.EvaluationWindow)
	assert.Equal(t, []string{"#111", "#222"}, cfg.Rules.GraphPalette)
	assert.Equal(t, 9, cfg.Database.TxMaxRetries)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 30*time.Minute, cfg.Rules.CacheTTL, "invalid durations fall back")
}
