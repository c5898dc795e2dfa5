package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moguls753/abtest/internal/statistics"
	"github.com/moguls753/abtest/internal/store"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, store.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "abtest.db", filepath.Base(cfg.Store.DSN))
	assert.Equal(t, store.DefaultSettings(), cfg.Defaults)
	assert.Equal(t, statistics.DefaultAnalysis(), cfg.Analysis.Base())
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
store:
  backend: postgres
  dsn: host=db user=abtest
defaults:
  language: rus
  alpha: 0.01
analysis:
  delta: 0.02
simulation:
  trials: 200
  timeout: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output, "unset keys keep their defaults")
	assert.Equal(t, store.BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "host=db user=abtest", cfg.Store.DSN)
	assert.Equal(t, store.Settings{Language: "rus", Alpha: 0.01, Epsilon: 0.9}, cfg.Defaults)
	assert.Equal(t, 0.02, cfg.Analysis.Base().Delta)
	assert.Equal(t, statistics.UniformPrior, cfg.Analysis.Base().Prior)
	assert.Equal(t, 200, cfg.Simulation.Trials)
	assert.Equal(t, 4, cfg.Simulation.Workers)
	assert.Equal(t, 30*time.Second, cfg.Simulation.Timeout)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ABTEST_STORE_BACKEND", "redis")
	t.Setenv("ABTEST_REDIS_ADDR", "cache:6379")
	t.Setenv("ABTEST_SESSION", "ops")

	cfg, err := Load(writeConfig(t, "store:\n  backend: memory\n"))
	require.NoError(t, err)
	assert.Equal(t, store.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "ops", cfg.Session)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "store:\n  backend: mongo\n"},
		{"alpha out of range", "defaults:\n  alpha: 1.5\n"},
		{"unknown language", "defaults:\n  language: deu\n"},
		{"negative delta", "analysis:\n  delta: -0.1\n"},
		{"zero prior", "analysis:\n  prior_beta: 0\n"},
		{"bad log level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeConfig(t, "store: [not, a, map]\n"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestLoad_DefaultPathMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Store.Backend = store.BackendMemory
	cfg.Analysis.Delta = 0.05
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
