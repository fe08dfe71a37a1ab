package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betagouv/aides-simplifiees-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "aides.db", cfg.DB)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 512, cfg.Conditions.CacheSize)
	assert.True(t, cfg.Compiler.LegacyFallback)
	assert.False(t, cfg.Compiler.FailFast)
	assert.NotEmpty(t, cfg.CORS.Origins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: a YAML file and an environment override
	// THEN: the environment wins over the file, the file over defaults

	path := filepath.Join(t.TempDir(), "aides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
log:
  level: debug
  format: json
compiler:
  fail_fast: true
`), 0o600))
	t.Setenv("AIDES_PORT", "7070")
	t.Setenv("AIDES_CONDITIONS_STRICT", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Compiler.FailFast)
	assert.True(t, cfg.Conditions.Strict)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("AIDES_LOG_LEVEL", "chatty")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "chatty")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	config.NewLoggerTo(&buf, "warn", "json").Info("hidden")
	assert.Empty(t, buf.String())

	config.NewLoggerTo(&buf, "warn", "json").Warn("shown", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
