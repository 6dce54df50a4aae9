package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrepeneur4lyf/repairforge/internal/llm"
	"github.com/entrepeneur4lyf/repairforge/internal/telemetry"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, err := Load(nil, "", false)
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, llm.DefaultGuideModel, cfg.Gemini.GuideModel)
	assert.Equal(t, llm.DefaultLiveModel, cfg.Gemini.LiveModel)
	assert.Equal(t, 5, cfg.Live.FPS)
	assert.Equal(t, 0, cfg.Live.MaxReconnects)
	assert.Equal(t, 500*time.Millisecond, cfg.Draft.Delay)
	assert.Equal(t, telemetry.DefaultConfig(), cfg.Telemetry)
	assert.False(t, cfg.Telemetry.Enabled())
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
}

func TestLoadDebugForcesLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPAIRFORGE_LOG_LEVEL", "warn")

	cfg, err := Load(nil, "", true)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "repairforge.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: ":9000"
live:
  fps: 10
  max_reconnects: 3
gemini:
  chat_model: custom-chat
`), 0644))
	t.Setenv("REPAIRFORGE_GEMINI_GUIDE_MODEL", "env-guide")
	t.Setenv("GEMINI_API_KEY", "from-fallback")

	cfg, err := Load(nil, "", false)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Live.FPS)
	assert.Equal(t, 3, cfg.Live.MaxReconnects)
	assert.Equal(t, "custom-chat", cfg.Gemini.ChatModel)
	assert.Equal(t, "env-guide", cfg.Gemini.GuideModel)
	assert.Equal(t, "from-fallback", cfg.Gemini.APIKey)
	assert.NoError(t, cfg.RequireAPIKey())

	opts := cfg.LLMOptions()
	assert.Equal(t, "from-fallback", opts.APIKey)
	assert.Equal(t, "env-guide", opts.GuideModel)
}

func TestLoadPrefixedKeyWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPAIRFORGE_GEMINI_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "fallback")

	cfg, err := Load(nil, "", false)
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Gemini.APIKey)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load(nil, "", false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"fps zero", func(c *Config) { c.Live.FPS = 0 }},
		{"fps too high", func(c *Config) { c.Live.FPS = 31 }},
		{"negative reconnects", func(c *Config) { c.Live.MaxReconnects = -1 }},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"unknown trace exporter", func(c *Config) { c.Telemetry.Exporter = "carrier-pigeon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}

func TestLoadTelemetryFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPAIRFORGE_TELEMETRY_EXPORTER", "otlp")
	t.Setenv("REPAIRFORGE_TELEMETRY_ENDPOINT", "http://collector:4318/v1/traces")
	t.Setenv("REPAIRFORGE_TELEMETRY_SAMPLE_RATIO", "0.25")

	cfg, err := Load(nil, "", false)
	require.NoError(t, err)
	assert.Equal(t, telemetry.ExporterOTLP, cfg.Telemetry.Exporter)
	assert.Equal(t, "http://collector:4318/v1/traces", cfg.Telemetry.Endpoint)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
	assert.True(t, cfg.Telemetry.Enabled())
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Data: DataConfig{Directory: dir}}
	db, err := cfg.Paths().GetDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(db))
}

func TestPreferences(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		prefs, err := LoadPreferences(filepath.Join(t.TempDir(), "prefs.toml"))
		require.NoError(t, err)
		assert.Equal(t, "en", prefs.CurrentLocale())
	})

	t.Run("save locale round trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "prefs.toml")
		prefs, err := LoadPreferences(path)
		require.NoError(t, err)

		require.NoError(t, prefs.SaveLocale("es"))

		loaded, err := LoadPreferences(path)
		require.NoError(t, err)
		assert.Equal(t, "es", loaded.CurrentLocale())
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")
		require.NoError(t, os.WriteFile(path, []byte("locale = ["), 0644))
		_, err := LoadPreferences(path)
		assert.Error(t, err)
	})
}
