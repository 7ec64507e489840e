package twconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "windpress.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, windpress.V4, cfg.EngineVersion())
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
version: "3"
entrypoint: /app.css
config: /tw.config.js
fetch:
  timeout: 5s
serve:
  addr: ":9000"
  origins: ["localhost:*"]
cache:
  output: file:///tmp/site/main.min.css
  providers:
    - name: posts
      url: https://example.com/wp-json/windpress/v1/cache/providers/posts
    - name: theme
      dir: ./theme
      patterns: ["**/*.php"]
`)
	cfg, err := Load(p, nil)
	require.NoError(t, err)
	assert.Equal(t, windpress.V3, cfg.EngineVersion())
	assert.Equal(t, "/app.css", cfg.Entrypoint)
	assert.Equal(t, "/tw.config.js", cfg.Config)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
	assert.Equal(t, []string{"localhost:*"}, cfg.Serve.Origins)
	require.Len(t, cfg.Cache.Providers, 2)
	assert.Equal(t, Provider{Name: "theme", Dir: "./theme", Patterns: []string{"**/*.php"}}, cfg.Cache.Providers[1])
	// untouched keys keep their defaults
	assert.Equal(t, 8, cfg.Engine.Cache)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestPrecedence(t *testing.T) {
	p := writeConfig(t, "serve:\n  addr: \":9000\"\nlog:\n  level: warn\nbuild:\n  minify: false\n")
	t.Setenv("WINDPRESS_SERVE_ADDR", ":7000")
	t.Setenv("WINDPRESS_LOG_LEVEL", "debug")
	t.Setenv("WINDPRESS_BUILD_MINIFY", "true")

	cfg, err := Load(p, map[string]any{"serve.addr": ":6000", "log.format": nil})
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Serve.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Build.Minify)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "version: \"2\"\n"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "log:\n  format: xml\n"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache:\n  providers:\n    - name: x\n"), nil)
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log = Log{Level: "warn", Format: "json"}
	var b bytes.Buffer
	lg := cfg.Logger(&b)
	lg.Info("hidden")
	lg.Warn("shown", "k", 1)
	assert.NotContains(t, b.String(), "hidden")
	assert.Contains(t, b.String(), `"msg":"shown"`)
}
