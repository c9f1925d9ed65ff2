package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/location"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "path", cfg.Router.Mode)
	assert.Equal(t, 100*time.Millisecond, cfg.Router.SettleDelay)
	assert.Equal(t, DefaultBootSource, cfg.Boot.Source)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, New().Server, cfg.Server)
	assert.Empty(t, cfg.Path())
	assert.Empty(t, cfg.Dir())
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deskroute.json", `{
  "server": {"host": "0.0.0.0", "port": 9000},
  "router": {"mode": "hash", "settleDelay": "250ms"},
  "boot": {"source": "s3://desk/boot.yaml", "s3Region": "eu-west-1", "watch": false},
  "log": {"level": "debug", "format": "json"}
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Address())
	assert.Equal(t, location.ModeHash, cfg.Mode())
	assert.Equal(t, 250*time.Millisecond, cfg.Router.SettleDelay)
	assert.Equal(t, "s3://desk/boot.yaml", cfg.Boot.Source)
	assert.Equal(t, "eu-west-1", cfg.Boot.S3Region)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, dir, cfg.Dir())

	// Unset keys keep their defaults.
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "deskroute", cfg.Tracing.TracerName)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deskroute.yaml", "server:\n  port: 8081\nboot:\n  source: ./data/boot.yaml\n  watch: true\nmetrics:\n  enabled: false\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "./data/boot.yaml", cfg.Boot.Source)
	assert.True(t, cfg.Boot.Watch)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deskroute.json", `{"server": {"port": 9000}}`)
	t.Setenv("DESKROUTE_SERVER_PORT", "9100")
	t.Setenv("DESKROUTE_ROUTER_MODE", "hash")
	t.Setenv("DESKROUTE_LOG_FORMAT", "json")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, location.ModeHash, cfg.Mode())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConfigUnreadable))

	bad := writeFile(t, dir, "deskroute.json", `{"server": {"port": 90`)
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConfigUnreadable))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"unknown mode", func(c *Config) { c.Router.Mode = "fragment" }, "router.mode"},
		{"negative settle delay", func(c *Config) { c.Router.SettleDelay = -time.Second }, "router.settleDelay"},
		{"empty boot source", func(c *Config) { c.Boot.Source = " " }, "boot.source"},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeConfigInvalid))

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Contains(t, e.Suggestion, tt.key)
		})
	}
}

func TestValidateLocatesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deskroute.yaml", "router:\n  mode: fragment\n")

	_, err := Load(dir)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.NotNil(t, e.Location)
	assert.Equal(t, filepath.Join(dir, "deskroute.yaml"), e.Location.File)
}

func TestSaveToRoundTrip(t *testing.T) {
	for _, name := range []string{"deskroute.json", "deskroute.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.Server.Port = 9200
			cfg.Router.SettleDelay = 50 * time.Millisecond
			cfg.Boot.Source = "s3://desk/boot.json"

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.SaveTo(path))
			assert.Equal(t, path, cfg.Path())

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, 9200, loaded.Server.Port)
			assert.Equal(t, 50*time.Millisecond, loaded.Router.SettleDelay)
			assert.Equal(t, "s3://desk/boot.json", loaded.Boot.Source)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf strings.Builder

	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "slug", "todo")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"slug":"todo"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "deskroute.yml", "server:\n  port: 8000\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
	assert.True(t, Exists(root))
	assert.False(t, Exists(nested))

	lonely := t.TempDir()
	got, err = FindProjectRoot(lonely)
	require.NoError(t, err)
	assert.Equal(t, lonely, got)
}
