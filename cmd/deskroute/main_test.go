package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/deskroute/internal/config"
	deskerrors "github.com/vango-dev/deskroute/internal/errors"
)

const testBoot = `can_read: [ToDo, Event, System Settings]
singles: [System Settings]
doctype_layouts:
  - name: Quick ToDo
    document_type: ToDo
`

// project writes a config and boot file to a temp dir and returns the
// config path.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "boot.yaml"), []byte(testBoot), 0o644))
	cfg := "boot:\n  source: boot.yaml\nlog:\n  level: error\n"
	path := filepath.Join(dir, "deskroute.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	cfg := project(t)

	out, err := run(t, "resolve", "-c", cfg, "/app/quick-todo/TODO-1", "#List/ToDo", "system-settings")
	require.NoError(t, err)

	var got []struct {
		Route  []string `json:"route"`
		Kind   string   `json:"kind"`
		Layout string   `json:"layout"`
		URL    string   `json:"url"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)

	assert.Equal(t, []string{"Form", "ToDo", "TODO-1"}, got[0].Route)
	assert.Equal(t, "Quick ToDo", got[0].Layout)
	assert.Equal(t, "/app/todo/TODO-1", got[0].URL)

	assert.Equal(t, []string{"List", "ToDo", "List"}, got[1].Route)
	assert.Equal(t, "list", got[1].Kind)

	assert.Equal(t, []string{"Form", "System Settings", "System Settings"}, got[2].Route)
}

func TestResolveCommandHash(t *testing.T) {
	cfg := project(t)

	out, err := run(t, "resolve", "-c", cfg, "--hash", "todo/view/report")
	require.NoError(t, err)

	var got []struct {
		Route []string `json:"route"`
		URL   string   `json:"url"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"List", "ToDo", "Report"}, got[0].Route)
	assert.Equal(t, "#todo/view/report", got[0].URL)
}

func TestResolveCommandErrors(t *testing.T) {
	cfg := project(t)

	_, err := run(t, "resolve", "-c", cfg)
	assert.True(t, deskerrors.Is(err, deskerrors.CodeArgumentsRequired), "got %v", err)

	_, err = run(t, "resolve", "-c", cfg, "--boot", filepath.Join(t.TempDir(), "missing.json"), "/app/todo")
	assert.True(t, deskerrors.Is(err, deskerrors.CodeBootUnreadable), "got %v", err)

	_, err = run(t, "resolve", "-c", cfg, "--boot", "ftp://desk/boot.json", "/app/todo")
	assert.True(t, deskerrors.Is(err, deskerrors.CodeBootSource), "got %v", err)
}

func TestResolveCommandMissingDefaultBoot(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "deskroute.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("log:\n  level: error\n"), 0o644))

	out, err := run(t, "resolve", "-c", cfg, "/app/todo")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "page"`)
}

func TestRoutesCommand(t *testing.T) {
	cfg := project(t)

	out, err := run(t, "routes", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "quick-todo")

	out, err = run(t, "routes", "-c", cfg, "--json")
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, map[string]string{"slug": "event", "doctype": "Event"}, rows[0])
	assert.Equal(t, map[string]string{"slug": "quick-todo", "doctype": "ToDo", "layout": "Quick ToDo"}, rows[1])
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "init", "--format", "json", dir)
	require.NoError(t, err)
	cfg, err := config.LoadFile(filepath.Join(dir, "deskroute.json"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	require.NoError(t, cfg.Validate())

	_, err = run(t, "init", dir)
	assert.Error(t, err, "existing config must not be overwritten")

	_, err = run(t, "init", "--force", dir)
	assert.NoError(t, err)

	_, err = run(t, "init", "--format", "toml", t.TempDir())
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Go version")
}
