package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stageflow/pkg/adapters/process"
	"github.com/aretw0/stageflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Navigator = (*process.Navigator)(nil)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("commands use sh")
	}
}

// capture registers a command that writes its environment contract to a file.
func capture(t *testing.T, n *process.Navigator, name string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), name+".out")
	n.Register(name, "sh", "-c", `printf '%s|%s' "$STAGEFLOW_TARGET" "$STAGEFLOW_TARGET_RAW" > "`+out+`"`)
	return out
}

func readOut(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNavigator_RegisteredPrefix(t *testing.T) {
	requireShell(t)
	n := process.NewNavigator()
	out := capture(t, n, "open")

	require.NoError(t, n.Navigate(context.Background(), "open:docs/intro.md"))
	assert.Equal(t, "docs/intro.md|open:docs/intro.md", readOut(t, out))
}

func TestNavigator_DefaultCommand(t *testing.T) {
	requireShell(t)
	n := process.NewNavigator(process.WithDefault("browser"))
	out := capture(t, n, "browser")

	// "https" is not registered, so the whole target goes to the default.
	require.NoError(t, n.Navigate(context.Background(), "https://example.com/review"))
	assert.Equal(t, "https://example.com/review|https://example.com/review", readOut(t, out))
}

func TestNavigator_NotRegistered(t *testing.T) {
	n := process.NewNavigator()
	n.Register("open", "true")

	err := n.Navigate(context.Background(), "rm:-rf /")
	assert.ErrorIs(t, err, process.ErrNotRegistered)

	err = n.Navigate(context.Background(), "plain-target")
	assert.ErrorIs(t, err, process.ErrNotRegistered)
}

func TestNavigator_TargetIsNotAnArgument(t *testing.T) {
	requireShell(t)
	n := process.NewNavigator()
	out := filepath.Join(t.TempDir(), "args.out")
	n.Register("show", "sh", "-c", `echo "$#" > "`+out+`"`)

	require.NoError(t, n.Navigate(context.Background(), "show:--help; rm -rf /"))
	assert.Equal(t, "0", strings.TrimSpace(readOut(t, out)))
}

func TestNavigator_FailureIncludesStderr(t *testing.T) {
	requireShell(t)
	n := process.NewNavigator()
	n.Register("broken", "sh", "-c", "echo 'viewer crashed' >&2; exit 3")

	err := n.Navigate(context.Background(), "broken:x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "viewer crashed")
	assert.Contains(t, err.Error(), "command broken failed")
}

func TestNavigator_Timeout(t *testing.T) {
	requireShell(t)
	n := process.NewNavigator(process.WithTimeout(50 * time.Millisecond))
	n.Register("slow", "sleep", "5")

	start := time.Now()
	err := n.Navigate(context.Background(), "slow:x")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestNavigator_ConfigEnvAndBaseDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	n := process.NewNavigator(
		process.WithBaseDir(dir),
		process.WithConfig(process.ConfigFile{
			Default: "note",
			Commands: []process.CommandConfig{{
				Name:        "note",
				Command:     "sh",
				Args:        []string{"-c", `printf '%s' "$GREETING" > note.out`},
				Environment: map[string]string{"GREETING": "hi"},
			}},
		}),
	)

	require.NoError(t, n.Navigate(context.Background(), "anything"))
	assert.Equal(t, "hi", readOut(t, filepath.Join(dir, "note.out")))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("YAML", func(t *testing.T) {
		path := write("commands.yaml", `
default: open
commands:
  - name: open
    command: xdg-open
    description: Open with the desktop handler
  - name: code
    command: code
    args: ["--reuse-window"]
`)
		cfg, err := process.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "open", cfg.Default)
		require.Len(t, cfg.Commands, 2)
		assert.Equal(t, []string{"--reuse-window"}, cfg.Commands[1].Args)
	})

	t.Run("JSON", func(t *testing.T) {
		path := write("commands.json", `{"commands":[{"name":"open","command":"open"}]}`)
		cfg, err := process.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "open", cfg.Commands[0].Command)
	})

	t.Run("Unknown default", func(t *testing.T) {
		path := write("bad-default.yaml", "default: missing\ncommands:\n  - name: open\n    command: open\n")
		_, err := process.LoadConfig(path)
		assert.ErrorContains(t, err, "not defined")
	})

	t.Run("Incomplete command", func(t *testing.T) {
		path := write("incomplete.yaml", "commands:\n  - name: open\n")
		_, err := process.LoadConfig(path)
		assert.ErrorContains(t, err, "needs a name and a command")
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		path := write("broken.json", `{"commands": [`)
		_, err := process.LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := process.LoadConfig(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
