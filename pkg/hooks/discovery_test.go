package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "todo-sweep.sh"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run-hook.cmd"), []byte("#!/bin/sh\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "lib.sh"), 0o755))

	scripts, err := DiscoverScripts(dir)
	require.NoError(t, err)
	require.Len(t, scripts, 2)

	assert.Equal(t, "run-hook.cmd", scripts[0].Name)
	assert.False(t, scripts[0].Executable())
	assert.Equal(t, "todo-sweep.sh", scripts[1].Name)
	assert.True(t, scripts[1].Executable())
	assert.Equal(t, filepath.Join(dir, "todo-sweep.sh"), scripts[1].Path)
}

func TestDiscoverScripts_MissingDir(t *testing.T) {
	scripts, err := DiscoverScripts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestIsExecutable(t *testing.T) {
	assert.True(t, IsExecutable(0o755))
	assert.True(t, IsExecutable(0o744))
	assert.True(t, IsExecutable(0o601))
	assert.False(t, IsExecutable(0o644))
	assert.False(t, IsExecutable(0))
}

func TestStatScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session-start.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o700))

	s, err := StatScript(path)
	require.NoError(t, err)
	assert.Equal(t, "session-start.sh", s.Name)
	assert.True(t, s.Executable())

	_, err = StatScript(filepath.Join(dir, "missing.sh"))
	assert.Error(t, err)

	_, err = StatScript(dir)
	assert.Error(t, err)
}
