package backlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/pluginlint/pkg/config"
	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/session"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newSweeper(root string) *Sweeper {
	return &Sweeper{Store: session.NewStore(root), Root: root, Excludes: config.DefaultSweepExcludes}
}

func TestSweep_FindsMarkers(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"test_example.py":   "# TODO:BACKLOG[task-5]: See backlog for requirements\ndef test_something():\n    pass\n",
		"pkg/a/a_test.go":   "package a\n\n// TODO:BACKLOG[task-2]: See backlog for requirements\n",
		"README.md":         "nothing to see\n",
		"docs/notes.txt":    "TODO: unrelated\n",
		"pkg/a/doc.go":      "package a\n",
		"scripts/clean.sql": "-- TODO:BACKLOG[task-9]: x\n-- TODO:BACKLOG[task-10]: y\n",
	})

	sw, err := newSweeper(root).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, sw.Skipped)

	var labels []string
	for _, h := range sw.Hits {
		labels = append(labels, h.Label())
	}
	assert.ElementsMatch(t, []string{
		"task-5 at test_example.py:1",
		"task-2 at pkg/a/a_test.go:3",
		"task-9 at scripts/clean.sql:1",
		"task-10 at scripts/clean.sql:2",
	}, labels)

	out := sw.Output()
	require.False(t, out.IsEmpty())
	assert.Equal(t, hooks.EventPreToolUse, out.HookSpecificOutput.HookEventName)
	assert.Contains(t, out.Context(), "WARNING")
	assert.Contains(t, out.Context(), "task-5 at test_example.py:1")
}

func TestSweep_Clean(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"test_example.py": "def test_something():\n    pass\n"})

	sw, err := newSweeper(root).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sw.Hits)
	assert.Equal(t, CleanMessage, sw.Output().Context())
	assert.NotContains(t, sw.Output().Context(), "WARNING")
}

func TestSweep_SkipFlag(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "# TODO:BACKLOG[task-5]: x\n"})
	s := newSweeper(root)
	require.NoError(t, s.Store.SetSkip(true))

	sw, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sw.Skipped)
	assert.True(t, sw.Output().IsEmpty())
}

func TestSweep_Excludes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/pkg/index.js":   "// TODO:BACKLOG[task-1]: x\n",
		".git/hooks/pre-commit":       "# TODO:BACKLOG[task-2]: x\n",
		".venv/lib/site.py":           "# TODO:BACKLOG[task-3]: x\n",
		"venv311/lib/site.py":         "# TODO:BACKLOG[task-4]: x\n",
		"src/__pycache__/mod.py":      "# TODO:BACKLOG[task-5]: x\n",
		"vendor/github.com/x/y/y.go":  "// TODO:BACKLOG[task-6]: x\n",
		"src/node_modules_notes/x.md": "TODO:BACKLOG[task-7]",
	})

	hits, err := newSweeper(root).Find(context.Background())
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 7, hits[0].Task)
}

func TestSweep_SkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"blob.bin": "TODO:BACKLOG[task-1]\x00\x01\x02",
	})

	hits, err := newSweeper(root).Find(context.Background())
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSweep_InvalidExclude(t *testing.T) {
	_, err := (&Sweeper{Root: t.TempDir(), Excludes: []string{"[unterminated"}}).Find(context.Background())
	assert.Error(t, err)
}

func TestSweep_MissingRoot(t *testing.T) {
	_, err := (&Sweeper{Root: filepath.Join(t.TempDir(), "gone")}).Find(context.Background())
	assert.Error(t, err)
}

func TestSweep_IgnoresTrackingFile(t *testing.T) {
	root := t.TempDir()
	store := session.NewStore(root)
	_, err := store.Track(3, filepath.Join(root, "gone.py"))
	require.NoError(t, err)

	hits, err := newSweeper(root).Find(context.Background())
	require.NoError(t, err)
	assert.Empty(t, hits)
}
