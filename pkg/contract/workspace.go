package contract

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/session"
)

// workspace is the temporary directory a scenario runs in.
type workspace struct {
	ctx    context.Context
	dir    string
	runner *hooks.Runner
	cmd    Command
}

func (w *workspace) store() *session.Store {
	return session.NewStore(w.dir)
}

func resolveDir(dir string) (string, error) {
	return filepath.EvalSymlinks(dir)
}

func (w *workspace) path(rel string) string {
	return filepath.Join(w.dir, filepath.FromSlash(rel))
}

func (w *workspace) write(rel, content string) error {
	p := w.path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "setup: mkdir for %s", rel)
	}
	return errors.Wrapf(os.WriteFile(p, []byte(content), 0o644), "setup: write %s", rel)
}

func (w *workspace) read(rel string) (string, bool) {
	data, err := os.ReadFile(w.path(rel))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// invoke runs the hook with the given tool event.
func (w *workspace) invoke(toolName, toolInput string) (*hooks.Result, error) {
	res, err := w.runner.Run(w.ctx, hooks.Invocation{
		Argv:  w.cmd.Argv,
		Dir:   w.dir,
		Event: hooks.ToolEvent{ToolName: toolName, ToolInput: toolInput, SessionDir: w.dir},
		Env:   w.cmd.Env,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return res, errors.Errorf("exit status %d, want 0 (stderr: %s)", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return res, nil
}

// snapshot records every file under the workspace with its content.
func (w *workspace) snapshot() (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(w.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(w.dir, p)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	return files, errors.Wrap(err, "snapshot")
}

// diffSnapshots describes how after differs from before, or returns "".
func diffSnapshots(before, after map[string]string) string {
	var changes []string
	for name, content := range after {
		old, ok := before[name]
		switch {
		case !ok:
			changes = append(changes, "created "+name)
		case old != content:
			changes = append(changes, "modified "+name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			changes = append(changes, "removed "+name)
		}
	}
	sort.Strings(changes)
	return strings.Join(changes, ", ")
}

func expectEmptyObject(res *hooks.Result) error {
	if got := bytes.TrimSpace(res.Stdout); string(got) != "{}" {
		return errors.Errorf("stdout is %q, want {}", truncate(string(got)))
	}
	return nil
}

func truncate(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
