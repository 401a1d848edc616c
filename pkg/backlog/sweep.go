package backlog

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/logger"
	"github.com/jingkaihe/pluginlint/pkg/session"
)

// CleanMessage is the sweep context when no markers remain.
const CleanMessage = "SWEEP: No task markers remain"

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

// Hit is one marker found by a sweep.
type Hit struct {
	Task int
	// Path is slash-separated and relative to the sweep root.
	Path string
	Line int
}

// Label formats the hit as task-N at path:line.
func (h Hit) Label() string {
	return fmt.Sprintf("task-%d at %s:%d", h.Task, h.Path, h.Line)
}

// Sweeper walks a working tree for leftover markers.
type Sweeper struct {
	Store *session.Store
	Root  string
	// Excludes are glob patterns matched against directory names.
	Excludes []string
}

// Sweep is the outcome of one sweeper run.
type Sweep struct {
	Skipped bool
	Hits    []Hit
}

// Output is the hook response for the sweep.
func (s *Sweep) Output() hooks.Output {
	if s.Skipped {
		return hooks.Output{}
	}
	if len(s.Hits) == 0 {
		return hooks.ContextOutput(hooks.EventPreToolUse, CleanMessage)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "WARNING: %d %s marker(s) remain. Finish these tasks before claiming verification:", len(s.Hits), Tag)
	for _, h := range s.Hits {
		b.WriteString("\n- ")
		b.WriteString(h.Label())
	}
	return hooks.ContextOutput(hooks.EventPreToolUse, b.String())
}

// Run sweeps the tree unless the session skip flag is set.
func (sw *Sweeper) Run(ctx context.Context) (*Sweep, error) {
	if sw.Store != nil && sw.Store.Skipped() {
		return &Sweep{Skipped: true}, nil
	}
	hits, err := sw.Find(ctx)
	if err != nil {
		return nil, err
	}
	return &Sweep{Hits: hits}, nil
}

// Find returns every marker under Root outside excluded directories, in walk
// order.
func (sw *Sweeper) Find(ctx context.Context) ([]Hit, error) {
	excludes := make([]glob.Glob, 0, len(sw.Excludes))
	for _, pattern := range sw.Excludes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid exclude pattern %q", pattern)
		}
		excludes = append(excludes, g)
	}

	log := logger.G(ctx).WithField("hook", "todo-sweep")
	var hits []Hit
	err := filepath.WalkDir(sw.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == sw.Root {
				return err
			}
			log.WithError(err).WithField("path", path).Debug("skipping unreadable entry")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != sw.Root && matchesAny(excludes, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("skipping unreadable file")
			return nil
		}
		if isBinary(content) || !bytes.Contains(content, []byte(Tag)) {
			return nil
		}

		rel, err := filepath.Rel(sw.Root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		for i, line := range bytes.Split(content, []byte("\n")) {
			for _, task := range FindMarkers(line) {
				hits = append(hits, Hit{Task: task, Path: rel, Line: i + 1})
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sweep %s", sw.Root)
	}
	return hits, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func isBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}
