package backlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/logger"
	"github.com/jingkaihe/pluginlint/pkg/session"
)

// TaskTool is the tool name whose invocations the injector reacts to.
const TaskTool = "Task"

// SkipReason says why the injector left everything untouched.
type SkipReason string

// Skip reasons, checked in this order.
const (
	SkipNotTaskTool    SkipReason = "tool is not Task"
	SkipFlagSet        SkipReason = "workflow skip flag is set"
	SkipWrongPhase     SkipReason = "phase is not implementing"
	SkipNotImplementer SkipReason = "not a code-implementer dispatch"
	SkipNoTask         SkipReason = "no task number in dispatch"
	SkipNoTestFile     SkipReason = "no Test: path in dispatch"
	SkipAlreadyMarked  SkipReason = "marker already present"
)

// Injection is the outcome of one injector run.
type Injection struct {
	Skipped  SkipReason
	Dispatch Dispatch
	// Path is the resolved test file.
	Path    string
	Created bool
	Record  session.Record
	// Diff is the unified diff of the change, set in dry-run mode.
	Diff string
}

// Output is the hook response for the injection.
func (i *Injection) Output() hooks.Output {
	if i.Skipped != "" || i.Diff != "" {
		return hooks.Output{}
	}
	return hooks.ContextOutput(hooks.EventPostToolUse, fmt.Sprintf(
		"Injected %s into %s. The marker stays until task %d is complete; the verification sweep reports any that remain.",
		Marker(i.Dispatch.Task), i.Path, i.Dispatch.Task))
}

// Injector inserts a task marker into the test file named by an implementer
// dispatch.
type Injector struct {
	Store *session.Store
	// WorkDir resolves relative test paths.
	WorkDir string
	// DryRun computes the diff without writing anything.
	DryRun bool
}

// Inject runs the injector for one tool event.
func (in *Injector) Inject(ctx context.Context, env hooks.Env) (*Injection, error) {
	log := logger.G(ctx).WithField("hook", "todo-inject")

	if env.ToolName != TaskTool {
		return &Injection{Skipped: SkipNotTaskTool}, nil
	}
	if in.Store.Skipped() {
		return &Injection{Skipped: SkipFlagSet}, nil
	}
	phase, err := in.Store.Phase()
	if err != nil {
		return nil, err
	}
	if phase != session.PhaseImplementing {
		log.WithField("phase", phase).Debug("not implementing, skipping injection")
		return &Injection{Skipped: SkipWrongPhase}, nil
	}

	d := ParseDispatch(env.ToolInput)
	result := &Injection{Dispatch: d}
	switch {
	case !d.Implementer:
		result.Skipped = SkipNotImplementer
	case d.Task == 0:
		result.Skipped = SkipNoTask
	case d.TestFile == "":
		result.Skipped = SkipNoTestFile
	}
	if result.Skipped != "" {
		return result, nil
	}

	result.Path = d.TestFile
	if !filepath.IsAbs(result.Path) {
		result.Path = filepath.Join(in.WorkDir, result.Path)
	}

	mode := os.FileMode(0o644)
	old, err := os.ReadFile(result.Path)
	switch {
	case os.IsNotExist(err):
		result.Created = true
	case err != nil:
		return nil, errors.Wrapf(err, "failed to read %s", result.Path)
	default:
		if info, statErr := os.Stat(result.Path); statErr == nil {
			mode = info.Mode().Perm()
		}
	}

	if HasMarker(old, d.Task) {
		result.Skipped = SkipAlreadyMarked
		return result, nil
	}

	updated := Insert(old, MarkerLine(result.Path, d.Task))
	if in.DryRun {
		result.Diff = udiff.Unified(result.Path, result.Path, string(old), string(updated))
		return result, nil
	}

	if result.Created {
		if err := os.MkdirAll(filepath.Dir(result.Path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create directory for %s", result.Path)
		}
	}
	if err := os.WriteFile(result.Path, updated, mode); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", result.Path)
	}

	rec, err := in.Store.Track(d.Task, result.Path)
	if err != nil {
		// An untracked marker would never be tracked later since the file
		// already counts as marked.
		if rbErr := restore(result.Path, old, mode, result.Created); rbErr != nil {
			log.WithError(rbErr).WithField("path", result.Path).Warn("failed to roll back backlog marker")
		}
		return nil, err
	}
	result.Record = rec

	log.WithField("task", d.Task).WithField("path", result.Path).Info("injected backlog marker")
	return result, nil
}

// restore puts path back the way it was before the marker was written.
func restore(path string, old []byte, mode os.FileMode, created bool) error {
	if created {
		return errors.Wrapf(os.Remove(path), "failed to remove %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, old, mode), "failed to restore %s", path)
}
