package backlog

import (
	"context"
	"io"
	"os"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/logger"
	"github.com/jingkaihe/pluginlint/pkg/session"
)

// HookOptions configures a hook run from the command line.
type HookOptions struct {
	// WorkDir is the working tree; the process working directory when empty.
	WorkDir string
	// DryRun makes the injector print its diff to Diff instead of writing.
	DryRun bool
	Diff   io.Writer
	// Excludes are the sweep directory exclusions.
	Excludes []string
}

func (o HookOptions) workDir() string {
	if o.WorkDir != "" {
		return o.WorkDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// RunInjectHook runs the injector for env and writes its response to stdout.
// A JSON object is always written: internal failures are logged and answered
// with {} so the host never sees a broken hook.
func RunInjectHook(ctx context.Context, stdout io.Writer, env hooks.Env, opts HookOptions) error {
	in := &Injector{
		Store:   session.NewStore(env.SessionDir),
		WorkDir: opts.workDir(),
		DryRun:  opts.DryRun,
	}
	out := hooks.Output{}
	result, err := in.Inject(ctx, env)
	switch {
	case err != nil:
		logger.G(ctx).WithError(err).Error("todo-inject failed")
	default:
		if result.Skipped != "" {
			logger.G(ctx).WithField("reason", string(result.Skipped)).Debug("injection skipped")
		}
		if result.Diff != "" && opts.Diff != nil {
			if _, err := io.WriteString(opts.Diff, result.Diff); err != nil {
				logger.G(ctx).WithError(err).Error("failed to write dry-run diff")
			}
		}
		out = result.Output()
	}
	return out.Write(stdout)
}

// RunSweepHook sweeps the working tree and writes the response to stdout,
// with the same always-answer behaviour as RunInjectHook.
func RunSweepHook(ctx context.Context, stdout io.Writer, env hooks.Env, opts HookOptions) error {
	sw := &Sweeper{
		Store:    session.NewStore(env.SessionDir),
		Root:     opts.workDir(),
		Excludes: opts.Excludes,
	}
	out := hooks.Output{}
	sweep, err := sw.Run(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Error("todo-sweep failed")
	} else {
		out = sweep.Output()
	}
	return out.Write(stdout)
}
