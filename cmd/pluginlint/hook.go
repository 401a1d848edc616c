package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/pluginlint/pkg/backlog"
	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/logger"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run a TODO-marker hook",
	Long: `Go implementations of the TODO-marker hooks. They read CLAUDE_TOOL_NAME,
CLAUDE_TOOL_INPUT and CLAUDE_SESSION_DIR, always print a JSON object on stdout
and always exit 0: internal errors are logged to stderr and answered with {}.`,
}

var hookInjectCmd = &cobra.Command{
	Use:         "todo-inject",
	Short:       "Insert a backlog marker into the test file of an implementer dispatch",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationHook: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		runHook(cmd, backlog.RunInjectHook, backlog.HookOptions{DryRun: dryRun, Diff: os.Stderr})
	},
}

var hookSweepCmd = &cobra.Command{
	Use:         "todo-sweep",
	Short:       "Report backlog markers left in the working tree",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationHook: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		runHook(cmd, backlog.RunSweepHook, backlog.HookOptions{Excludes: cfg.Sweep.Excludes})
	},
}

func init() {
	hookInjectCmd.Flags().Bool("dry-run", false, "Print the diff to stderr instead of writing the test file")

	hookCmd.AddCommand(hookInjectCmd)
	hookCmd.AddCommand(hookSweepCmd)
}

type hookFunc func(ctx context.Context, stdout io.Writer, env hooks.Env, opts backlog.HookOptions) error

func runHook(cmd *cobra.Command, fn hookFunc, opts backlog.HookOptions) {
	ctx := cmd.Context()
	log := logger.G(ctx).WithField("command", cmd.Name())

	env, err := hooks.ParseEnv()
	if err != nil {
		log.WithError(err).Error("failed to read hook environment")
		hooks.Output{}.Write(os.Stdout)
		return
	}
	if err := fn(ctx, os.Stdout, env, opts); err != nil {
		log.WithError(err).Error("failed to write hook output")
	}
}
