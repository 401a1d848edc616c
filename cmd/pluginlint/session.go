package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/presenter"
	"github.com/jingkaihe/pluginlint/pkg/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or change the workflow session state",
	Long: `Read and write the session marker files the TODO-marker hooks consult:
` + session.PhaseFile + ` (current phase), ` + session.SkipFile + ` (skip flag) and
` + session.TodosFile + ` (injected markers).

The session directory defaults to CLAUDE_SESSION_DIR, then the working directory.`,
}

var sessionPhaseCmd = &cobra.Command{
	Use:   "phase [phase]",
	Short: "Print or set the workflow phase",
	Long: fmt.Sprintf(`Print the workflow phase, or set it when an argument is given.
Known phases: %s, %s, %s, %s. An empty argument clears the phase.`,
		session.PhaseBrainstorming, session.PhasePlanning, session.PhaseImplementing, session.PhaseVerifying),
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := sessionStore(cmd)
		if len(args) == 0 {
			phase, err := store.Phase()
			if err != nil {
				presenter.Error(err, "Failed to read phase")
				os.Exit(1)
			}
			fmt.Println(phase)
			return
		}

		if !session.IsKnownPhase(args[0]) && args[0] != "" {
			presenter.Warning(fmt.Sprintf("%q is not a known phase", args[0]))
		}
		if err := store.SetPhase(args[0]); err != nil {
			presenter.Error(err, "Failed to set phase")
			os.Exit(1)
		}
	},
}

var sessionSkipCmd = &cobra.Command{
	Use:       "skip [on|off]",
	Short:     "Print or set the workflow skip flag",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	Run: func(cmd *cobra.Command, args []string) {
		store := sessionStore(cmd)
		if len(args) == 0 {
			if store.Skipped() {
				fmt.Println("on")
			} else {
				fmt.Println("off")
			}
			return
		}

		on, err := parseOnOff(args[0])
		if err != nil {
			presenter.Error(err, "Invalid argument")
			os.Exit(1)
		}
		if err := store.SetSkip(on); err != nil {
			presenter.Error(err, "Failed to set skip flag")
			os.Exit(1)
		}
	},
}

var sessionTodosCmd = &cobra.Command{
	Use:   "todos",
	Short: "List the backlog markers injected in this session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		records, err := sessionStore(cmd).Records()
		if err != nil {
			presenter.Error(err, "Failed to read tracking file")
			os.Exit(1)
		}
		for _, rec := range records {
			fmt.Println(rec.String())
		}
	},
}

func init() {
	sessionCmd.PersistentFlags().String("session-dir", "", "Session directory (default: $CLAUDE_SESSION_DIR, then the working directory)")

	sessionCmd.AddCommand(sessionPhaseCmd)
	sessionCmd.AddCommand(sessionSkipCmd)
	sessionCmd.AddCommand(sessionTodosCmd)
}

func sessionStore(cmd *cobra.Command) *session.Store {
	if dir, _ := cmd.Flags().GetString("session-dir"); dir != "" {
		return session.NewStore(dir)
	}
	env, err := hooks.ParseEnv()
	if err != nil {
		presenter.Error(err, "Failed to resolve session directory")
		os.Exit(1)
	}
	return session.NewStore(env.SessionDir)
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, errors.Errorf("expected on or off, got %q", s)
	}
}
