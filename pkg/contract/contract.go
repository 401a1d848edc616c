// Package contract runs conformance scenarios against TODO-marker hook
// executables. Each scenario spawns the hook in a fresh temporary directory
// that doubles as working and session directory, and asserts only on
// observable behaviour: exit status, stdout and the files left behind.
package contract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/logger"
)

// Kind says which hook a scenario exercises.
type Kind string

// Hook kinds.
const (
	KindInjector Kind = "injector"
	KindSweeper  Kind = "sweeper"
)

// Command is how to start a hook.
type Command struct {
	Argv []string
	// Env is added to the simulated tool event variables.
	Env []string
}

// String renders the command line for display.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario string        `json:"scenario"`
	Kind     Kind          `json:"kind"`
	Passed   bool          `json:"passed"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of a harness run.
type Report struct {
	RunID    string    `json:"run_id"`
	Injector string    `json:"injector,omitempty"`
	Sweeper  string    `json:"sweeper,omitempty"`
	Results  []Result  `json:"results"`
	Started  time.Time `json:"started"`
}

// Failed returns the failing results.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Err aggregates failures into one error, or nil when all scenarios passed.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Failed() {
		result = multierror.Append(result, errors.Errorf("%s: %s", res.Scenario, res.Message))
	}
	return result.ErrorOrNil()
}

// Harness runs scenarios against an injector and a sweeper command. Either
// command may be left empty to skip its scenarios.
type Harness struct {
	Injector Command
	Sweeper  Command
	Runner   *hooks.Runner
	// TempDir is where scenario directories are created; os.TempDir() when empty.
	TempDir string
}

// Run executes the selected scenarios, all of them when names is empty, one
// subprocess at a time.
func (h *Harness) Run(ctx context.Context, names ...string) (*Report, error) {
	selected, err := Select(names...)
	if err != nil {
		return nil, err
	}
	runner := h.Runner
	if runner == nil {
		runner = hooks.NewRunner(hooks.DefaultTimeout)
	}

	report := &Report{
		RunID:    uuid.New().String(),
		Injector: h.Injector.String(),
		Sweeper:  h.Sweeper.String(),
		Results:  []Result{},
		Started:  time.Now(),
	}
	log := logger.G(ctx).WithField("run_id", report.RunID)

	for _, sc := range selected {
		cmd := h.Injector
		if sc.Kind == KindSweeper {
			cmd = h.Sweeper
		}
		if len(cmd.Argv) == 0 {
			log.WithField("scenario", sc.Name).Debug("no command configured, skipping")
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := h.runScenario(ctx, runner, sc, cmd)
		log.WithField("scenario", sc.Name).WithField("passed", res.Passed).Debug("scenario finished")
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (h *Harness) runScenario(ctx context.Context, runner *hooks.Runner, sc Scenario, cmd Command) Result {
	start := time.Now()
	res := Result{Scenario: sc.Name, Kind: sc.Kind}

	dir, err := os.MkdirTemp(h.TempDir, "pluginlint-"+sc.Name+"-")
	if err != nil {
		res.Message = fmt.Sprintf("cannot create scenario directory: %v", err)
		return res
	}
	defer os.RemoveAll(dir)

	// Resolve symlinked temp roots so paths the hook prints match ours.
	if resolved, err := resolveDir(dir); err == nil {
		dir = resolved
	}

	w := &workspace{ctx: ctx, dir: dir, runner: runner, cmd: cmd}
	if err := sc.run(w); err != nil {
		res.Message = err.Error()
	} else {
		res.Passed = true
	}
	res.Duration = time.Since(start)
	return res
}
