package contract

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/session"
)

// Scenario is one conformance check.
type Scenario struct {
	Name        string
	Kind        Kind
	Description string
	run         func(*workspace) error
}

const (
	taskTool     = "Task"
	testFileName = "test_example.py"
	testFileBody = "import pytest\n\ndef test_something():\n    pass\n"
	sweepInput   = "verification skill"
)

func implementerDispatch(testFile string) string {
	return fmt.Sprintf("code-implementer dispatch\n## Task 3: Add feature\n### Files\n- Test: %s\n", testFile)
}

// reviewerDispatch carries a task number and test path but targets another
// agent, so only the implementer check can reject it.
func reviewerDispatch(testFile string) string {
	return fmt.Sprintf("spec-reviewer task description\n## Task 3: Review feature\n### Files\n- Test: %s\n", testFile)
}

// Scenarios returns every scenario in execution order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "injector-non-implementer",
			Kind:        KindInjector,
			Description: "a dispatch for another agent changes nothing while implementing",
			run: func(w *workspace) error {
				if err := w.store().SetPhase(session.PhaseImplementing); err != nil {
					return err
				}
				return expectUntouched(w, reviewerDispatch(w.path(testFileName)))
			},
		},
		{
			Name:        "injector-wrong-phase",
			Kind:        KindInjector,
			Description: "outside the implementing phase nothing changes",
			run: func(w *workspace) error {
				if err := w.store().SetPhase(session.PhaseBrainstorming); err != nil {
					return err
				}
				return expectUntouched(w, implementerDispatch(w.path(testFileName)))
			},
		},
		{
			Name:        "injector-no-phase",
			Kind:        KindInjector,
			Description: "without a phase file nothing changes",
			run: func(w *workspace) error {
				return expectUntouched(w, implementerDispatch(w.path(testFileName)))
			},
		},
		{
			Name:        "injector-skip-flag",
			Kind:        KindInjector,
			Description: "the skip flag disables injection",
			run: func(w *workspace) error {
				if err := w.store().SetPhase(session.PhaseImplementing); err != nil {
					return err
				}
				if err := w.store().SetSkip(true); err != nil {
					return err
				}
				return expectUntouched(w, implementerDispatch(w.path(testFileName)))
			},
		},
		{
			Name:        "injector-injects",
			Kind:        KindInjector,
			Description: "an implementer dispatch marks the test file and records it",
			run: func(w *workspace) error {
				if err := w.store().SetPhase(session.PhaseImplementing); err != nil {
					return err
				}
				if err := w.write(testFileName, testFileBody); err != nil {
					return err
				}
				if _, err := w.invoke(taskTool, implementerDispatch(w.path(testFileName))); err != nil {
					return err
				}
				return expectInjected(w, "task-3")
			},
		},
		{
			Name:        "injector-idempotent",
			Kind:        KindInjector,
			Description: "a repeated dispatch changes nothing the second time",
			run: func(w *workspace) error {
				if err := w.store().SetPhase(session.PhaseImplementing); err != nil {
					return err
				}
				if err := w.write(testFileName, testFileBody); err != nil {
					return err
				}
				input := implementerDispatch(w.path(testFileName))
				if _, err := w.invoke(taskTool, input); err != nil {
					return errors.Wrap(err, "first run")
				}
				if err := expectInjected(w, "task-3"); err != nil {
					return errors.Wrap(err, "first run")
				}

				before, err := w.snapshot()
				if err != nil {
					return err
				}
				if _, err := w.invoke(taskTool, input); err != nil {
					return errors.Wrap(err, "second run")
				}
				after, err := w.snapshot()
				if err != nil {
					return err
				}
				if diff := diffSnapshots(before, after); diff != "" {
					return errors.Errorf("second run changed files: %s", diff)
				}
				content, _ := w.read(testFileName)
				if n := strings.Count(content, "TODO:BACKLOG[task-3]"); n != 1 {
					return errors.Errorf("marker appears %d times, want 1", n)
				}
				return nil
			},
		},
		{
			Name:        "sweep-finds-markers",
			Kind:        KindSweeper,
			Description: "a remaining marker produces a warning naming its task",
			run: func(w *workspace) error {
				if err := w.write(testFileName, "# TODO:BACKLOG[task-5]: See backlog for requirements\n"+testFileBody); err != nil {
					return err
				}
				res, err := w.invoke("", sweepInput)
				if err != nil {
					return err
				}
				out := string(res.Stdout)
				if !strings.Contains(out, "WARNING") {
					return errors.Errorf("stdout has no WARNING: %q", truncate(out))
				}
				if !strings.Contains(out, "task-5") {
					return errors.Errorf("stdout does not mention task-5: %q", truncate(out))
				}
				return nil
			},
		},
		{
			Name:        "sweep-clean",
			Kind:        KindSweeper,
			Description: "a tree without markers reports a clean sweep",
			run: func(w *workspace) error {
				if err := w.write(testFileName, testFileBody); err != nil {
					return err
				}
				res, err := w.invoke("", sweepInput)
				if err != nil {
					return err
				}
				out := string(res.Stdout)
				if !strings.Contains(out, "No task markers remain") && !strings.Contains(out, "SWEEP") {
					return errors.Errorf("stdout does not report a clean sweep: %q", truncate(out))
				}
				return expectNoWarning(out)
			},
		},
		{
			Name:        "sweep-skip-flag",
			Kind:        KindSweeper,
			Description: "the skip flag silences the sweep",
			run: func(w *workspace) error {
				if err := w.write(testFileName, "# TODO:BACKLOG[task-5]: See backlog for requirements\n"); err != nil {
					return err
				}
				if err := w.store().SetSkip(true); err != nil {
					return err
				}
				res, err := w.invoke("", sweepInput)
				if err != nil {
					return err
				}
				return expectNoWarning(string(res.Stdout))
			},
		},
		{
			Name:        "sweep-excludes-deps",
			Kind:        KindSweeper,
			Description: "markers under dependency and VCS directories are ignored",
			run: func(w *workspace) error {
				for _, rel := range []string{"node_modules/pkg/index.js", ".git/hooks/pre-commit"} {
					if err := w.write(rel, "// TODO:BACKLOG[task-8]: See backlog for requirements\n"); err != nil {
						return err
					}
				}
				res, err := w.invoke("", sweepInput)
				if err != nil {
					return err
				}
				return expectNoWarning(string(res.Stdout))
			},
		},
	}
}

// ScenarioNames lists the names of Scenarios().
func ScenarioNames() []string {
	all := Scenarios()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// Select returns the named scenarios in execution order, or all of them when
// names is empty.
func Select(names ...string) ([]Scenario, error) {
	all := Scenarios()
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Scenario
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	for n := range want {
		return nil, errors.Errorf("unknown scenario %q (known: %s)", n, strings.Join(ScenarioNames(), ", "))
	}
	return out, nil
}

// expectUntouched runs the injector with an implementer dispatch and checks
// that it printed {} and left every file alone.
func expectUntouched(w *workspace, input string) error {
	if err := w.write(testFileName, testFileBody); err != nil {
		return err
	}
	before, err := w.snapshot()
	if err != nil {
		return err
	}
	res, err := w.invoke(taskTool, input)
	if err != nil {
		return err
	}
	if err := expectEmptyObject(res); err != nil {
		return err
	}
	after, err := w.snapshot()
	if err != nil {
		return err
	}
	if diff := diffSnapshots(before, after); diff != "" {
		return errors.Errorf("files changed: %s", diff)
	}
	return nil
}

func expectInjected(w *workspace, task string) error {
	content, ok := w.read(testFileName)
	if !ok {
		return errors.Errorf("%s is missing", testFileName)
	}
	if marker := "TODO:BACKLOG[" + task + "]"; !strings.Contains(content, marker) {
		return errors.Errorf("%s does not contain %s", testFileName, marker)
	}
	tracker, ok := w.read(session.TodosFile)
	if !ok {
		return errors.Errorf("tracker %s was not created", session.TodosFile)
	}
	if !strings.Contains(tracker, task) {
		return errors.Errorf("tracker does not mention %s", task)
	}
	return nil
}

func expectNoWarning(stdout string) error {
	if strings.Contains(stdout, "WARNING") {
		return errors.Errorf("unexpected WARNING in stdout: %q", truncate(stdout))
	}
	return nil
}
