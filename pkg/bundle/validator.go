package bundle

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/config"
	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/logger"
)

// Rule names, in the order they run.
const (
	RuleStructure    = "structure"
	RuleManifest     = "manifest"
	RuleSkills       = "skills"
	RuleCommands     = "commands"
	RuleAgents       = "agents"
	RuleHooks        = "hooks"
	RuleRegistration = "registration"
)

// Rule is a named group of checks.
type Rule struct {
	Name        string
	Description string
	check       func(*run)
}

// Rules returns every rule in execution order.
func Rules() []Rule {
	return []Rule{
		{RuleStructure, "required files and directories exist", checkStructure},
		{RuleManifest, "plugin.json is well formed", checkManifest},
		{RuleSkills, "skills carry valid frontmatter and content", checkSkills},
		{RuleCommands, "commands have a title, usage and a skill reference", checkCommands},
		{RuleAgents, "agents carry valid frontmatter and a role definition", checkAgents},
		{RuleHooks, "hooks.json is valid and its scripts are usable", checkHooks},
		{RuleRegistration, "the backlog hooks are registered", checkRegistration},
	}
}

// RuleNames returns the names of Rules().
func RuleNames() []string {
	rules := Rules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// Validator checks bundles against the configured expectations.
type Validator struct {
	cfg  config.Config
	only map[string]bool
}

// Option configures a Validator.
type Option func(*Validator) error

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(v *Validator) error {
		v.cfg = cfg
		return nil
	}
}

// WithRules restricts the run to the named rules.
func WithRules(names ...string) Option {
	return func(v *Validator) error {
		known := make(map[string]bool)
		for _, n := range RuleNames() {
			known[n] = true
		}
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if !known[n] {
				return errors.Errorf("unknown rule %q (known: %s)", n, strings.Join(RuleNames(), ", "))
			}
			if v.only == nil {
				v.only = make(map[string]bool)
			}
			v.only[n] = true
		}
		return nil
	}
}

// NewValidator returns a Validator using config.Default() unless overridden.
func NewValidator(opts ...Option) (*Validator, error) {
	v := &Validator{cfg: config.Default()}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// run is the state shared by the rules of one validation.
type run struct {
	ctx    context.Context
	cfg    config.Config
	layout Layout
	report *Report

	hooksLoaded bool
	hooksDoc    *hooks.Document
	hooksErr    error
}

// hooksConfig loads hooks.json once per run.
func (r *run) hooksConfig() (*hooks.Document, error) {
	if !r.hooksLoaded {
		r.hooksLoaded = true
		r.hooksDoc, r.hooksErr = hooks.LoadConfig(r.layout.HooksConfigPath())
	}
	return r.hooksDoc, r.hooksErr
}

// Validate runs the selected rules against the bundle at root. The error is
// non-nil only when root itself cannot be inspected; rule violations are
// reported as findings.
func (v *Validator) Validate(ctx context.Context, root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read bundle root %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("bundle root %s is not a directory", root)
	}

	r := &run{
		ctx:    ctx,
		cfg:    v.cfg,
		layout: Layout{Root: root},
		report: &Report{Root: root, Rules: []string{}, Findings: []Finding{}},
	}
	for _, rule := range Rules() {
		if v.only != nil && !v.only[rule.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := len(r.report.Findings)
		rule.check(r)
		r.report.Rules = append(r.report.Rules, rule.Name)
		logger.G(ctx).WithField("rule", rule.Name).
			WithField("findings", len(r.report.Findings)-before).
			Debug("rule finished")
	}
	return r.report, nil
}
