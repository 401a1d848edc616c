// Package config holds the pluginlint settings: the names a bundle is expected
// to ship, content thresholds, sweep exclusions and hook execution limits.
// Values come from viper so they can be set in .pluginlint.yaml, through
// PLUGINLINT_* environment variables or command line flags.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. PLUGINLINT_PLUGIN_NAME.
const EnvPrefix = "PLUGINLINT"

// FileName is the config file name looked up without extension.
const FileName = ".pluginlint"

// Config is the resolved pluginlint configuration.
type Config struct {
	PluginName    string        `mapstructure:"plugin_name"`
	PluginRootVar string        `mapstructure:"plugin_root_var"`
	HookTimeout   time.Duration `mapstructure:"hook_timeout"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`

	Expected   Expected   `mapstructure:"expected"`
	Thresholds Thresholds `mapstructure:"thresholds"`
	Sweep      Sweep      `mapstructure:"sweep"`
	Contract   Contract   `mapstructure:"contract"`
}

// Expected lists the content a bundle must ship.
type Expected struct {
	Skills   []string `mapstructure:"skills"`
	Commands []string `mapstructure:"commands"`
	Agents   []string `mapstructure:"agents"`
	Hooks    []string `mapstructure:"hooks"`
}

// Thresholds are minimum content sizes, in characters.
type Thresholds struct {
	SkillBody     int `mapstructure:"skill_body"`
	CommandLength int `mapstructure:"command_length"`
	AgentBody     int `mapstructure:"agent_body"`
}

// Sweep configures the marker sweep.
type Sweep struct {
	Excludes []string `mapstructure:"excludes"`
}

// Contract names the hook scripts exercised by the conformance harness.
type Contract struct {
	Injector string `mapstructure:"injector"`
	Sweeper  string `mapstructure:"sweeper"`
}

// DefaultSweepExcludes are directory name patterns never scanned for markers.
var DefaultSweepExcludes = []string{
	".git", ".hg", ".svn",
	".venv", "venv*",
	"node_modules",
	"__pycache__", ".tox", ".mypy_cache", ".pytest_cache",
	"dist", "build", "target", "vendor",
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		PluginName:    "workflow-ecosystem",
		PluginRootVar: "CLAUDE_PLUGIN_ROOT",
		HookTimeout:   30 * time.Second,
		LogLevel:      "warn",
		LogFormat:     "text",
		Expected: Expected{
			Skills: []string{
				"angular-development",
				"brainstorming",
				"developing-backlogs",
				"git-workflow",
				"orchestrating-subagents",
				"python-development",
				"subagent-state-management",
				"systematic-debugging",
				"typescript-development",
				"using-ecosystem",
				"verification",
				"workflow-management",
			},
			Commands: []string{
				"backlog-development",
				"brainstorm",
				"branch",
				"commit",
				"implement",
				"pr",
				"verify",
				"workflow",
			},
			Agents: []string{
				"code-implementer",
				"quality-reviewer",
				"spec-reviewer",
			},
			Hooks: []string{
				"brainstorm-end.sh",
				"brainstorm-mode-check.sh",
				"brainstorm-start.sh",
				"main-branch-protection.sh",
				"phase-transition.sh",
				"run-hook.cmd",
				"session-start.sh",
				"tdd-precommit-check.sh",
				"validate-context-packet.sh",
				"verify-before-commit.sh",
				"workflow-phase-check.sh",
				"workflow-skip-set.sh",
			},
		},
		Thresholds: Thresholds{
			SkillBody:     100,
			CommandLength: 200,
			AgentBody:     500,
		},
		Sweep: Sweep{
			Excludes: append([]string(nil), DefaultSweepExcludes...),
		},
		Contract: Contract{
			Injector: "todo-injector.sh",
			Sweeper:  "todo-sweep.sh",
		},
	}
}

// SetDefaults registers Default() on v so that every key is known to viper
// and can be overridden from the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("plugin_name", d.PluginName)
	v.SetDefault("plugin_root_var", d.PluginRootVar)
	v.SetDefault("hook_timeout", d.HookTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("expected.skills", d.Expected.Skills)
	v.SetDefault("expected.commands", d.Expected.Commands)
	v.SetDefault("expected.agents", d.Expected.Agents)
	v.SetDefault("expected.hooks", d.Expected.Hooks)
	v.SetDefault("thresholds.skill_body", d.Thresholds.SkillBody)
	v.SetDefault("thresholds.command_length", d.Thresholds.CommandLength)
	v.SetDefault("thresholds.agent_body", d.Thresholds.AgentBody)
	v.SetDefault("sweep.excludes", d.Sweep.Excludes)
	v.SetDefault("contract.injector", d.Contract.Injector)
	v.SetDefault("contract.sweeper", d.Contract.Sweeper)
}

// Init prepares v for env overrides and config file lookup in searchPaths.
// A missing config file is not an error.
func Init(v *viper.Viper, searchPaths ...string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings that would make every check meaningless.
func (c Config) Validate() error {
	if c.PluginRootVar == "" {
		return errors.New("plugin_root_var must not be empty")
	}
	if c.HookTimeout <= 0 {
		return errors.Errorf("hook_timeout must be positive, got %s", c.HookTimeout)
	}
	if c.Thresholds.SkillBody < 0 || c.Thresholds.CommandLength < 0 || c.Thresholds.AgentBody < 0 {
		return errors.New("thresholds must not be negative")
	}
	if c.Contract.Injector == "" || c.Contract.Sweeper == "" {
		return errors.New("contract.injector and contract.sweeper must be set")
	}
	return nil
}
