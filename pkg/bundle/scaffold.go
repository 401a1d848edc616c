package bundle

import (
	"bytes"
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/config"
	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/manifest"
)

// Template files
//
//go:embed templates/*
var templateFS embed.FS

const (
	skillTemplate       = "templates/skill.md.tmpl"
	commandTemplate     = "templates/command.md.tmpl"
	agentTemplate       = "templates/agent.md.tmpl"
	hookTemplate        = "templates/hook.sh.tmpl"
	backlogHookTemplate = "templates/backlog-hook.sh.tmpl"
	wrapperTemplate     = "templates/run-hook.cmd.tmpl"
)

// Wrapper and session hook names wired into the scaffolded hooks.json.
const (
	WrapperScript      = "run-hook.cmd"
	SessionStartScript = "session-start.sh"
)

// ScaffoldOptions controls Scaffold.
type ScaffoldOptions struct {
	// Binary is the pluginlint executable the backlog hooks delegate to.
	Binary  string
	Version string
	// Force overwrites existing files.
	Force bool
}

type templateData struct {
	Name        string
	Title       string
	Skill       string
	Description string
	Binary      string
	Subcommand  string
}

// Scaffold writes a bundle at root that satisfies every rule for cfg: one
// skill, command and agent per expected name, the expected hook scripts, and
// backlog hooks that delegate to the pluginlint binary.
func Scaffold(root string, cfg config.Config, opts ScaffoldOptions) error {
	if opts.Binary == "" {
		opts.Binary = "pluginlint"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	l := Layout{Root: root}
	w := &scaffolder{force: opts.Force}

	name := cfg.PluginName
	if name == "" {
		name = filepath.Base(root)
	}
	m := manifest.Manifest{
		Name:        name,
		Version:     opts.Version,
		Description: "Workflow skills, commands, agents and hooks",
		Keywords:    []string{"workflow"},
	}
	if err := w.json(l.ManifestPath(), m); err != nil {
		return err
	}

	skill := "workflow-management"
	if len(cfg.Expected.Skills) > 0 {
		skill = cfg.Expected.Skills[0]
	}
	for _, s := range cfg.Expected.Skills {
		if err := w.render(l.SkillFile(s), skillTemplate, templateData{Name: s, Title: titleCase(s)}, 0o644); err != nil {
			return err
		}
	}
	for _, c := range cfg.Expected.Commands {
		if err := w.render(l.CommandFile(c), commandTemplate, templateData{Name: c, Skill: skill}, 0o644); err != nil {
			return err
		}
	}
	for _, a := range cfg.Expected.Agents {
		if err := w.render(l.AgentFile(a), agentTemplate, templateData{Name: a, Title: titleCase(a)}, 0o644); err != nil {
			return err
		}
	}

	scripts := union(cfg.Expected.Hooks, []string{WrapperScript, SessionStartScript})
	for _, s := range scripts {
		if s == cfg.Contract.Injector || s == cfg.Contract.Sweeper {
			continue
		}
		tmpl := hookTemplate
		if s == WrapperScript {
			tmpl = wrapperTemplate
		}
		data := templateData{Name: s, Description: "placeholder hook"}
		if err := w.render(l.HookScript(s), tmpl, data, 0o755); err != nil {
			return err
		}
	}
	for script, sub := range map[string]string{cfg.Contract.Injector: "todo-inject", cfg.Contract.Sweeper: "todo-sweep"} {
		data := templateData{Name: script, Description: "backlog marker hook", Binary: opts.Binary, Subcommand: sub}
		if err := w.render(l.HookScript(script), backlogHookTemplate, data, 0o755); err != nil {
			return err
		}
	}

	for _, dir := range []string{SkillsDir, CommandsDir, AgentsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	return w.json(l.HooksConfigPath(), scaffoldHooksConfig(cfg))
}

func scaffoldHooksConfig(cfg config.Config) hooks.Config {
	root := "${" + cfg.PluginRootVar + "}/" + hooks.Dir + "/"
	command := func(cmd string) []hooks.Command {
		return []hooks.Command{{Type: "command", Command: cmd}}
	}
	return hooks.Config{
		Description: "Workflow hooks",
		Hooks: map[hooks.Event][]hooks.MatcherGroup{
			hooks.EventSessionStart: {
				{Matcher: "startup|resume|clear|compact", Hooks: command(`"` + root + WrapperScript + `" ` + SessionStartScript)},
			},
			hooks.EventPreToolUse: {
				{Matcher: "Skill|verification|verify", Hooks: command(root + cfg.Contract.Sweeper)},
			},
			hooks.EventPostToolUse: {
				{Matcher: "Task", Hooks: command(root + cfg.Contract.Injector)},
			},
		},
	}
}

type scaffolder struct {
	force bool
}

func (s *scaffolder) write(path string, data []byte, mode os.FileMode) error {
	if !s.force {
		if _, err := os.Stat(path); err == nil {
			return errors.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	// WriteFile keeps the mode of an existing file.
	return errors.Wrapf(os.Chmod(path, mode), "failed to set mode of %s", path)
}

func (s *scaffolder) json(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", filepath.Base(path))
	}
	return s.write(path, append(data, '\n'), 0o644)
}

func (s *scaffolder) render(path, name string, data templateData, mode os.FileMode) error {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "failed to read template file")
	}
	tmpl, err := template.New(filepath.Base(name)).Parse(string(content))
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return errors.Wrap(err, "failed to execute template")
	}
	return s.write(path, buf.Bytes(), mode)
}

// titleCase turns a kebab-case name into words, e.g. git-workflow -> Git Workflow.
func titleCase(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
