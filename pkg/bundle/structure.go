package bundle

import (
	"path/filepath"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/manifest"
)

func checkStructure(r *run) {
	l := r.layout
	rel := l.Rel

	if !isFile(l.ManifestPath()) {
		r.report.add(RuleStructure, rel(l.ManifestPath()), "missing plugin manifest")
	}
	for _, dir := range []string{SkillsDir, CommandsDir, AgentsDir, hooks.Dir} {
		path := filepath.Join(l.Root, dir)
		if !isDir(path) {
			r.report.add(RuleStructure, rel(path), "missing %s directory", dir)
		}
	}
	if !isFile(l.HooksConfigPath()) {
		r.report.add(RuleStructure, rel(l.HooksConfigPath()), "missing hook configuration")
	}

	exp := r.cfg.Expected
	for _, name := range exp.Skills {
		dir := filepath.Join(l.Root, SkillsDir, name)
		switch {
		case !isDir(dir):
			r.report.add(RuleStructure, rel(dir), "missing skill %s", name)
		case !isFile(l.SkillFile(name)):
			r.report.add(RuleStructure, rel(l.SkillFile(name)), "skill %s has no %s", name, SkillFileName)
		}
	}
	for _, name := range exp.Commands {
		if !isFile(l.CommandFile(name)) {
			r.report.add(RuleStructure, rel(l.CommandFile(name)), "missing command %s", name)
		}
	}
	for _, name := range exp.Agents {
		if !isFile(l.AgentFile(name)) {
			r.report.add(RuleStructure, rel(l.AgentFile(name)), "missing agent %s", name)
		}
	}
	for _, name := range exp.Hooks {
		if !isFile(l.HookScript(name)) {
			r.report.add(RuleStructure, rel(l.HookScript(name)), "missing hook script %s", name)
		}
	}
}

func checkManifest(r *run) {
	path := r.layout.ManifestPath()
	rel := r.layout.Rel(path)
	if !isFile(path) {
		// reported by the structure rule
		return
	}

	doc, err := manifest.Load(path)
	if err != nil {
		r.report.add(RuleManifest, rel, "%v", err)
		return
	}

	v, err := manifest.Validator()
	if err != nil {
		r.report.add(RuleManifest, rel, "cannot build manifest schema: %v", err)
	} else if err := v.Validate(doc.Raw); err != nil {
		r.report.add(RuleManifest, rel, "schema violation: %v", err)
	}

	if !doc.Has("name") {
		r.report.add(RuleManifest, rel, "missing name field")
	}
	if !doc.Has("version") {
		r.report.add(RuleManifest, rel, "missing version field")
	}

	if name, ok := doc.Fields["name"].(string); ok {
		if want := r.cfg.PluginName; want != "" && name != want {
			r.report.add(RuleManifest, rel, "name is %q, expected %q", name, want)
		}
		if !manifest.IsKebabCase(name) {
			r.report.add(RuleManifest, rel, "name %q must be kebab-case (lowercase, no spaces or underscores)", name)
		}
	}
	if version, ok := doc.Fields["version"].(string); ok && !manifest.IsSemver(version) {
		r.report.add(RuleManifest, rel, "version %q is not valid semver", version)
	}
}
