package bundle

import (
	"bytes"
	"path"
	"path/filepath"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
)

func checkHooks(r *run) {
	cfgPath := r.layout.HooksConfigPath()
	rel := r.layout.Rel(cfgPath)

	if isFile(cfgPath) {
		checkHooksConfig(r, rel)
	}

	scripts, err := hooks.DiscoverScripts(r.layout.HooksDir())
	if err != nil {
		r.report.add(RuleHooks, r.layout.Rel(r.layout.HooksDir()), "%v", err)
		return
	}
	for _, s := range scripts {
		if !s.Executable() {
			r.report.add(RuleHooks, r.layout.Rel(s.Path), "script is not executable (mode %s)", s.Mode)
		}
	}
}

func checkHooksConfig(r *run, rel string) {
	doc, err := r.hooksConfig()
	if err != nil {
		r.report.add(RuleHooks, rel, "%v", err)
		return
	}
	if !doc.HooksIsObject() {
		r.report.add(RuleHooks, rel, "'hooks' must be an object")
		return
	}

	v, err := hooks.ConfigValidator()
	if err != nil {
		r.report.add(RuleHooks, rel, "cannot build hooks schema: %v", err)
	} else if err := v.Validate(doc.Raw); err != nil {
		r.report.add(RuleHooks, rel, "schema violation: %v", err)
	}

	rootVar := r.cfg.PluginRootVar
	if !bytes.Contains(doc.Raw, []byte(rootVar)) {
		r.report.add(RuleHooks, rel, "commands should use ${%s} to locate scripts", rootVar)
	}

	if len(doc.Config.Hooks[hooks.EventSessionStart]) == 0 {
		r.report.add(RuleHooks, rel, "no %s hooks defined", hooks.EventSessionStart)
	}
	for _, e := range doc.Config.InvalidMatchers() {
		r.report.add(RuleHooks, rel, "%v", e)
	}

	for _, ref := range hooks.ScriptRefs(doc.Config.Entries(), rootVar) {
		target := filepath.Join(r.layout.Root, filepath.FromSlash(ref.Path))
		if isFile(target) {
			continue
		}
		if ref.Wrapped {
			r.report.add(RuleHooks, rel, "%s command passes %s to a wrapper but %s does not exist",
				ref.Entry.Event, path.Base(ref.Path), ref.Path)
			continue
		}
		r.report.add(RuleHooks, rel, "%s command references missing file %s", ref.Entry.Event, ref.Path)
	}
}

func checkRegistration(r *run) {
	cfgPath := r.layout.HooksConfigPath()
	rel := r.layout.Rel(cfgPath)
	injector := r.cfg.Contract.Injector
	sweeper := r.cfg.Contract.Sweeper

	if doc, err := r.hooksConfig(); err != nil {
		r.report.add(RuleRegistration, rel, "cannot check registration: hook configuration unavailable")
	} else {
		if !anyReferences(doc.Config.EntriesFor(hooks.EventPostToolUse), injector) {
			r.report.add(RuleRegistration, rel, "%s is not registered for %s", injector, hooks.EventPostToolUse)
		}
		var verification []hooks.Entry
		for _, e := range doc.Config.EntriesFor(hooks.EventPreToolUse) {
			if e.MatcherMentions("verification", "verify") {
				verification = append(verification, e)
			}
		}
		if !anyReferences(verification, sweeper) {
			r.report.add(RuleRegistration, rel, "%s is not registered for %s with a verification matcher", sweeper, hooks.EventPreToolUse)
		}
	}

	for _, name := range []string{injector, sweeper} {
		p := r.layout.HookScript(name)
		s, err := hooks.StatScript(p)
		if err != nil {
			r.report.add(RuleRegistration, r.layout.Rel(p), "missing %s", name)
			continue
		}
		if !s.Executable() {
			r.report.add(RuleRegistration, r.layout.Rel(p), "%s is not executable", name)
		}
	}
}

func anyReferences(entries []hooks.Entry, script string) bool {
	for _, e := range entries {
		if e.References(script) {
			return true
		}
	}
	return false
}
