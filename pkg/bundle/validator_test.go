package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/pluginlint/pkg/config"
)

// newBundle scaffolds a valid bundle from the default configuration.
func newBundle(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "workflow-ecosystem")
	require.NoError(t, Scaffold(root, config.Default(), ScaffoldOptions{}))
	return root
}

func validate(t *testing.T, root string, rules ...string) *Report {
	t.Helper()
	v, err := NewValidator(WithRules(rules...))
	require.NoError(t, err)
	report, err := v.Validate(context.Background(), root)
	require.NoError(t, err)
	return report
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func messages(report *Report, rule string) []string {
	var out []string
	for _, f := range report.ByRule()[rule] {
		out = append(out, f.Path+": "+f.Message)
	}
	return out
}

func assertFinding(t *testing.T, report *Report, rule, path, contains string) {
	t.Helper()
	for _, f := range report.Findings {
		if f.Rule == rule && f.Path == path && strings.Contains(f.Message, contains) {
			return
		}
	}
	t.Fatalf("no %s finding for %s containing %q; got %v", rule, path, contains, report.Findings)
}

func TestValidate_ScaffoldIsClean(t *testing.T) {
	report := validate(t, newBundle(t))
	assert.Empty(t, report.Findings)
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
	assert.Equal(t, RuleNames(), report.Rules)
}

func TestValidate_RootErrors(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = v.Validate(context.Background(), file)
	assert.Error(t, err)
}

func TestWithRules(t *testing.T) {
	_, err := NewValidator(WithRules("skills", "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown rule "nope"`)

	report := validate(t, t.TempDir(), RuleManifest, RuleSkills)
	assert.Equal(t, []string{RuleManifest, RuleSkills}, report.Rules)
}

func TestStructure_EmptyDir(t *testing.T) {
	report := validate(t, t.TempDir(), RuleStructure)

	assertFinding(t, report, RuleStructure, ".claude-plugin/plugin.json", "missing plugin manifest")
	assertFinding(t, report, RuleStructure, "skills", "missing skills directory")
	assertFinding(t, report, RuleStructure, "hooks/hooks.json", "missing hook configuration")
	assertFinding(t, report, RuleStructure, "skills/brainstorming", "missing skill brainstorming")
	assertFinding(t, report, RuleStructure, "commands/pr.md", "missing command pr")
	assertFinding(t, report, RuleStructure, "agents/spec-reviewer.md", "missing agent spec-reviewer")
	assertFinding(t, report, RuleStructure, "hooks/run-hook.cmd", "missing hook script")
}

func TestStructure_SkillWithoutSkillMD(t *testing.T) {
	root := newBundle(t)
	require.NoError(t, os.Remove(filepath.Join(root, "skills", "verification", SkillFileName)))

	report := validate(t, root)
	assertFinding(t, report, RuleStructure, "skills/verification/SKILL.md", "has no SKILL.md")
	assert.Len(t, report.Findings, 1, "content rules skip files the structure rule reports")
}

func TestManifest(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		contains []string
	}{
		{"not json", `{"name": `, []string{"invalid JSON"}},
		{"not an object", `["x"]`, []string{"JSON object"}},
		{"missing fields", `{"description": "x"}`, []string{"missing name field", "missing version field", "schema violation"}},
		{"wrong name", `{"name": "other-plugin", "version": "1.0.0"}`, []string{`expected "workflow-ecosystem"`}},
		{"not kebab", `{"name": "Workflow_Ecosystem", "version": "1.0.0"}`, []string{"kebab-case"}},
		{"bad version", `{"name": "workflow-ecosystem", "version": "1.0"}`, []string{"not valid semver", "schema violation"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newBundle(t)
			write(t, root, ".claude-plugin/plugin.json", tt.content)

			report := validate(t, root, RuleManifest)
			for _, c := range tt.contains {
				assertFinding(t, report, RuleManifest, ".claude-plugin/plugin.json", c)
			}
		})
	}
}

func TestManifest_NameCheckDisabled(t *testing.T) {
	root := newBundle(t)
	write(t, root, ".claude-plugin/plugin.json", `{"name": "another-plugin", "version": "2.0.0"}`)

	cfg := config.Default()
	cfg.PluginName = ""
	v, err := NewValidator(WithConfig(cfg), WithRules(RuleManifest))
	require.NoError(t, err)
	report, err := v.Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
}

func TestSkills(t *testing.T) {
	long := strings.Repeat("Substantial guidance for the skill. ", 5)
	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"no frontmatter", "# Brainstorming\n" + long, "missing frontmatter"},
		{"unclosed frontmatter", "---\nname: brainstorming\n" + long, "not closed"},
		{"invalid yaml", "---\nname: [oops\n---\n" + long, "invalid YAML"},
		{"not a mapping", "---\n- a\n- b\n---\n" + long, "not a YAML mapping"},
		{"missing description", "---\nname: brainstorming\n---\n" + long, "frontmatter missing description"},
		{"empty name", "---\nname: \"\"\ndescription: x\n---\n" + long, "name must be a non-empty string"},
		{"name mismatch", "---\nname: brainstorm\ndescription: x\n---\n" + long, `does not match directory "brainstorming"`},
		{"short body", "---\nname: brainstorming\ndescription: x\n---\n# Too short\n", "expected more than 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newBundle(t)
			write(t, root, "skills/brainstorming/SKILL.md", tt.content)

			report := validate(t, root, RuleSkills)
			assertFinding(t, report, RuleSkills, "skills/brainstorming/SKILL.md", tt.contains)
		})
	}
}

func TestSkills_ExtraSkillOnDisk(t *testing.T) {
	root := newBundle(t)
	write(t, root, "skills/extra-skill/SKILL.md", "no frontmatter here")

	report := validate(t, root, RuleSkills)
	assertFinding(t, report, RuleSkills, "skills/extra-skill/SKILL.md", "missing frontmatter")
}

func TestCommands(t *testing.T) {
	padding := "\n" + strings.Repeat("More words about this command and the skill. ", 5)
	valid := "# /commit\n\nRuns the git-workflow skill.\n\n## Usage\n\n```\n/commit\n```\n" + padding

	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"no title", "Commit things\n" + valid, "must be a '# ' title"},
		{"title without name", strings.Replace(valid, "# /commit", "# Save work", 1), "does not mention commit"},
		{"no usage", strings.Replace(valid, "## Usage", "## Examples", 1), "missing '## Usage'"},
		{"no code block", strings.Replace(valid, "```\n/commit\n```\n", "/commit\n", 1), "missing fenced code"},
		{"no skill reference", "# /commit\n\n## Usage\n\n```\n/commit\n```\n" + strings.Repeat("Plain words only. ", 15), "does not reference the skill"},
		{"too short", "# /commit\nskill\n## Usage\n```\nx\n```\n", "expected more than 200"},
		{"broken frontmatter", "---\n: [\n---\n" + valid, "invalid YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newBundle(t)
			write(t, root, "commands/commit.md", tt.content)

			report := validate(t, root, RuleCommands)
			assertFinding(t, report, RuleCommands, "commands/commit.md", tt.contains)
		})
	}

	t.Run("valid without frontmatter", func(t *testing.T) {
		root := newBundle(t)
		write(t, root, "commands/commit.md", valid)
		assert.Empty(t, messages(validate(t, root, RuleCommands), RuleCommands))
	})

	for _, heading := range []string{"## Usage Examples", "## Usage:"} {
		t.Run("accepts "+heading, func(t *testing.T) {
			root := newBundle(t)
			write(t, root, "commands/commit.md", strings.Replace(valid, "## Usage", heading, 1))
			assert.Empty(t, messages(validate(t, root, RuleCommands), RuleCommands))
		})
	}

	t.Run("uppercase title", func(t *testing.T) {
		root := newBundle(t)
		write(t, root, "commands/commit.md", strings.Replace(valid, "# /commit", "# COMMIT Command", 1))
		assert.Empty(t, messages(validate(t, root, RuleCommands), RuleCommands))
	})
}

func TestAgents(t *testing.T) {
	body := "\n# Spec Reviewer\n\n## Your Role\n\n" + strings.Repeat("Review the implementation against the spec. ", 15)

	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"no frontmatter", body, "missing frontmatter"},
		{"missing name", "---\ndescription: reviews\n---\n" + body, "frontmatter missing name"},
		{"name mismatch", "---\nname: reviewer\ndescription: reviews\n---\n" + body, `does not match filename "spec-reviewer.md"`},
		{"no role", "---\nname: spec-reviewer\ndescription: reviews\n---\n" + strings.Replace(body, "## Your Role", "## Overview", 1), "missing role definition"},
		{"short body", "---\nname: spec-reviewer\ndescription: reviews\n---\n## Role\nShort.\n", "expected more than 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newBundle(t)
			write(t, root, "agents/spec-reviewer.md", tt.content)

			report := validate(t, root, RuleAgents)
			assertFinding(t, report, RuleAgents, "agents/spec-reviewer.md", tt.contains)
		})
	}

	for _, role := range []string{"## Responsibilities", "# Role", "### Core Role", "## Role and Responsibilities", "Role: reviewer"} {
		t.Run("accepts "+role, func(t *testing.T) {
			root := newBundle(t)
			content := "---\nname: spec-reviewer\ndescription: reviews\n---\n" + strings.Replace(body, "## Your Role", role, 1)
			write(t, root, "agents/spec-reviewer.md", content)
			assert.Empty(t, messages(validate(t, root, RuleAgents), RuleAgents))
		})
	}
}

func TestHooks(t *testing.T) {
	const wrapped = `{"hooks": {
  "SessionStart": [{"hooks": [{"type": "command", "command": "\"${CLAUDE_PLUGIN_ROOT}/hooks/run-hook.cmd\" session-start.sh"}]}],
  "PreToolUse": [{"matcher": "Skill|verification|verify", "hooks": [{"type": "command", "command": "${CLAUDE_PLUGIN_ROOT}/hooks/todo-sweep.sh"}]}],
  "PostToolUse": [{"matcher": "Task", "hooks": [{"type": "command", "command": "${CLAUDE_PLUGIN_ROOT}/hooks/todo-injector.sh"}]}]
}}`

	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"not json", `{"hooks": `, "invalid JSON"},
		{"hooks not object", `{"hooks": []}`, "'hooks' must be an object"},
		{"schema", strings.Replace(wrapped, `"type": "command", "command": "${CLAUDE_PLUGIN_ROOT}/hooks/todo-sweep.sh"`, `"type": "shell", "command": "${CLAUDE_PLUGIN_ROOT}/hooks/todo-sweep.sh"`, 1), "schema violation"},
		{"no root variable", strings.ReplaceAll(wrapped, "${CLAUDE_PLUGIN_ROOT}", "${CLAUDE_PROJECT_DIR}"), "should use ${CLAUDE_PLUGIN_ROOT}"},
		{"no session start", strings.Replace(wrapped, `"SessionStart"`, `"Stop"`, 1), "no SessionStart hooks"},
		{"bad matcher", strings.Replace(wrapped, `"Task"`, `"Task("`, 1), `invalid matcher "Task("`},
		{"missing script", strings.Replace(wrapped, "todo-sweep.sh", "todo-swept.sh", 1), "missing file hooks/todo-swept.sh"},
		{"missing wrapped script", strings.Replace(wrapped, "session-start.sh", "session-begin.sh", 1), "passes session-begin.sh to a wrapper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newBundle(t)
			write(t, root, "hooks/hooks.json", tt.content)

			report := validate(t, root, RuleHooks)
			assertFinding(t, report, RuleHooks, "hooks/hooks.json", tt.contains)
		})
	}

	t.Run("valid", func(t *testing.T) {
		root := newBundle(t)
		write(t, root, "hooks/hooks.json", wrapped)
		assert.Empty(t, messages(validate(t, root, RuleHooks), RuleHooks))
	})
}

func TestHooks_NonExecutableScript(t *testing.T) {
	root := newBundle(t)
	require.NoError(t, os.Chmod(filepath.Join(root, "hooks", "phase-transition.sh"), 0o644))

	report := validate(t, root, RuleHooks)
	assertFinding(t, report, RuleHooks, "hooks/phase-transition.sh", "not executable")
}

func TestRegistration(t *testing.T) {
	t.Run("injector not registered", func(t *testing.T) {
		root := newBundle(t)
		write(t, root, "hooks/hooks.json", `{"hooks": {"PreToolUse": [{"matcher": "verify", "hooks": [{"type": "command", "command": "x/todo-sweep.sh"}]}]}}`)
		report := validate(t, root, RuleRegistration)
		assertFinding(t, report, RuleRegistration, "hooks/hooks.json", "todo-injector.sh is not registered for PostToolUse")
		assert.Len(t, report.Findings, 1)
	})

	t.Run("sweeper without verification matcher", func(t *testing.T) {
		root := newBundle(t)
		write(t, root, "hooks/hooks.json", `{"hooks": {
  "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "x/todo-sweep.sh"}]}],
  "PostToolUse": [{"hooks": [{"type": "command", "command": "x/todo-injector.sh"}]}]}}`)
		report := validate(t, root, RuleRegistration)
		assertFinding(t, report, RuleRegistration, "hooks/hooks.json", "todo-sweep.sh is not registered for PreToolUse with a verification matcher")
	})

	t.Run("scripts missing or not executable", func(t *testing.T) {
		root := newBundle(t)
		require.NoError(t, os.Remove(filepath.Join(root, "hooks", "todo-injector.sh")))
		require.NoError(t, os.Chmod(filepath.Join(root, "hooks", "todo-sweep.sh"), 0o644))
		report := validate(t, root, RuleRegistration)
		assertFinding(t, report, RuleRegistration, "hooks/todo-injector.sh", "missing todo-injector.sh")
		assertFinding(t, report, RuleRegistration, "hooks/todo-sweep.sh", "not executable")
	})

	t.Run("no hook configuration", func(t *testing.T) {
		root := newBundle(t)
		require.NoError(t, os.Remove(filepath.Join(root, "hooks", "hooks.json")))
		report := validate(t, root, RuleRegistration)
		assertFinding(t, report, RuleRegistration, "hooks/hooks.json", "cannot check registration")
	})
}
