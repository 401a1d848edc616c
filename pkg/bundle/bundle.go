// Package bundle validates a plugin bundle on disk: its layout, manifest,
// markdown content and hook registration. Every violated rule becomes a
// Finding so a single run reports everything that is wrong.
package bundle

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/manifest"
)

// Content directory names and file conventions.
const (
	SkillsDir     = "skills"
	CommandsDir   = "commands"
	AgentsDir     = "agents"
	SkillFileName = "SKILL.md"
	markdownExt   = ".md"
)

// Layout resolves the well-known paths of a bundle rooted at Root.
type Layout struct {
	Root string
}

// ManifestPath is .claude-plugin/plugin.json.
func (l Layout) ManifestPath() string { return manifest.Path(l.Root) }

// HooksDir is hooks/.
func (l Layout) HooksDir() string { return filepath.Join(l.Root, hooks.Dir) }

// HooksConfigPath is hooks/hooks.json.
func (l Layout) HooksConfigPath() string { return hooks.ConfigPath(l.Root) }

// SkillFile is skills/<name>/SKILL.md.
func (l Layout) SkillFile(name string) string {
	return filepath.Join(l.Root, SkillsDir, name, SkillFileName)
}

// CommandFile is commands/<name>.md.
func (l Layout) CommandFile(name string) string {
	return filepath.Join(l.Root, CommandsDir, name+markdownExt)
}

// AgentFile is agents/<name>.md.
func (l Layout) AgentFile(name string) string {
	return filepath.Join(l.Root, AgentsDir, name+markdownExt)
}

// HookScript is hooks/<name>.
func (l Layout) HookScript(name string) string {
	return filepath.Join(l.HooksDir(), name)
}

// Rel returns path relative to the root, slash-separated. Paths outside the
// root are returned unchanged.
func (l Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// Skills lists the skill directories that hold a SKILL.md.
func (l Layout) Skills() []string {
	entries, err := os.ReadDir(filepath.Join(l.Root, SkillsDir))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if isFile(l.SkillFile(e.Name())) {
			names = append(names, e.Name())
		}
	}
	return names
}

// Commands lists the command names found in commands/.
func (l Layout) Commands() []string {
	return markdownStems(filepath.Join(l.Root, CommandsDir))
}

// Agents lists the agent names found in agents/.
func (l Layout) Agents() []string {
	return markdownStems(filepath.Join(l.Root, AgentsDir))
}

func markdownStems(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != markdownExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), markdownExt))
	}
	return names
}

// union merges the expected names with those found on disk, keeping the
// expected ones first and sorting the extras.
func union(expected, found []string) []string {
	seen := make(map[string]bool, len(expected))
	out := make([]string, 0, len(expected)+len(found))
	for _, n := range expected {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	var extra []string
	for _, n := range found {
		if !seen[n] {
			seen[n] = true
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
