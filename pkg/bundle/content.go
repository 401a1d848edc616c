package bundle

import (
	"os"
	"strings"

	"github.com/jingkaihe/pluginlint/pkg/frontmatter"
)

// roleHeadings are the heading prefixes accepted as an agent role definition.
var roleHeadings = []string{"Role", "Your Role", "Core Role", "Responsibilities"}

// loadDocument reads and parses path. Missing files are skipped silently
// since the structure rule reports them; other failures become findings.
func loadDocument(r *run, rule, path string) (*frontmatter.Document, bool) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false
	}
	if err != nil {
		r.report.add(rule, r.layout.Rel(path), "cannot read file: %v", err)
		return nil, false
	}
	doc, err := frontmatter.Parse(content)
	if err != nil {
		r.report.add(rule, r.layout.Rel(path), "%v", err)
		return nil, false
	}
	return doc, true
}

// requireFields checks that the frontmatter has non-empty string name and
// description values and returns the name.
func requireFields(r *run, rule, rel string, doc *frontmatter.Document) string {
	var name string
	for _, key := range []string{"name", "description"} {
		if !doc.Has(key) {
			r.report.add(rule, rel, "frontmatter missing %s", key)
			continue
		}
		s, ok := doc.String(key)
		if !ok || strings.TrimSpace(s) == "" {
			r.report.add(rule, rel, "frontmatter %s must be a non-empty string", key)
			continue
		}
		if key == "name" {
			name = s
		}
	}
	return name
}

func checkSkills(r *run) {
	threshold := r.cfg.Thresholds.SkillBody
	for _, skill := range union(r.cfg.Expected.Skills, r.layout.Skills()) {
		path := r.layout.SkillFile(skill)
		rel := r.layout.Rel(path)

		doc, ok := loadDocument(r, RuleSkills, path)
		if !ok {
			continue
		}
		if !doc.HasFrontmatter {
			r.report.add(RuleSkills, rel, "%s", missingFrontmatter(doc))
			continue
		}

		if name := requireFields(r, RuleSkills, rel, doc); name != "" && name != skill {
			r.report.add(RuleSkills, rel, "name %q does not match directory %q", name, skill)
		}
		if n := doc.BodyLength(); n <= threshold {
			r.report.add(RuleSkills, rel, "body is %d characters, expected more than %d", n, threshold)
		}
	}
}

func checkCommands(r *run) {
	threshold := r.cfg.Thresholds.CommandLength
	for _, command := range union(r.cfg.Expected.Commands, r.layout.Commands()) {
		path := r.layout.CommandFile(command)
		rel := r.layout.Rel(path)

		doc, ok := loadDocument(r, RuleCommands, path)
		if !ok {
			continue
		}

		title := doc.Title()
		if !strings.HasPrefix(title, "# ") {
			r.report.add(RuleCommands, rel, "first line of the body must be a '# ' title, got %q", title)
		} else if lower := strings.ToLower(title); !strings.Contains(lower, command) && !strings.Contains(lower, "/"+command) {
			r.report.add(RuleCommands, rel, "title %q does not mention %s", title, command)
		}

		outline := doc.Outline()
		if !outline.HasHeadingPrefix(2, "Usage") {
			r.report.add(RuleCommands, rel, "missing '## Usage' section")
		}
		if outline.CodeBlocks == 0 {
			r.report.add(RuleCommands, rel, "missing fenced code example")
		}
		if !strings.Contains(strings.ToLower(doc.Body), "skill") {
			r.report.add(RuleCommands, rel, "does not reference the skill it delegates to")
		}
		if n := doc.Length(); n <= threshold {
			r.report.add(RuleCommands, rel, "file is %d characters, expected more than %d", n, threshold)
		}
	}
}

func checkAgents(r *run) {
	threshold := r.cfg.Thresholds.AgentBody
	for _, agent := range union(r.cfg.Expected.Agents, r.layout.Agents()) {
		path := r.layout.AgentFile(agent)
		rel := r.layout.Rel(path)

		doc, ok := loadDocument(r, RuleAgents, path)
		if !ok {
			continue
		}
		if !doc.HasFrontmatter {
			r.report.add(RuleAgents, rel, "%s", missingFrontmatter(doc))
			continue
		}

		if name := requireFields(r, RuleAgents, rel, doc); name != "" && name != agent {
			r.report.add(RuleAgents, rel, "name %q does not match filename %q", name, agent+markdownExt)
		}
		if !hasRoleDefinition(doc) {
			r.report.add(RuleAgents, rel, "missing role definition (a Role, Your Role, Core Role or Responsibilities heading, or a Role: line)")
		}
		if n := doc.BodyLength(); n <= threshold {
			r.report.add(RuleAgents, rel, "body is %d characters, expected more than %d", n, threshold)
		}
	}
}

func hasRoleDefinition(doc *frontmatter.Document) bool {
	if strings.Contains(doc.Body, "Role:") {
		return true
	}
	outline := doc.Outline()
	for _, h := range roleHeadings {
		if outline.HasHeadingPrefix(0, h) {
			return true
		}
	}
	return false
}

func missingFrontmatter(doc *frontmatter.Document) string {
	if strings.HasPrefix(doc.Body, frontmatter.Delimiter) {
		return "frontmatter block is not closed by a '---' line"
	}
	return "missing frontmatter (file must start with '---')"
}
