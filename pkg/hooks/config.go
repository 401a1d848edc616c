package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pluginlint/pkg/schema"
)

// Dir is the hooks directory of a bundle and ConfigFileName its registration file.
const (
	Dir            = "hooks"
	ConfigFileName = "hooks.json"
)

// ConfigPath returns the hooks.json location under root.
func ConfigPath(root string) string {
	return filepath.Join(root, Dir, ConfigFileName)
}

// Document is hooks.json as read from disk.
type Document struct {
	Path   string
	Raw    []byte
	Fields map[string]interface{}
	Config Config
}

// LoadConfig reads hooks.json. It fails when the file is missing, not JSON
// or not a JSON object; a wrongly shaped object still loads so that schema
// validation can describe the problem.
func LoadConfig(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, errors.Wrapf(err, "invalid JSON in %s", path)
	}
	fields, ok := generic.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("%s must contain a JSON object", path)
	}

	doc := &Document{Path: path, Raw: raw, Fields: fields}
	_ = json.Unmarshal(raw, &doc.Config)
	return doc, nil
}

// HooksIsObject reports whether the top-level "hooks" key holds an object.
func (d *Document) HooksIsObject() bool {
	_, ok := d.Fields["hooks"].(map[string]interface{})
	return ok
}

// ConfigValidator returns a schema validator for hooks.json.
func ConfigValidator() (*schema.Validator, error) {
	return schema.For(&Config{})
}

// Entry is one command together with where it is registered.
type Entry struct {
	Event   Event
	Matcher string
	Command Command
}

// Entries flattens the configuration in a stable order: known events first
// in declaration order, then unknown events alphabetically.
func (c Config) Entries() []Entry {
	var entries []Entry
	for _, event := range c.events() {
		entries = append(entries, c.EntriesFor(event)...)
	}
	return entries
}

// EntriesFor returns the commands registered for event in file order.
func (c Config) EntriesFor(event Event) []Entry {
	var entries []Entry
	for _, group := range c.Hooks[event] {
		for _, cmd := range group.Hooks {
			entries = append(entries, Entry{Event: event, Matcher: group.Matcher, Command: cmd})
		}
	}
	return entries
}

func (c Config) events() []Event {
	events := make([]Event, 0, len(c.Hooks))
	for _, known := range KnownEvents {
		if _, ok := c.Hooks[known]; ok {
			events = append(events, known)
		}
	}
	var unknown []Event
	for event := range c.Hooks {
		if !event.IsKnown() {
			unknown = append(unknown, event)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(events, unknown...)
}

// MatcherError describes a matcher that is not a valid regular expression.
type MatcherError struct {
	Event   Event
	Matcher string
	Err     error
}

func (e MatcherError) Error() string {
	return fmt.Sprintf("invalid matcher %q for %s: %v", e.Matcher, e.Event, e.Err)
}

// InvalidMatchers compiles every non-empty matcher and returns the failures.
func (c Config) InvalidMatchers() []MatcherError {
	var failures []MatcherError
	for _, event := range c.events() {
		for _, group := range c.Hooks[event] {
			if group.Matcher == "" {
				continue
			}
			if _, err := regexp.Compile(group.Matcher); err != nil {
				failures = append(failures, MatcherError{Event: event, Matcher: group.Matcher, Err: err})
			}
		}
	}
	return failures
}

// References reports whether the entry's command mentions script.
func (e Entry) References(script string) bool {
	return strings.Contains(e.Command.Command, script)
}

// MatcherMentions reports whether the matcher contains any of words.
func (e Entry) MatcherMentions(words ...string) bool {
	for _, w := range words {
		if strings.Contains(e.Matcher, w) {
			return true
		}
	}
	return false
}

// ScriptRef is a bundle file referenced from a hook command.
type ScriptRef struct {
	Entry Entry
	// Path is slash-separated and relative to the bundle root.
	Path string
	// Wrapped is set for a bare script name passed as an argument to a
	// root-relative wrapper such as run-hook.cmd; Path is then resolved
	// next to the wrapper.
	Wrapped bool
}

// ScriptRefs extracts every ${rootVar}/path reference from the commands, and
// bare script arguments that follow such a reference.
func ScriptRefs(entries []Entry, rootVar string) []ScriptRef {
	refPattern := regexp.MustCompile(`\$\{` + regexp.QuoteMeta(rootVar) + `\}/([^\s"']+)`)

	var refs []ScriptRef
	for _, entry := range entries {
		cmd := entry.Command.Command
		for _, m := range refPattern.FindAllStringSubmatchIndex(cmd, -1) {
			rel := cmd[m[2]:m[3]]
			refs = append(refs, ScriptRef{Entry: entry, Path: rel})

			for _, arg := range strings.Fields(cmd[m[1]:]) {
				arg = strings.Trim(arg, `"'`)
				if strings.Contains(arg, "/") || strings.Contains(arg, "$") {
					break
				}
				if !hasScriptExtension(arg) {
					continue
				}
				refs = append(refs, ScriptRef{
					Entry:   entry,
					Path:    path.Join(path.Dir(rel), arg),
					Wrapped: true,
				})
			}
		}
	}
	return refs
}

func hasScriptExtension(name string) bool {
	for _, ext := range ScriptExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
