// Package hooks models the hook side of a plugin bundle: the hooks.json
// registration file, the executable scripts under hooks/, and the
// subprocess contract used to invoke them with a simulated tool event.
package hooks

import "time"

// Event is a host lifecycle event a hook can be registered for.
type Event string

// Lifecycle events understood by the host application.
const (
	EventSessionStart     Event = "SessionStart"
	EventSessionEnd       Event = "SessionEnd"
	EventUserPromptSubmit Event = "UserPromptSubmit"
	EventPreToolUse       Event = "PreToolUse"
	EventPostToolUse      Event = "PostToolUse"
	EventStop             Event = "Stop"
	EventSubagentStop     Event = "SubagentStop"
	EventNotification     Event = "Notification"
	EventPreCompact       Event = "PreCompact"
)

// KnownEvents lists every Event constant.
var KnownEvents = []Event{
	EventSessionStart,
	EventSessionEnd,
	EventUserPromptSubmit,
	EventPreToolUse,
	EventPostToolUse,
	EventStop,
	EventSubagentStop,
	EventNotification,
	EventPreCompact,
}

// IsKnown reports whether e is one of KnownEvents.
func (e Event) IsKnown() bool {
	for _, k := range KnownEvents {
		if e == k {
			return true
		}
	}
	return false
}

// Config is the decoded hooks/hooks.json.
type Config struct {
	Description string                   `json:"description,omitempty"`
	Hooks       map[Event][]MatcherGroup `json:"hooks" jsonschema:"required"`
}

// MatcherGroup binds a tool-name matcher to the commands run when it matches.
// An empty matcher matches every tool.
type MatcherGroup struct {
	Matcher string    `json:"matcher,omitempty" jsonschema:"description=Regular expression matched against the tool name"`
	Hooks   []Command `json:"hooks" jsonschema:"required"`
}

// Command is a single hook invocation.
type Command struct {
	Type    string `json:"type" jsonschema:"required,enum=command"`
	Command string `json:"command" jsonschema:"required,minLength=1"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"minimum=1,description=Timeout in seconds"`
}

// DefaultTimeout bounds a hook subprocess when the caller sets none.
const DefaultTimeout = 30 * time.Second

// ScriptExtensions are the file suffixes treated as hook scripts.
var ScriptExtensions = []string{".sh", ".cmd"}
