package backlog

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ImplementerAgent is the subagent whose dispatches receive markers.
const ImplementerAgent = "code-implementer"

var (
	taskPattern     = regexp.MustCompile(`\bTask\s+(\d+)\b`)
	testFilePattern = regexp.MustCompile(`(?m)^[ \t]*(?:[-*][ \t]*)?(?:\*\*)?Test:(?:\*\*)?[ \t]*(.+?)[ \t]*$`)
)

// Dispatch is what the injector needs from a Task tool invocation.
type Dispatch struct {
	Implementer bool
	Task        int
	TestFile    string
}

// taskInput is the structured form of a Task tool input.
type taskInput struct {
	SubagentType string `mapstructure:"subagent_type"`
	Description  string `mapstructure:"description"`
	Prompt       string `mapstructure:"prompt"`
}

// ParseDispatch extracts the dispatch from a tool input, which may be plain
// text or a JSON object with subagent_type, description and prompt fields.
func ParseDispatch(input string) Dispatch {
	text := dispatchText(input)

	d := Dispatch{Implementer: strings.Contains(text, ImplementerAgent)}
	if m := taskPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			d.Task = n
		}
	}
	if m := testFilePattern.FindStringSubmatch(text); m != nil {
		d.TestFile = strings.Trim(m[1], "`\"'")
	}
	return d
}

func dispatchText(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "{") {
		return input
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return input
	}
	var ti taskInput
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ti,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return input
	}
	if err := decoder.Decode(raw); err != nil {
		return input
	}

	var parts []string
	for _, s := range []string{ti.SubagentType, ti.Description, ti.Prompt} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Ready reports whether the dispatch carries everything needed to inject.
func (d Dispatch) Ready() bool {
	return d.Implementer && d.Task > 0 && d.TestFile != ""
}
