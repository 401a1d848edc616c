package hooks

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Environment variable names of the hook invocation contract.
const (
	EnvToolName   = "CLAUDE_TOOL_NAME"
	EnvToolInput  = "CLAUDE_TOOL_INPUT"
	EnvSessionDir = "CLAUDE_SESSION_DIR"
)

// ToolEvent is the simulated tool dispatch handed to a hook.
type ToolEvent struct {
	ToolName   string
	ToolInput  string
	SessionDir string
}

// Environ returns the event as KEY=value pairs. Empty fields are left out so
// the hook sees them as unset.
func (e ToolEvent) Environ() []string {
	var out []string
	if e.ToolName != "" {
		out = append(out, EnvToolName+"="+e.ToolName)
	}
	if e.ToolInput != "" {
		out = append(out, EnvToolInput+"="+e.ToolInput)
	}
	if e.SessionDir != "" {
		out = append(out, EnvSessionDir+"="+e.SessionDir)
	}
	return out
}

// Env is the hook-side view of the invocation environment.
type Env struct {
	ToolName   string `env:"CLAUDE_TOOL_NAME"`
	ToolInput  string `env:"CLAUDE_TOOL_INPUT"`
	SessionDir string `env:"CLAUDE_SESSION_DIR"`
}

// ParseEnv decodes the process environment. SessionDir falls back to the
// working directory.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, errors.Wrap(err, "failed to parse hook environment")
	}
	return e.withDefaults()
}

// ParseEnvMap decodes vars instead of the process environment.
func ParseEnvMap(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return e, errors.Wrap(err, "failed to parse hook environment")
	}
	return e.withDefaults()
}

func (e Env) withDefaults() (Env, error) {
	if e.SessionDir != "" {
		return e, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return e, errors.Wrap(err, "failed to get working directory")
	}
	e.SessionDir = wd
	return e, nil
}

// Output is the JSON object a hook prints on stdout. The zero value encodes
// as {}.
type Output struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries context the host injects back into the conversation.
type SpecificOutput struct {
	HookEventName     Event  `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// ContextOutput builds an Output that adds text for event.
func ContextOutput(event Event, text string) Output {
	return Output{HookSpecificOutput: &SpecificOutput{HookEventName: event, AdditionalContext: text}}
}

// IsEmpty reports whether o carries nothing, i.e. encodes as {}.
func (o Output) IsEmpty() bool {
	return o.HookSpecificOutput == nil
}

// Context returns the additional context, or "" when there is none.
func (o Output) Context() string {
	if o.HookSpecificOutput == nil {
		return ""
	}
	return o.HookSpecificOutput.AdditionalContext
}

// Write encodes o as a single JSON line.
func (o Output) Write(w io.Writer) error {
	return errors.Wrap(json.NewEncoder(w).Encode(o), "failed to write hook output")
}

// ParseOutput decodes hook stdout. Empty output is treated as {}.
func ParseOutput(stdout []byte) (Output, error) {
	var out Output
	if len(bytes.TrimSpace(stdout)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(stdout, &out); err != nil {
		return out, errors.Wrap(err, "hook output is not a JSON object")
	}
	return out, nil
}
