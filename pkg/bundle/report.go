package bundle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Finding is one violated rule.
type Finding struct {
	Rule    string `json:"rule"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (f Finding) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("[%s] %s", f.Rule, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Rule, f.Path, f.Message)
}

// Report collects the findings of one validation run.
type Report struct {
	Root     string    `json:"root"`
	Rules    []string  `json:"rules"`
	Findings []Finding `json:"findings"`
}

// OK reports whether the run produced no findings.
func (r *Report) OK() bool {
	return len(r.Findings) == 0
}

func (r *Report) add(rule, path, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{Rule: rule, Path: path, Message: fmt.Sprintf(format, args...)})
}

// ByRule groups findings by rule name.
func (r *Report) ByRule() map[string][]Finding {
	out := make(map[string][]Finding)
	for _, f := range r.Findings {
		out[f.Rule] = append(out[f.Rule], f)
	}
	return out
}

// Counts returns the number of findings per rule, including zero counts for
// every rule that ran.
func (r *Report) Counts() map[string]int {
	out := make(map[string]int, len(r.Rules))
	for _, name := range r.Rules {
		out[name] = 0
	}
	for _, f := range r.Findings {
		out[f.Rule]++
	}
	return out
}

// Paths returns the distinct paths with findings, sorted.
func (r *Report) Paths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range r.Findings {
		if f.Path != "" && !seen[f.Path] {
			seen[f.Path] = true
			out = append(out, f.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Err aggregates the findings into a single error, or nil when there are none.
// Its message summarizes counts per rule; the individual findings stay
// reachable through the *multierror.Error.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, f := range r.Findings {
		result = multierror.Append(result, f)
	}
	if result != nil {
		result.ErrorFormat = summarizeFindings
	}
	return result.ErrorOrNil()
}

func summarizeFindings(errs []error) string {
	seen := make(map[string]bool)
	var rules []string
	for _, err := range errs {
		if f, ok := err.(Finding); ok && !seen[f.Rule] {
			seen[f.Rule] = true
			rules = append(rules, f.Rule)
		}
	}
	return fmt.Sprintf("%d finding(s) in %s", len(errs), strings.Join(rules, ", "))
}
