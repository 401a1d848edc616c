// Package presenter provides consistent CLI output for user-facing messages,
// validation findings and contract results, with color support and quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/jingkaihe/pluginlint/pkg/bundle"
	"github.com/jingkaihe/pluginlint/pkg/contract"
)

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Findings(report *bundle.Report)
	Contract(report *contract.Report)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto automatically detects whether to use colored output based on terminal capabilities
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output regardless of terminal capabilities
	ColorAlways
	// ColorNever disables colored output regardless of terminal capabilities
	ColorNever
)

// ColorEnv overrides color detection: always, force, never, off or auto.
const ColorEnv = "PLUGINLINT_COLOR"

var summaryStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("205")).
	Padding(0, 1)

// New creates a new TerminalPresenter with default settings
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	presenter := &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}

	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	case ColorAuto:
	}

	return presenter
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv(ColorEnv) {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error displays an error message to stderr
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}

	warningColor := color.New(color.FgYellow, color.Bold)
	warningColor.Fprintf(p.output, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}

	fmt.Fprintf(p.output, "%s\n", message)
}

// Section displays a section header with consistent formatting
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

// Findings prints the validation report grouped by rule, followed by a
// summary box. In quiet mode only findings are printed.
func (p *TerminalPresenter) Findings(report *bundle.Report) {
	if report == nil {
		return
	}

	failColor := color.New(color.FgRed)
	byRule := report.ByRule()
	for _, rule := range report.Rules {
		findings := byRule[rule]
		if len(findings) == 0 {
			if !p.quiet {
				p.Success(rule)
			}
			continue
		}
		if !p.quiet {
			failColor.Fprintf(p.output, "✗ %s (%d)\n", rule, len(findings))
		}
		for _, f := range findings {
			if f.Path != "" {
				fmt.Fprintf(p.output, "  %s: %s\n", f.Path, f.Message)
			} else {
				fmt.Fprintf(p.output, "  %s\n", f.Message)
			}
		}
	}

	if p.quiet {
		return
	}
	p.summary(fmt.Sprintf("%s\n%s", report.Root, findingsSummary(report)), report.OK())
}

func findingsSummary(report *bundle.Report) string {
	if report.OK() {
		return fmt.Sprintf("%d rules passed", len(report.Rules))
	}
	counts := report.Counts()
	failing := 0
	for _, n := range counts {
		if n > 0 {
			failing++
		}
	}
	return fmt.Sprintf("%d finding(s) in %d of %d rules", len(report.Findings), failing, len(report.Rules))
}

// Contract prints one line per scenario and a summary box.
func (p *TerminalPresenter) Contract(report *contract.Report) {
	if report == nil {
		return
	}

	failColor := color.New(color.FgRed)
	results := append([]contract.Result(nil), report.Results...)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Kind < results[j].Kind })

	for _, res := range results {
		label := fmt.Sprintf("%s/%s", res.Kind, res.Scenario)
		if res.Passed {
			if !p.quiet {
				p.Success(label)
			}
			continue
		}
		failColor.Fprintf(p.output, "✗ %s\n", label)
		fmt.Fprintf(p.output, "  %s\n", res.Message)
	}

	if p.quiet {
		return
	}
	failed := len(report.Failed())
	p.summary(fmt.Sprintf("run %s\n%d passed, %d failed", report.RunID, len(report.Results)-failed, failed), failed == 0)
}

func (p *TerminalPresenter) summary(text string, ok bool) {
	style := summaryStyle
	if !ok {
		style = style.BorderForeground(lipgloss.Color("9"))
	}
	fmt.Fprintln(p.output, style.Render(text))
}

// Separator displays a visual separator
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}

	separatorColor := color.New(color.Faint)
	separatorColor.Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

var defaultPresenter Presenter = New()

// SetDefault replaces the presenter behind the package-level helpers.
func SetDefault(p Presenter) {
	defaultPresenter = p
}

// Error displays an error message using the default presenter instance.
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success displays a success message using the default presenter instance.
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning displays a warning message using the default presenter instance.
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info displays an informational message using the default presenter instance.
func Info(message string) {
	defaultPresenter.Info(message)
}

// Section displays a section header using the default presenter instance.
func Section(title string) {
	defaultPresenter.Section(title)
}

// Findings displays a validation report using the default presenter instance.
func Findings(report *bundle.Report) {
	defaultPresenter.Findings(report)
}

// Contract displays contract results using the default presenter instance.
func Contract(report *contract.Report) {
	defaultPresenter.Contract(report)
}

// Separator displays a visual separator using the default presenter instance.
func Separator() {
	defaultPresenter.Separator()
}

// SetQuiet enables or disables quiet mode for the default presenter instance.
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}

// IsQuiet returns whether quiet mode is enabled for the default presenter instance.
func IsQuiet() bool {
	return defaultPresenter.IsQuiet()
}
