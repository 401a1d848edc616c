package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/pluginlint/pkg/bundle"
	"github.com/jingkaihe/pluginlint/pkg/logger"
	"github.com/jingkaihe/pluginlint/pkg/presenter"
)

// ValidateConfig holds configuration for the validate command
type ValidateConfig struct {
	Rules  []string
	Format string
	Quiet  bool
}

// NewValidateConfig creates a new ValidateConfig with default values
func NewValidateConfig() *ValidateConfig {
	return &ValidateConfig{
		Format: "text",
	}
}

// Validate checks the flag combination
func (c *ValidateConfig) Validate() error {
	switch c.Format {
	case "text", "json":
		return nil
	default:
		return errors.Errorf("invalid format %q, must be one of text, json", c.Format)
	}
}

var validateCmd = &cobra.Command{
	Use:   "validate [bundle-root]",
	Short: "Validate a plugin bundle",
	Long: fmt.Sprintf(`Validate the structure and content of a plugin bundle. The bundle root
defaults to the current directory.

Rules: %s

Exits 1 when any finding is reported.`, strings.Join(bundle.RuleNames(), ", ")),
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationRootArg: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		config := getValidateConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid flags")
			os.Exit(1)
		}

		report, err := validateBundle(cmd.Context(), bundleRoot(args), config.Rules)
		if err != nil {
			presenter.Error(err, "Validation could not run")
			os.Exit(1)
		}

		if err := printReport(report, config); err != nil {
			presenter.Error(err, "Failed to print report")
			os.Exit(1)
		}
		if err := report.Err(); err != nil {
			presenter.Error(err, "Validation failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewValidateConfig()
	validateCmd.Flags().StringSliceP("rule", "r", defaults.Rules, "Only run the named rules (repeatable)")
	validateCmd.Flags().StringP("format", "o", defaults.Format, "Output format (text, json)")
	validateCmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Only print findings")
}

func getValidateConfigFromFlags(cmd *cobra.Command) *ValidateConfig {
	config := NewValidateConfig()

	if rules, err := cmd.Flags().GetStringSlice("rule"); err == nil {
		config.Rules = rules
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
		config.Quiet = quiet
	}

	return config
}

func bundleRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func validateBundle(ctx context.Context, root string, rules []string) (*bundle.Report, error) {
	opts := []bundle.Option{bundle.WithConfig(cfg)}
	if len(rules) > 0 {
		opts = append(opts, bundle.WithRules(rules...))
	}
	v, err := bundle.NewValidator(opts...)
	if err != nil {
		return nil, err
	}

	report, err := v.Validate(ctx, root)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithField("root", report.Root).WithField("findings", len(report.Findings)).Debug("validation finished")
	return report, nil
}

func printReport(report *bundle.Report, config *ValidateConfig) error {
	if config.Format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal report")
		}
		fmt.Println(string(data))
		return nil
	}

	presenter.SetQuiet(config.Quiet)
	presenter.Findings(report)
	return nil
}
