package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/pluginlint/pkg/bundle"
	"github.com/jingkaihe/pluginlint/pkg/contract"
	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/presenter"
)

// ContractConfig holds configuration for the contract command
type ContractConfig struct {
	Injector  string
	Sweeper   string
	Scenarios []string
	Format    string
	List      bool
}

// NewContractConfig creates a new ContractConfig with default values
func NewContractConfig() *ContractConfig {
	return &ContractConfig{
		Format: "text",
	}
}

// Validate checks the flag combination
func (c *ContractConfig) Validate() error {
	if c.Format != "text" && c.Format != "json" {
		return errors.Errorf("invalid format %q, must be one of text, json", c.Format)
	}
	return nil
}

var contractCmd = &cobra.Command{
	Use:   "contract [bundle-root]",
	Short: "Run conformance scenarios against the TODO-marker hooks",
	Long: `Run the conformance scenarios against the injector and sweeper hooks of a
bundle. Each scenario runs the hook in a fresh temporary directory and checks
only what the hook does: its exit status, its stdout and the files it leaves.

By default the hooks are the bundle's hooks/todo-injector.sh and
hooks/todo-sweep.sh. --injector and --sweeper take any command line instead.

Exits 1 when any scenario fails.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationRootArg: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		config := getContractConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid flags")
			os.Exit(1)
		}

		if config.List {
			for _, sc := range contract.Scenarios() {
				fmt.Printf("%-26s %-9s %s\n", sc.Name, sc.Kind, sc.Description)
			}
			return
		}

		report, err := runContract(cmd.Context(), bundleRoot(args), config)
		if err != nil {
			presenter.Error(err, "Contract run failed")
			os.Exit(1)
		}

		if config.Format == "json" {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				presenter.Error(err, "Failed to marshal report")
				os.Exit(1)
			}
			fmt.Println(string(data))
		} else {
			presenter.Contract(report)
		}
		if err := report.Err(); err != nil {
			presenter.Error(err, "Contract failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewContractConfig()
	contractCmd.Flags().String("injector", defaults.Injector, "Injector command line (default: the bundle's injector script)")
	contractCmd.Flags().String("sweeper", defaults.Sweeper, "Sweeper command line (default: the bundle's sweeper script)")
	contractCmd.Flags().StringSliceP("scenario", "s", defaults.Scenarios, "Only run the named scenarios (repeatable)")
	contractCmd.Flags().StringP("format", "o", defaults.Format, "Output format (text, json)")
	contractCmd.Flags().Bool("list", defaults.List, "List the scenarios and exit")
}

func getContractConfigFromFlags(cmd *cobra.Command) *ContractConfig {
	config := NewContractConfig()

	if injector, err := cmd.Flags().GetString("injector"); err == nil {
		config.Injector = injector
	}
	if sweeper, err := cmd.Flags().GetString("sweeper"); err == nil {
		config.Sweeper = sweeper
	}
	if scenarios, err := cmd.Flags().GetStringSlice("scenario"); err == nil {
		config.Scenarios = scenarios
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	if list, err := cmd.Flags().GetBool("list"); err == nil {
		config.List = list
	}

	return config
}

func runContract(ctx context.Context, root string, config *ContractConfig) (*contract.Report, error) {
	layout := bundle.Layout{Root: root}

	injector, err := hookCommand(config.Injector, layout.HookScript(cfg.Contract.Injector))
	if err != nil {
		return nil, err
	}
	sweeper, err := hookCommand(config.Sweeper, layout.HookScript(cfg.Contract.Sweeper))
	if err != nil {
		return nil, err
	}

	h := &contract.Harness{
		Injector: injector,
		Sweeper:  sweeper,
		Runner:   hooks.NewRunner(cfg.HookTimeout),
	}
	return h.Run(ctx, config.Scenarios...)
}

// hookCommand turns a --injector/--sweeper value into a command, falling back
// to the bundle script. Scripts run from the scenario directory, so their
// path is made absolute.
func hookCommand(commandLine, script string) (contract.Command, error) {
	if argv := strings.Fields(commandLine); len(argv) > 0 {
		if strings.ContainsRune(argv[0], filepath.Separator) {
			if abs, err := filepath.Abs(argv[0]); err == nil {
				argv[0] = abs
			}
		}
		return contract.Command{Argv: argv}, nil
	}

	abs, err := filepath.Abs(script)
	if err != nil {
		return contract.Command{}, errors.Wrapf(err, "failed to resolve %s", script)
	}
	s, err := hooks.StatScript(abs)
	if err != nil {
		return contract.Command{}, err
	}
	if !s.Executable() {
		return contract.Command{}, errors.Errorf("%s is not executable", abs)
	}
	return contract.Command{Argv: []string{abs}}, nil
}
