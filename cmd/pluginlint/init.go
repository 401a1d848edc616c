package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/pluginlint/pkg/bundle"
	"github.com/jingkaihe/pluginlint/pkg/presenter"
)

// InitConfig holds configuration for the init command
type InitConfig struct {
	Binary  string
	Version string
	Force   bool
}

// NewInitConfig creates a new InitConfig with default values
func NewInitConfig() *InitConfig {
	return &InitConfig{
		Binary:  "pluginlint",
		Version: "0.1.0",
	}
}

var initCmd = &cobra.Command{
	Use:   "init [bundle-root]",
	Short: "Scaffold a plugin bundle that passes validation",
	Long: `Write a plugin bundle with a manifest, one skill, command and agent per
expected name, the expected hook scripts and a hooks.json registering them.
The TODO-marker hooks delegate to 'pluginlint hook'.

Existing files are left alone unless --force is given.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationRootArg: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		config := getInitConfigFromFlags(cmd)
		root := bundleRoot(args)

		opts := bundle.ScaffoldOptions{Binary: config.Binary, Version: config.Version, Force: config.Force}
		if err := bundle.Scaffold(root, cfg, opts); err != nil {
			presenter.Error(err, "Failed to scaffold bundle")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Scaffolded plugin bundle in %s", root))
	},
}

func init() {
	defaults := NewInitConfig()
	initCmd.Flags().String("binary", defaults.Binary, "pluginlint executable the TODO-marker hooks call")
	initCmd.Flags().String("version", defaults.Version, "Version written to plugin.json")
	initCmd.Flags().BoolP("force", "f", defaults.Force, "Overwrite existing files")
}

func getInitConfigFromFlags(cmd *cobra.Command) *InitConfig {
	config := NewInitConfig()

	if binary, err := cmd.Flags().GetString("binary"); err == nil {
		config.Binary = binary
	}
	if version, err := cmd.Flags().GetString("version"); err == nil {
		config.Version = version
	}
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}

	return config
}
