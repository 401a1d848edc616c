package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jingkaihe/pluginlint/pkg/config"
	"github.com/jingkaihe/pluginlint/pkg/logger"
	"github.com/jingkaihe/pluginlint/pkg/presenter"
)

// Command annotations read by setup.
const (
	// annotationRootArg marks commands whose first argument is a bundle root,
	// searched first for .pluginlint.yaml.
	annotationRootArg = "pluginlint/root-arg"
	// annotationHook marks hook commands, which fall back to the default
	// configuration instead of failing.
	annotationHook = "pluginlint/hook"
)

// cfg is the configuration resolved by setup before any command runs.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "pluginlint",
	Short: "Validate plugin bundles and check their hooks",
	Long: `pluginlint validates the structure and content of a plugin bundle (manifest,
skills, commands, agents and hooks), runs conformance scenarios against the
TODO-marker hooks, and ships Go implementations of those hooks.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default .pluginlint.yaml in the bundle root, $HOME/.pluginlint or .)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().String("plugin-name", "", "Expected plugin name (overrides config)")
	rootCmd.PersistentFlags().Duration("hook-timeout", 0, "Timeout for each hook subprocess (overrides config)")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log_level":    "log-level",
		"log_format":   "log-format",
		"plugin_name":  "plugin-name",
		"hook_timeout": "hook-timeout",
	})

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(contractCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// bindFlags binds config keys to the flags of fs that set them.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		viper.BindPFlag(key, fs.Lookup(flag))
	}
}

// setup loads the configuration and applies the logging settings.
func setup(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if file, _ := cmd.Flags().GetString("config"); file != "" {
		v.SetConfigFile(file)
	}

	var searchPaths []string
	if cmd.Annotations[annotationRootArg] != "" && len(args) > 0 {
		searchPaths = append(searchPaths, args[0])
	}
	searchPaths = append(searchPaths, ".", "$HOME/.pluginlint")

	loaded, err := loadConfig(v, searchPaths)
	if err != nil {
		if cmd.Annotations[annotationHook] == "" {
			return err
		}
		logger.G(cmd.Context()).WithError(err).Warn("using default configuration")
		loaded = config.Default()
	}
	cfg = loaded

	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		if cmd.Annotations[annotationHook] == "" {
			return err
		}
	}
	logger.G(cmd.Context()).WithField("config", v.ConfigFileUsed()).Debug("configuration loaded")
	return nil
}

func loadConfig(v *viper.Viper, searchPaths []string) (config.Config, error) {
	if err := config.Init(v, searchPaths...); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
