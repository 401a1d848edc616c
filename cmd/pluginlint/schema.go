package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/pluginlint/pkg/hooks"
	"github.com/jingkaihe/pluginlint/pkg/manifest"
	"github.com/jingkaihe/pluginlint/pkg/presenter"
	"github.com/jingkaihe/pluginlint/pkg/schema"
)

var schemaTargets = map[string]interface{}{
	"plugin": &manifest.Manifest{},
	"hooks":  &hooks.Config{},
}

var schemaCmd = &cobra.Command{
	Use:       "schema plugin|hooks",
	Short:     "Print the JSON schema used to validate plugin.json or hooks.json",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"plugin", "hooks"},
	Run: func(cmd *cobra.Command, args []string) {
		out, err := schema.Generate(schemaTargets[args[0]])
		if err != nil {
			presenter.Error(err, "Failed to generate schema")
			os.Exit(1)
		}
		fmt.Println(string(out))
	},
}
