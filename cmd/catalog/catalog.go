package catalog

import (
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-playground/internal/languages"
	"github.com/scan-io-git/scanio-playground/internal/rules"
	"github.com/scan-io-git/scanio-playground/pkg/shared"
)

// CatalogCmd lists the static data a job can refer to.
var CatalogCmd = &cobra.Command{
	Use:                   "catalog [command]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Lists supported languages and curated presets",
}

var languagesCmd = &cobra.Command{
	Use:                   "languages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Lists the languages code can be analysed in",
	Args:                  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return shared.WriteGenericResult(hclog.NewNullLogger(), struct {
			Languages []languages.Info `json:"languages"`
		}{Languages: languages.All()}, "", cmd.OutOrStdout())
	},
}

var presetsCmd = &cobra.Command{
	Use:                   "presets",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Lists the curated rulesets usable with --preset",
	Args:                  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return shared.WriteGenericResult(hclog.NewNullLogger(), struct {
			Presets []rules.Preset `json:"presets"`
		}{Presets: rules.Presets()}, "", cmd.OutOrStdout())
	},
}

func init() {
	CatalogCmd.AddCommand(languagesCmd, presetsCmd)
}
