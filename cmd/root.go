package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-playground/cmd/analyse"
	"github.com/scan-io-git/scanio-playground/cmd/catalog"
	"github.com/scan-io-git/scanio-playground/cmd/health"
	"github.com/scan-io-git/scanio-playground/cmd/rules"
	"github.com/scan-io-git/scanio-playground/cmd/version"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "scanio-playground [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Scanio playground runs ad-hoc pattern analysis jobs against code snippets.",
		Long: `Scanio playground validates a snippet of code and a set of analysis rules,
runs the pattern-matching engine against them in an isolated workspace
and reports the findings as JSON, SARIF or text.
`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")

	rootCmd.AddCommand(analyse.AnalyseCmd)
	rootCmd.AddCommand(rules.RulesCmd)
	rootCmd.AddCommand(catalog.CatalogCmd)
	rootCmd.AddCommand(health.HealthCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// interrupting cancels running jobs so their workspaces are still removed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	var cmdErr *errs.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return errs.ExitCode(errs.KindOf(err))
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing config file function is crashed - %v \n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	analyse.Init(AppConfig)
	rules.Init(AppConfig)
	health.Init(AppConfig)
	version.Init(AppConfig)
}
