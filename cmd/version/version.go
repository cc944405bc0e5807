package version

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-playground/internal/engine"
	"github.com/scan-io-git/scanio-playground/pkg/shared"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// CoreVersions holds version information for the application and the analysis engine it drives.
type CoreVersions struct {
	Versions      shared.Versions `json:"versions"`
	Engine        string          `json:"engine"`
	EngineVersion string          `json:"engine_version"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and the analysis engine",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			printVersionInfo(cmd.OutOrStdout(), collectVersions(ctx, AppConfig))
		},
	}
}

// collectVersions gathers build information and asks the engine for its version.
func collectVersions(ctx context.Context, cfg *config.Config) *CoreVersions {
	if cfg == nil {
		cfg = config.Default()
	}
	executor := engine.NewExecutor(cfg.Engine, hclog.NewNullLogger())

	versions := &CoreVersions{
		Versions: shared.Versions{
			Version:       CoreVersion,
			GolangVersion: GolangVersion,
			BuildTime:     BuildTime,
		},
		Engine:        executor.Binary(),
		EngineVersion: "unknown",
	}
	if v, err := executor.Version(ctx); err == nil && v != "" {
		versions.EngineVersion = v
	}
	return versions
}

// printVersionInfo prints the version information for the application and the engine.
func printVersionInfo(w io.Writer, versions *CoreVersions) {
	fmt.Fprintf(w, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintf(w, "Engine: %s %s\n", versions.Engine, versions.EngineVersion)
	fmt.Fprintf(w, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", versions.Versions.BuildTime)
}
