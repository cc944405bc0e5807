package health

import (
	"context"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-playground/internal/engine"
	"github.com/scan-io-git/scanio-playground/internal/workspace"
	"github.com/scan-io-git/scanio-playground/pkg/shared"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	"github.com/scan-io-git/scanio-playground/pkg/shared/logger"
)

// EngineStatus describes the analysis engine as seen from this host.
type EngineStatus struct {
	Binary    string `json:"binary"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WorkspaceStatus describes the scratch root jobs run in.
type WorkspaceStatus struct {
	Root      string          `json:"root"`
	Writable  bool            `json:"writable"`
	Error     string          `json:"error,omitempty"`
	Leftovers int             `json:"leftovers"`
	Stats     workspace.Stats `json:"stats"`
}

// Report is printed by the health command.
type Report struct {
	Status    string          `json:"status"`
	Engine    EngineStatus    `json:"engine"`
	Workspace WorkspaceStatus `json:"workspace"`
}

var AppConfig *config.Config

// HealthCmd checks that analysis jobs can run on this host.
var HealthCmd = &cobra.Command{
	Use:                   "health",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Checks the analysis engine and the workspace root",
	Args:                  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logger.NewLogger(AppConfig, "core-health")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runHealth(ctx, AppConfig, cmd.OutOrStdout(), logger)
	},
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runHealth(ctx context.Context, cfg *config.Config, out io.Writer, logger hclog.Logger) error {
	executor := engine.NewExecutor(cfg.Engine, logger.Named("engine"))
	manager := workspace.NewManager(config.GetWorkspaceRoot(cfg), logger.Named("workspace"))

	report, err := check(ctx, executor, manager)
	if writeErr := shared.WriteGenericResult(logger, report, "", out); writeErr != nil {
		return writeErr
	}
	if err != nil {
		logger.Error("health check failed", "error", err)
		return err
	}
	return nil
}

// check probes the engine version and round-trips a workspace. The returned error is the first failure.
func check(ctx context.Context, executor *engine.Executor, manager *workspace.Manager) (Report, error) {
	report := Report{
		Status:    shared.StatusOK,
		Engine:    EngineStatus{Binary: executor.Binary()},
		Workspace: WorkspaceStatus{Root: manager.Root()},
	}

	var first error
	fail := func(err error) {
		report.Status = shared.StatusFailed
		if first == nil {
			first = err
		}
	}

	if version, err := executor.Version(ctx); err != nil {
		report.Engine.Error = err.Error()
		fail(err)
	} else {
		report.Engine.Available = true
		report.Engine.Version = version
	}

	if ids, err := manager.Leftovers(); err != nil {
		report.Workspace.Error = err.Error()
		fail(err)
	} else {
		report.Workspace.Leftovers = len(ids)
	}
	if ws, err := manager.Create(); err != nil {
		if report.Workspace.Error == "" {
			report.Workspace.Error = err.Error()
		}
		fail(err)
	} else {
		manager.Destroy(ws)
		report.Workspace.Writable = true
	}
	report.Workspace.Stats = manager.Stats()

	return report, first
}
