package analyse

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-playground/internal/batch"
	"github.com/scan-io-git/scanio-playground/pkg/shared"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
	"github.com/scan-io-git/scanio-playground/pkg/shared/logger"
)

// RunOptionsAnalyse holds the arguments for the analyse command.
type RunOptionsAnalyse struct {
	Language     string
	CodeFile     string
	Code         string
	RulesFile    string
	Preset       string
	Timeout      time.Duration
	Verbose      bool
	MaxMemoryMB  int
	ReportFormat string
	TemplatePath string
	OutputPath   string
	BatchFile    string
	Threads      int
}

// Global variables for configuration and command arguments
var (
	AppConfig           *config.Config
	analyseOptions      RunOptionsAnalyse
	exampleAnalyseUsage = `  # Analysing a file with a preset
  scanio-playground analyse --language python --code-file app.py --preset security

  # Analysing an inline snippet with custom rules and SARIF output
  scanio-playground analyse --language javascript --code 'eval(input)' --rules rules.yml --format sarif

  # Overriding the engine timeout and saving a text report
  scanio-playground analyse --language go --code-file main.go --preset secrets --timeout 1m --format text --output report.txt

  # Running many jobs from a jobs file with 4 concurrent analyses
  scanio-playground analyse --batch jobs.yml -j 4 --output results.json`
)

// AnalyseCmd represents the analyse command.
var AnalyseCmd = &cobra.Command{
	Use:                   "analyse --language LANG {--code-file PATH | --code TEXT} {--rules PATH | --preset ID} [--timeout DURATION] [--format FORMAT] [--output PATH] | --batch PATH [-j JOBS]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleAnalyseUsage,
	Short:                 "Runs the analysis engine against a code snippet and a set of rules",
	Long: `Runs the analysis engine against a code snippet and a set of rules.

Each job gets its own workspace that is removed when the job ends, whatever the outcome.
The exit code reflects the kind of failure: 2 invalid input, 3 engine unavailable,
4 engine timeout, 5 engine error, 6 infrastructure error.`,
	RunE: runAnalyseCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runAnalyseCommand executes the analyse command.
func runAnalyseCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-analyse")

	if err := validateAnalyseArgs(&analyseOptions, args); err != nil {
		logger.Error("invalid analyse arguments", "error", err)
		return err
	}

	switch determineMode(&analyseOptions) {
	case ModeBatch:
		return runBatch(cmd.Context(), AppConfig, &analyseOptions, logger)
	default:
		return runSingle(cmd.Context(), AppConfig, &analyseOptions, logger)
	}
}

func runSingle(ctx context.Context, cfg *config.Config, options *RunOptionsAnalyse, logger hclog.Logger) error {
	ctx = contextOrBackground(ctx)

	req, err := prepareRequest(options)
	if err != nil {
		logger.Error("failed to prepare analysis request", "error", err)
		return err
	}

	analyzer, executor := newAnalyzer(cfg, logger)
	outcome, err := analyzer.Analyze(ctx, req)
	if err != nil {
		logger.Error("analyse command failed", "kind", errs.KindOf(err), "error", err)
		if options.ReportFormat == FormatJSON {
			if writeErr := shared.WriteGenericResult(logger, newErrorDocument(err), options.OutputPath, stdout); writeErr != nil {
				logger.Error("failed to write result", "error", writeErr)
			}
		}
		return err
	}

	data, err := renderOutcome(ctx, options, req, outcome, executor, logger)
	if err != nil {
		logger.Error("failed to render result", "error", err)
		return err
	}
	if err := shared.WriteOutput(logger, data, options.OutputPath, stdout); err != nil {
		logger.Error("failed to write result", "error", err)
		return errs.NewInfrastructureError("write result", err)
	}

	logger.Info("analyse command completed successfully", "matches", outcome.Stats.MatchesCount, "engine_errors", outcome.Stats.ErrorsCount)
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, options *RunOptionsAnalyse, logger hclog.Logger) error {
	ctx = contextOrBackground(ctx)

	jobs, err := batch.LoadJobs(options.BatchFile)
	if err != nil {
		logger.Error("failed to load jobs file", "error", err)
		return err
	}

	analyzer, _ := newAnalyzer(cfg, logger)
	threads := config.SetThen(options.Threads, cfg.Analysis.ConcurrentJobs)
	result, runErr := batch.New(analyzer, threads, logger.Named("batch")).Run(ctx, jobs)

	if err := shared.WriteGenericResult(logger, result, options.OutputPath, stdout); err != nil {
		logger.Error("failed to write result", "error", err)
		return errs.NewInfrastructureError("write result", err)
	}

	if runErr != nil {
		logger.Error("analyse command failed", "error", runErr)
		return errs.NewCommandError(result, runErr)
	}

	logger.Info("analyse command completed successfully", "jobs", len(jobs))
	return nil
}

// Initialize flags for the analyse command.
func init() {
	AnalyseCmd.Flags().StringVarP(&analyseOptions.Language, "language", "l", "", "Language of the analysed code. See 'catalog languages'.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.CodeFile, "code-file", "", "Path to a file with the code to analyse.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.Code, "code", "", "Code to analyse, given inline.")
	AnalyseCmd.Flags().StringVarP(&analyseOptions.RulesFile, "rules", "r", "", "Path to a YAML or JSON file with custom rules.")
	AnalyseCmd.Flags().StringVarP(&analyseOptions.Preset, "preset", "p", "", "Identifier of a curated preset. See 'catalog presets'.")
	AnalyseCmd.Flags().DurationVar(&analyseOptions.Timeout, "timeout", 0, "Engine timeout for this job. Defaults to engine.timeout from the config.")
	AnalyseCmd.Flags().BoolVarP(&analyseOptions.Verbose, "verbose", "v", false, "Run the engine in verbose mode.")
	AnalyseCmd.Flags().IntVar(&analyseOptions.MaxMemoryMB, "max-memory", 0, "Memory limit for the engine in megabytes.")
	AnalyseCmd.Flags().StringVarP(&analyseOptions.ReportFormat, "format", "f", FormatJSON, "Format for the report with results: json, sarif or text.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.TemplatePath, "template", "", "Path to a custom template for the text format.")
	AnalyseCmd.Flags().StringVarP(&analyseOptions.OutputPath, "output", "o", "", "Path to the output file. Results are printed to stdout when omitted.")
	AnalyseCmd.Flags().StringVarP(&analyseOptions.BatchFile, "batch", "b", "", "Path to a YAML or JSON jobs file to run many independent analyses.")
	AnalyseCmd.Flags().IntVarP(&analyseOptions.Threads, "threads", "j", 0, "Number of concurrent jobs in batch mode. Defaults to analysis.concurrent_jobs from the config.")
	AnalyseCmd.Flags().BoolP("help", "h", false, "Show help for the analyse command.")
}
