package analyse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-playground/internal/analysis"
	"github.com/scan-io-git/scanio-playground/internal/engine"
	"github.com/scan-io-git/scanio-playground/internal/findings"
	"github.com/scan-io-git/scanio-playground/internal/languages"
	"github.com/scan-io-git/scanio-playground/internal/rules"
	"github.com/scan-io-git/scanio-playground/internal/sarif"
	"github.com/scan-io-git/scanio-playground/internal/template"
	"github.com/scan-io-git/scanio-playground/internal/workspace"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
	"github.com/scan-io-git/scanio-playground/pkg/shared/files"
)

// Mode constants
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// Report formats
const (
	FormatJSON  = "json"
	FormatSARIF = "sarif"
	FormatText  = "text"
)

var stdout io.Writer = os.Stdout

// versioner reports the engine's identity for SARIF and text reports.
type versioner interface {
	Binary() string
	Version(ctx context.Context) (string, error)
}

// errorDocument is the JSON body printed for a failed single analysis.
type errorDocument struct {
	Error struct {
		Kind    errs.Kind `json:"kind"`
		Message string    `json:"message"`
		Details []string  `json:"details,omitempty"`
	} `json:"error"`
}

func newErrorDocument(err error) errorDocument {
	var doc errorDocument
	doc.Error.Kind = errs.KindOf(err)
	doc.Error.Message = err.Error()

	var validationErr *errs.ValidationError
	if errors.As(err, &validationErr) {
		doc.Error.Message = validationErr.Message
		doc.Error.Details = validationErr.Details
	}
	return doc
}

// determineMode determines the mode based on the provided arguments.
func determineMode(options *RunOptionsAnalyse) string {
	if options.BatchFile != "" {
		return ModeBatch
	}
	return ModeSingle
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// newAnalyzer wires the engine, workspace manager and orchestrator from the configuration.
func newAnalyzer(cfg *config.Config, logger hclog.Logger) (*analysis.Analyzer, *engine.Executor) {
	executor := engine.NewExecutor(cfg.Engine, logger.Named("engine"))
	workspaces := workspace.NewManager(config.GetWorkspaceRoot(cfg), logger.Named("workspace"))
	return analysis.NewAnalyzer(cfg, executor, workspaces, logger.Named("analysis")), executor
}

// prepareRequest builds an analysis request from validated options.
func prepareRequest(options *RunOptionsAnalyse) (*analysis.Request, error) {
	req := &analysis.Request{
		Code:     options.Code,
		Language: languages.Language(strings.ToLower(strings.TrimSpace(options.Language))),
		Options: analysis.Options{
			Timeout:     options.Timeout,
			Verbose:     options.Verbose,
			MaxMemoryMB: options.MaxMemoryMB,
		},
	}

	if options.CodeFile != "" {
		data, err := files.ReadValidatedFile(options.CodeFile)
		if err != nil {
			return nil, errs.NewValidationError(fmt.Sprintf("failed to read code file: %v", err))
		}
		req.Code = string(data)
	}

	if options.Preset != "" {
		req.Rules = analysis.Preset(options.Preset)
		return req, nil
	}

	defs, err := rules.LoadFile(options.RulesFile)
	if err != nil {
		return nil, err
	}
	req.Rules = analysis.Custom(defs)
	return req, nil
}

// renderOutcome encodes a successful outcome in the requested report format.
func renderOutcome(ctx context.Context, options *RunOptionsAnalyse, req *analysis.Request, outcome *findings.Outcome, probe versioner, logger hclog.Logger) ([]byte, error) {
	if options.ReportFormat == FormatJSON {
		data, err := json.MarshalIndent(outcome, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return append(data, '\n'), nil
	}

	tool := sarif.ToolMetadata{Name: filepath.Base(probe.Binary())}
	if version, err := probe.Version(ctx); err != nil {
		logger.Debug("engine version is not available", "error", err)
	} else {
		tool.Version = &version
	}

	report, err := sarif.FromOutcome(outcome, tool, logger.Named("sarif"))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if options.ReportFormat == FormatSARIF {
		if err := report.Write(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	report.EnrichResultsLevelProperty()
	report.SortResultsByLevel()

	tmpl, err := template.NewTemplate(options.TemplatePath)
	if err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("failed to parse report template: %v", err))
	}
	textReport := template.TextReport{
		Tool:        tool.Name,
		Language:    string(req.Language),
		Rules:       req.Rules.String(),
		GeneratedAt: time.Now(),
		Results:     report.Summaries(),
		Severity:    report.CollectSeverityInfo(),
		Stats:       outcome.Stats,
		Errors:      outcome.EngineErrors,
	}
	if err := template.Render(&buf, tmpl, textReport); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
