// Package batch runs many independent analysis requests with bounded concurrency.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	yaml "gopkg.in/yaml.v2"

	"github.com/scan-io-git/scanio-playground/internal/analysis"
	"github.com/scan-io-git/scanio-playground/internal/findings"
	"github.com/scan-io-git/scanio-playground/internal/rules"
	"github.com/scan-io-git/scanio-playground/pkg/shared"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
	"github.com/scan-io-git/scanio-playground/pkg/shared/files"
)

// Job is one entry of a jobs file. Code and rules may be given inline or by path.
type Job struct {
	Name      string `json:"name" yaml:"name"`
	CodeFile  string `json:"code_file,omitempty" yaml:"code_file,omitempty"`
	RulesFile string `json:"rules_file,omitempty" yaml:"rules_file,omitempty"`

	analysis.Request `yaml:",inline"`
}

// JobSummary identifies a job in the launch records.
type JobSummary struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Rules    string `json:"rules"`
}

// Analyzer runs a single request.
type Analyzer interface {
	Analyze(ctx context.Context, req *analysis.Request) (*findings.Outcome, error)
}

// Runner executes jobs through an Analyzer.
type Runner struct {
	analyzer       Analyzer
	concurrentJobs int
	logger         hclog.Logger
}

// New creates a Runner with at most concurrentJobs analyses in flight.
func New(analyzer Analyzer, concurrentJobs int, logger hclog.Logger) *Runner {
	return &Runner{
		analyzer:       analyzer,
		concurrentJobs: concurrentJobs,
		logger:         logger,
	}
}

type jobsDocument struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// LoadJobs reads a YAML or, for a .json extension, JSON jobs file. A leading tilde in path is expanded.
// Relative code and rules paths are resolved against the file's directory.
func LoadJobs(path string) ([]Job, error) {
	data, err := files.ReadValidatedFile(path)
	if err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("failed to read jobs file: %v", err))
	}

	var doc jobsDocument
	if err := decodeJobs(path, data, &doc); err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("jobs file cannot be parsed: %v", err))
	}
	if len(doc.Jobs) == 0 {
		return nil, errs.NewValidationError("jobs file has no jobs")
	}

	baseDir := filepath.Dir(path)
	for i := range doc.Jobs {
		job := &doc.Jobs[i]
		if job.Name == "" {
			job.Name = fmt.Sprintf("job-%d", i+1)
		}
		if err := job.resolve(baseDir); err != nil {
			return nil, err
		}
	}
	return doc.Jobs, nil
}

func decodeJobs(path string, data []byte, doc *jobsDocument) error {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return yaml.UnmarshalStrict(data, doc)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(doc)
}

func (j *Job) resolve(baseDir string) error {
	if j.CodeFile != "" {
		if j.Code != "" {
			return errs.NewValidationError(fmt.Sprintf("job %q: code and code_file are mutually exclusive", j.Name))
		}
		code, err := files.ReadValidatedFile(resolvePath(baseDir, j.CodeFile))
		if err != nil {
			return errs.NewValidationError(fmt.Sprintf("job %q: failed to read code file: %v", j.Name, err))
		}
		j.Code = string(code)
	}

	if j.RulesFile != "" {
		if j.Rules.IsPreset() || len(j.Rules.Definitions()) > 0 {
			return errs.NewValidationError(fmt.Sprintf("job %q: rules and rules_file are mutually exclusive", j.Name))
		}
		defs, err := rules.LoadFile(resolvePath(baseDir, j.RulesFile))
		if err != nil {
			return fmt.Errorf("job %q: %w", j.Name, err)
		}
		j.Rules = analysis.Custom(defs)
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || strings.HasPrefix(path, "~/") {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Run analyses every job and returns one launch record per job, in job order.
// The returned error wraps the first failure so that its kind can be classified.
func (r *Runner) Run(ctx context.Context, jobs []Job) (shared.GenericLaunchesResult, error) {
	r.logger.Info("batch starting", "total", len(jobs), "goroutines", r.concurrentJobs)

	launches := make([]shared.GenericResult, len(jobs))
	failures := make([]error, len(jobs))
	values := make([]interface{}, len(jobs))
	for i := range jobs {
		values[i] = jobs[i]
	}

	shared.ForEveryStringWithBoundedGoroutines(r.concurrentJobs, values, func(i int, value interface{}) {
		job, ok := value.(Job)
		if !ok {
			r.logger.Error("invalid job type")
			return
		}
		summary := JobSummary{Name: job.Name, Language: string(job.Language), Rules: job.Rules.String()}
		r.logger.Debug("job started", "#", i+1, "name", job.Name)

		req := job.Request
		outcome, err := r.analyzer.Analyze(ctx, &req)
		if err != nil {
			r.logger.Warn("job failed", "name", job.Name, "kind", errs.KindOf(err), "error", err)
			failures[i] = fmt.Errorf("job %q failed: %w", job.Name, err)
			launches[i] = shared.GenericResult{Args: summary, Status: shared.StatusFailed, Message: err.Error()}
			return
		}
		launches[i] = shared.GenericResult{Args: summary, Result: outcome, Status: shared.StatusOK}
	})

	result := shared.GenericLaunchesResult{Launches: launches}
	failed := 0
	var first error
	for _, err := range failures {
		if err == nil {
			continue
		}
		failed++
		if first == nil {
			first = err
		}
	}
	r.logger.Info("batch finished", "total", len(jobs), "failed", failed)

	if first != nil {
		if failed > 1 {
			return result, fmt.Errorf("%d of %d jobs failed, first: %w", failed, len(jobs), first)
		}
		return result, first
	}
	return result, nil
}
