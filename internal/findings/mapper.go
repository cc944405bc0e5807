package findings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

// engineReport mirrors the JSON document the engine prints with --json.
type engineReport struct {
	Results *[]engineMatch `json:"results"`
	Errors  []engineError  `json:"errors"`
	Paths   struct {
		Scanned []string `json:"scanned"`
	} `json:"paths"`
}

type engineMatch struct {
	CheckID string   `json:"check_id"`
	Path    string   `json:"path"`
	Start   Position `json:"start"`
	End     Position `json:"end"`
	Extra   struct {
		Message  string                 `json:"message"`
		Metavars map[string]interface{} `json:"metavars"`
		Severity string                 `json:"severity"`
		Metadata map[string]interface{} `json:"metadata"`
		Lines    string                 `json:"lines"`
	} `json:"extra"`
}

type engineError struct {
	Code    int             `json:"code"`
	Level   string          `json:"level"`
	Type    json.RawMessage `json:"type"`
	Message string          `json:"message"`
	Path    string          `json:"path"`
}

// MapOptions carries the job context the engine output is interpreted against.
type MapOptions struct {
	WorkspaceDir string        // used to make absolute finding paths relative
	RuleIDs      []string      // submitted custom rule ids
	RuleCount    int           // number of rules compiled for the job
	Elapsed      time.Duration // measured around the engine call
}

// Map parses the engine's JSON output into an Outcome.
// Output that is not a JSON report is an EngineExecutionError, never an empty result.
func Map(raw []byte, opts MapOptions) (*Outcome, error) {
	var report engineReport
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&report); err != nil {
		return nil, errs.NewEngineExecutionError("engine output is not valid JSON", truncate(string(raw), 2048), err)
	}
	if report.Results == nil {
		return nil, errs.NewEngineExecutionError("engine output has no results section", truncate(string(raw), 2048), nil)
	}

	outcome := &Outcome{
		Matches:      make([]Finding, 0, len(*report.Results)),
		EngineErrors: make([]Diagnostic, 0, len(report.Errors)),
	}
	for _, m := range *report.Results {
		outcome.Matches = append(outcome.Matches, Finding{
			RuleID:   normalizeRuleID(m.CheckID, opts.RuleIDs),
			Path:     relativePath(m.Path, opts.WorkspaceDir),
			Start:    m.Start,
			End:      m.End,
			Severity: m.Extra.Severity,
			Message:  m.Extra.Message,
			Metavars: m.Extra.Metavars,
			Metadata: m.Extra.Metadata,
			Lines:    m.Extra.Lines,
		})
	}
	for _, e := range report.Errors {
		outcome.EngineErrors = append(outcome.EngineErrors, Diagnostic{
			Code:    e.Code,
			Level:   e.Level,
			Type:    errorType(e.Type),
			Message: e.Message,
			Path:    relativePath(e.Path, opts.WorkspaceDir),
		})
	}

	filesCount := len(report.Paths.Scanned)
	if filesCount == 0 {
		filesCount = 1
	}
	outcome.Stats = Stats{
		RulesCount:    opts.RuleCount,
		FilesCount:    filesCount,
		MatchesCount:  len(outcome.Matches),
		ErrorsCount:   len(outcome.EngineErrors),
		ExecutionTime: opts.Elapsed,
	}
	return outcome, nil
}

// normalizeRuleID strips the dotted config-path prefix the engine may put in front of a submitted rule id.
// An exact match wins, otherwise the longest submitted id that ends the check id is used.
func normalizeRuleID(checkID string, ruleIDs []string) string {
	best := ""
	for _, id := range ruleIDs {
		if checkID == id {
			return id
		}
		if strings.HasSuffix(checkID, "."+id) && len(id) > len(best) {
			best = id
		}
	}
	if best == "" {
		return checkID
	}
	return best
}

func relativePath(path, workspaceDir string) string {
	if path == "" || workspaceDir == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(workspaceDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// errorType renders the engine's error type, which is either a string or a structured value.
func errorType(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []interface{}
	if err := json.Unmarshal(raw, &parts); err == nil && len(parts) > 0 {
		if s, ok := parts[0].(string); ok {
			return s
		}
	}
	return string(raw)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes truncated)", s[:max], len(s)-max)
}
