package findings

import (
	"encoding/json"
	"time"
)

// Position is a location in the analysed file: 1-based line, column as reported by the engine.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"col"`
	Offset int `json:"offset,omitempty"`
}

// Finding is one located match reported against the analysed code.
type Finding struct {
	RuleID   string                 `json:"check_id"`
	Path     string                 `json:"path"`
	Start    Position               `json:"start"`
	End      Position               `json:"end"`
	Severity string                 `json:"severity"`
	Message  string                 `json:"message"`
	Metavars map[string]interface{} `json:"metavars,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Lines    string                 `json:"lines"`
}

// Diagnostic is a problem the engine reported while running, such as a rule or parse error.
type Diagnostic struct {
	Code    int    `json:"code"`
	Level   string `json:"level"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// Stats summarises an analysis run.
type Stats struct {
	RulesCount    int
	FilesCount    int
	MatchesCount  int
	ErrorsCount   int
	ExecutionTime time.Duration
}

// MarshalJSON renders the execution time in milliseconds.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RulesCount    int   `json:"rules_count"`
		FilesCount    int   `json:"files_count"`
		MatchesCount  int   `json:"matches_count"`
		ErrorsCount   int   `json:"errors_count"`
		ExecutionTime int64 `json:"execution_time_ms"`
	}{
		RulesCount:    s.RulesCount,
		FilesCount:    s.FilesCount,
		MatchesCount:  s.MatchesCount,
		ErrorsCount:   s.ErrorsCount,
		ExecutionTime: s.ExecutionTime.Milliseconds(),
	})
}

// Outcome is the result of one successful analysis job.
type Outcome struct {
	Matches      []Finding    `json:"results"`
	EngineErrors []Diagnostic `json:"errors"`
	Stats        Stats        `json:"stats"`
}
