package rules

import (
	"github.com/scan-io-git/scanio-playground/internal/languages"
)

// Severity of a rule and of the findings it produces.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// IsValid reports whether s is one of the severities the engine accepts.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Level grades confidence, impact and likelihood in rule metadata.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// IsValid reports whether l is empty or one of the known levels.
func (l Level) IsValid() bool {
	switch l {
	case "", LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// PatternClause is one entry of a rule's patterns list. Exactly one field must be set.
type PatternClause struct {
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	PatternNot    string   `json:"pattern-not,omitempty" yaml:"pattern-not,omitempty"`
	PatternEither []string `json:"pattern-either,omitempty" yaml:"pattern-either,omitempty"`
	PatternInside string   `json:"pattern-inside,omitempty" yaml:"pattern-inside,omitempty"`
}

// kinds lists the clause kinds set on c, in schema order.
func (c PatternClause) kinds() []string {
	var kinds []string
	if c.Pattern != "" {
		kinds = append(kinds, "pattern")
	}
	if c.PatternNot != "" {
		kinds = append(kinds, "pattern-not")
	}
	if c.PatternEither != nil {
		kinds = append(kinds, "pattern-either")
	}
	if c.PatternInside != "" {
		kinds = append(kinds, "pattern-inside")
	}
	return kinds
}

// Metadata is the optional classification attached to a rule and echoed back on its findings.
type Metadata struct {
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Subcategory []string `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Confidence  Level    `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Impact      Level    `json:"impact,omitempty" yaml:"impact,omitempty"`
	Likelihood  Level    `json:"likelihood,omitempty" yaml:"likelihood,omitempty"`
	Technology  []string `json:"technology,omitempty" yaml:"technology,omitempty"`
	CWE         []string `json:"cwe,omitempty" yaml:"cwe,omitempty"`
	OWASP       []string `json:"owasp,omitempty" yaml:"owasp,omitempty"`
	References  []string `json:"references,omitempty" yaml:"references,omitempty"`
}

// Definition is a caller-authored custom detection rule.
type Definition struct {
	ID        string               `json:"id" yaml:"id"`
	Message   string               `json:"message" yaml:"message"`
	Languages []languages.Language `json:"languages" yaml:"languages"`
	Severity  Severity             `json:"severity" yaml:"severity"`
	Pattern   string               `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Patterns  []PatternClause      `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Metadata  *Metadata            `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
