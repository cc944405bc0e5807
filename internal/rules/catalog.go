package rules

import (
	"github.com/scan-io-git/scanio-playground/internal/languages"
)

// Template is a starting point for writing a custom rule.
type Template struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Rule        Definition `json:"template" yaml:"template"`
}

// Templates returns rule skeletons for the common rule shapes.
func Templates() []Template {
	return []Template{
		{
			ID:          "basic-pattern",
			Name:        "Basic pattern match",
			Description: "A rule with a single pattern",
			Rule: Definition{
				ID:        "my-rule-id",
				Message:   "Describe the issue here",
				Languages: []languages.Language{languages.JavaScript},
				Severity:  SeverityError,
				Pattern:   "eval($INPUT)",
			},
		},
		{
			ID:          "multiple-patterns",
			Name:        "Multiple patterns",
			Description: "A rule combining several conditions",
			Rule: Definition{
				ID:        "my-complex-rule",
				Message:   "Describe the issue here",
				Languages: []languages.Language{languages.JavaScript},
				Severity:  SeverityWarning,
				Patterns: []PatternClause{
					{Pattern: "$OBJ.innerHTML = $VALUE"},
					{PatternNot: `$OBJ.innerHTML = "..."`},
				},
			},
		},
		{
			ID:          "with-metadata",
			Name:        "Rule with metadata",
			Description: "A rule carrying classification details",
			Rule: Definition{
				ID:        "my-categorized-rule",
				Message:   "Describe the issue here",
				Languages: []languages.Language{languages.JavaScript},
				Severity:  SeverityError,
				Pattern:   "child_process.exec($CMD)",
				Metadata: &Metadata{
					Category:    "security",
					Subcategory: []string{"injection"},
					Confidence:  LevelHigh,
					Impact:      LevelHigh,
					Technology:  []string{"nodejs"},
				},
			},
		},
	}
}

// Examples returns ready to run rules for common vulnerability classes.
func Examples() []Definition {
	return []Definition{
		{
			ID:        "sql-injection-format-string",
			Message:   "SQL query built with string formatting may lead to SQL injection",
			Languages: []languages.Language{languages.Python},
			Severity:  SeverityError,
			Pattern:   `$CURSOR.execute("..." % ...)`,
			Metadata: &Metadata{
				Category:    "security",
				Subcategory: []string{"sql-injection"},
				Confidence:  LevelHigh,
				Impact:      LevelHigh,
			},
		},
		{
			ID:        "hardcoded-secret",
			Message:   "Hardcoded API key or password, read it from the environment instead",
			Languages: []languages.Language{languages.JavaScript, languages.TypeScript},
			Severity:  SeverityWarning,
			Patterns: []PatternClause{
				{PatternEither: []string{
					`const $VAR = "sk-..."`,
					`const $VAR = "pk-..."`,
					`const password = "..."`,
				}},
			},
			Metadata: &Metadata{
				Category:    "security",
				Subcategory: []string{"secrets"},
				Confidence:  LevelMedium,
			},
		},
		{
			ID:        "eval-usage",
			Message:   "eval() can lead to code injection",
			Languages: []languages.Language{languages.JavaScript, languages.TypeScript},
			Severity:  SeverityError,
			Pattern:   "eval(...)",
			Metadata: &Metadata{
				Category:    "security",
				Subcategory: []string{"code-injection"},
				Confidence:  LevelHigh,
				Impact:      LevelHigh,
			},
		},
		{
			ID:        "unsafe-regex",
			Message:   "Regular expression built from input may be vulnerable to ReDoS",
			Languages: []languages.Language{languages.JavaScript, languages.TypeScript},
			Severity:  SeverityWarning,
			Pattern:   "new RegExp($PATTERN)",
			Metadata: &Metadata{
				Category:    "security",
				Subcategory: []string{"regex"},
				Confidence:  LevelMedium,
			},
		},
	}
}
