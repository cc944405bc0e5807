package rules

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/scanio-playground/internal/languages"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

// Validate checks every definition and reports all problems at once as a ValidationError.
func Validate(defs []Definition) error {
	if len(defs) == 0 {
		return errs.NewValidationError("at least one analysis rule is required")
	}

	var problems []string
	seen := make(map[string]int, len(defs))
	for i, def := range defs {
		problems = append(problems, validateDefinition(i, def, seen)...)
	}

	if len(problems) > 0 {
		return errs.NewValidationError("rule validation failed", problems...)
	}
	return nil
}

func validateDefinition(index int, def Definition, seen map[string]int) []string {
	var problems []string
	name := ruleName(index, def)
	report := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf("rule %s: ", name)+fmt.Sprintf(format, args...))
	}

	id := strings.TrimSpace(def.ID)
	switch {
	case id == "":
		report("id cannot be empty")
	case id != def.ID || strings.ContainsAny(id, " \t\n"):
		report("id cannot contain whitespace")
	default:
		if first, ok := seen[id]; ok {
			report("id duplicates rule #%d", first+1)
		} else {
			seen[id] = index
		}
	}

	if strings.TrimSpace(def.Message) == "" {
		report("message cannot be empty")
	}

	if len(def.Languages) == 0 {
		report("at least one language must be specified")
	}
	for _, l := range def.Languages {
		if !languages.IsSupported(l) {
			report("unsupported language %q", l)
		}
	}

	if !def.Severity.IsValid() {
		report("severity must be ERROR, WARNING or INFO, got %q", def.Severity)
	}

	switch {
	case def.Pattern == "" && len(def.Patterns) == 0:
		report("either pattern or patterns must be specified")
	case def.Pattern != "" && len(def.Patterns) > 0:
		report("pattern and patterns cannot be used together")
	}
	for j, clause := range def.Patterns {
		kinds := clause.kinds()
		switch {
		case len(kinds) == 0:
			report("patterns[%d] is empty", j)
		case len(kinds) > 1:
			report("patterns[%d] mixes %s", j, strings.Join(kinds, " and "))
		case clause.PatternEither != nil && len(clause.PatternEither) == 0:
			report("patterns[%d] pattern-either needs at least one alternative", j)
		}
		for k, alt := range clause.PatternEither {
			if strings.TrimSpace(alt) == "" {
				report("patterns[%d] pattern-either[%d] is empty", j, k)
			}
		}
	}

	if def.Metadata != nil {
		levels := map[string]Level{
			"confidence": def.Metadata.Confidence,
			"impact":     def.Metadata.Impact,
			"likelihood": def.Metadata.Likelihood,
		}
		for _, field := range []string{"confidence", "impact", "likelihood"} {
			if !levels[field].IsValid() {
				report("metadata %s must be LOW, MEDIUM or HIGH, got %q", field, levels[field])
			}
		}
	}

	return problems
}

func ruleName(index int, def Definition) string {
	if def.ID != "" {
		return def.ID
	}
	return fmt.Sprintf("#%d", index+1)
}
