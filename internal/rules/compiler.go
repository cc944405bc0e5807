package rules

import (
	"fmt"

	yaml "gopkg.in/yaml.v2"

	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

// CompiledRuleSet is the rule-configuration document handed to the engine.
type CompiledRuleSet struct {
	Document  []byte
	RuleIDs   []string // custom rule ids, empty for a preset
	RuleCount int
	Ruleset   string // external ruleset reference when compiled from a preset
}

// The field order of the stanza types is the order the engine schema documents
// and must stay stable: output is compared byte for byte.
type configDocument struct {
	Rules []ruleStanza `yaml:"rules"`
}

type ruleStanza struct {
	ID             string          `yaml:"id"`
	Message        string          `yaml:"message,omitempty"`
	Languages      []string        `yaml:"languages,omitempty,flow"`
	Severity       string          `yaml:"severity,omitempty"`
	Pattern        string          `yaml:"pattern,omitempty"`
	Patterns       []patternStanza `yaml:"patterns,omitempty"`
	PatternSources []string        `yaml:"pattern-sources,omitempty,flow"`
	Metadata       *Metadata       `yaml:"metadata,omitempty"`
}

type patternStanza struct {
	Pattern       string         `yaml:"pattern,omitempty"`
	PatternNot    string         `yaml:"pattern-not,omitempty"`
	PatternEither []eitherStanza `yaml:"pattern-either,omitempty"`
	PatternInside string         `yaml:"pattern-inside,omitempty"`
}

type eitherStanza struct {
	Pattern string `yaml:"pattern"`
}

// Compile renders custom rule definitions into a rule-configuration document.
// The definitions are expected to have passed Validate.
func Compile(defs []Definition) (*CompiledRuleSet, error) {
	if len(defs) == 0 {
		return nil, errs.NewValidationError("at least one analysis rule is required")
	}

	doc := configDocument{Rules: make([]ruleStanza, 0, len(defs))}
	ids := make([]string, 0, len(defs))
	for _, def := range defs {
		doc.Rules = append(doc.Rules, newRuleStanza(def))
		ids = append(ids, def.ID)
	}

	data, err := marshal(doc)
	if err != nil {
		return nil, err
	}
	return &CompiledRuleSet{Document: data, RuleIDs: ids, RuleCount: len(defs)}, nil
}

// CompilePreset renders a document delegating to the ruleset registered for presetID.
func CompilePreset(presetID string) (*CompiledRuleSet, error) {
	preset, ok := LookupPreset(presetID)
	if !ok {
		return nil, errs.NewValidationError(fmt.Sprintf("unknown preset ruleset: %q", presetID))
	}

	doc := configDocument{Rules: []ruleStanza{{
		ID:             preset.ID,
		PatternSources: []string{preset.Ruleset},
	}}}

	data, err := marshal(doc)
	if err != nil {
		return nil, err
	}
	return &CompiledRuleSet{Document: data, RuleCount: 1, Ruleset: preset.Ruleset}, nil
}

func newRuleStanza(def Definition) ruleStanza {
	stanza := ruleStanza{
		ID:       def.ID,
		Message:  def.Message,
		Severity: string(def.Severity),
		Pattern:  def.Pattern,
		Metadata: def.Metadata,
	}
	for _, l := range def.Languages {
		stanza.Languages = append(stanza.Languages, string(l))
	}
	for _, clause := range def.Patterns {
		ps := patternStanza{
			Pattern:       clause.Pattern,
			PatternNot:    clause.PatternNot,
			PatternInside: clause.PatternInside,
		}
		for _, alt := range clause.PatternEither {
			ps.PatternEither = append(ps.PatternEither, eitherStanza{Pattern: alt})
		}
		stanza.Patterns = append(stanza.Patterns, ps)
	}
	return stanza
}

func marshal(doc configDocument) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("rule set cannot be serialised: %v", err))
	}
	return data, nil
}
