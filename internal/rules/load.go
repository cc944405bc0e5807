package rules

import (
	"bytes"
	"fmt"

	yaml "gopkg.in/yaml.v2"

	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
	"github.com/scan-io-git/scanio-playground/pkg/shared/files"
)

// Load decodes rule definitions from YAML or JSON.
// Both a document with a top-level "rules" key and a bare list of rules are accepted.
func Load(data []byte) ([]Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.NewValidationError("rules file is empty")
	}

	var defs []Definition
	if trimmed[0] == '[' || trimmed[0] == '-' {
		if err := yaml.UnmarshalStrict(trimmed, &defs); err != nil {
			return nil, errs.NewValidationError(fmt.Sprintf("rules file cannot be parsed: %v", err))
		}
		return defs, nil
	}

	var doc struct {
		Rules []Definition `yaml:"rules"`
	}
	if err := yaml.UnmarshalStrict(trimmed, &doc); err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("rules file cannot be parsed: %v", err))
	}
	return doc.Rules, nil
}

// LoadFile reads and decodes the rules file at path. A leading tilde in path is expanded.
func LoadFile(path string) ([]Definition, error) {
	data, err := files.ReadValidatedFile(path)
	if err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("failed to read rules file: %v", err))
	}
	return Load(data)
}
