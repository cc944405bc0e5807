// Package analysis validates analysis requests and drives one job through its lifecycle.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/scan-io-git/scanio-playground/internal/languages"
	"github.com/scan-io-git/scanio-playground/internal/rules"
)

// Request is one unit of analysis work.
type Request struct {
	Code     string             `json:"code" yaml:"code"`
	Language languages.Language `json:"language" yaml:"language"`
	Rules    RuleSet            `json:"rules" yaml:"rules"`
	Options  Options            `json:"options,omitempty" yaml:"options,omitempty"`
}

// Options are the optional per-request engine settings.
// In request files the timeout is an integer number of milliseconds or a duration string such as "10s".
type Options struct {
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"` // 0 uses the configured default
	Verbose     bool          `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	MaxMemoryMB int           `json:"max_memory_mb,omitempty" yaml:"max_memory_mb,omitempty"`
}

type rawOptions struct {
	Timeout     interface{} `json:"timeout" yaml:"timeout"`
	Verbose     bool        `json:"verbose" yaml:"verbose"`
	MaxMemoryMB int         `json:"max_memory_mb" yaml:"max_memory_mb"`
}

func (r rawOptions) options() (Options, error) {
	timeout, err := parseTimeout(r.Timeout)
	if err != nil {
		return Options{}, err
	}
	return Options{Timeout: timeout, Verbose: r.Verbose, MaxMemoryMB: r.MaxMemoryMB}, nil
}

// UnmarshalYAML reads the timeout as milliseconds or as a duration string.
func (o *Options) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw rawOptions
	if err := unmarshal(&raw); err != nil {
		return err
	}
	opts, err := raw.options()
	if err != nil {
		return err
	}
	*o = opts
	return nil
}

// UnmarshalJSON reads the timeout as milliseconds or as a duration string.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw rawOptions
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	opts, err := raw.options()
	if err != nil {
		return err
	}
	*o = opts
	return nil
}

func parseTimeout(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case uint64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case json.Number:
		return parseTimeout(v.String())
	case string:
		s := strings.TrimSpace(v)
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(ms * float64(time.Millisecond)), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("timeout %q is neither milliseconds nor a duration", v)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("timeout must be milliseconds or a duration, got %T", value)
	}
}

// RuleSet is either a preset identifier or a list of custom rule definitions.
// The zero value is an empty custom set.
type RuleSet struct {
	preset string
	defs   []rules.Definition
}

// Preset returns a RuleSet naming a built-in preset.
func Preset(id string) RuleSet {
	return RuleSet{preset: id}
}

// Custom returns a RuleSet of caller-authored definitions.
func Custom(defs []rules.Definition) RuleSet {
	return RuleSet{defs: defs}
}

// IsPreset reports whether the set names a preset.
func (s RuleSet) IsPreset() bool {
	return s.preset != ""
}

// PresetID returns the preset identifier, or "" for a custom set.
func (s RuleSet) PresetID() string {
	return s.preset
}

// Definitions returns the custom definitions, or nil for a preset.
func (s RuleSet) Definitions() []rules.Definition {
	return s.defs
}

func (s RuleSet) String() string {
	if s.IsPreset() {
		return "preset:" + s.preset
	}
	return fmt.Sprintf("custom:%d", len(s.defs))
}

// UnmarshalYAML accepts a preset identifier string or a sequence of rule definitions.
func (s *RuleSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var preset string
	if err := unmarshal(&preset); err == nil {
		*s = Preset(preset)
		return nil
	}

	var defs []rules.Definition
	if err := unmarshal(&defs); err != nil {
		return fmt.Errorf("rules must be a preset identifier or a list of rule definitions: %w", err)
	}
	*s = Custom(defs)
	return nil
}

// UnmarshalJSON accepts a preset identifier string or an array of rule definitions.
func (s *RuleSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var preset string
		if err := json.Unmarshal(data, &preset); err != nil {
			return err
		}
		*s = Preset(preset)
		return nil
	}

	var defs []rules.Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("rules must be a preset identifier or a list of rule definitions: %w", err)
	}
	*s = Custom(defs)
	return nil
}
