package analysis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"

	"github.com/scan-io-git/scanio-playground/internal/languages"
	"github.com/scan-io-git/scanio-playground/internal/rules"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

func evalRule() rules.Definition {
	return rules.Definition{
		ID:        "eval-usage",
		Message:   "eval is dangerous",
		Languages: []languages.Language{languages.JavaScript},
		Severity:  rules.SeverityError,
		Pattern:   "eval(...)",
	}
}

func validRequest() *Request {
	return &Request{
		Code:     "eval(x)\n",
		Language: languages.JavaScript,
		Rules:    Custom([]rules.Definition{evalRule()}),
	}
}

func TestValidatorValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr string
	}{
		{name: "valid custom rules", mutate: func(r *Request) {}},
		{name: "valid preset", mutate: func(r *Request) { r.Rules = Preset("security") }},
		{name: "code at the limit", mutate: func(r *Request) { r.Code = strings.Repeat("a", 100000) }},
		{name: "multibyte code counted in characters", mutate: func(r *Request) { r.Code = strings.Repeat("ж", 100000) }},
		{
			name:    "empty code",
			mutate:  func(r *Request) { r.Code = "" },
			wantErr: "code is required",
		},
		{
			name:    "whitespace code",
			mutate:  func(r *Request) { r.Code = " \n\t " },
			wantErr: "code is required",
		},
		{
			name:    "code over the limit",
			mutate:  func(r *Request) { r.Code = strings.Repeat("a", 100001) },
			wantErr: "code is too long: 100001 characters exceeds the limit of 100000",
		},
		{
			name:    "unsupported language",
			mutate:  func(r *Request) { r.Language = "cobol" },
			wantErr: `unsupported language: "cobol"`,
		},
		{
			name:    "empty rule list",
			mutate:  func(r *Request) { r.Rules = Custom(nil) },
			wantErr: "at least one analysis rule is required",
		},
		{
			name: "invalid rule",
			mutate: func(r *Request) {
				bad := evalRule()
				bad.Severity = "CRITICAL"
				r.Rules = Custom([]rules.Definition{bad})
			},
			wantErr: "severity",
		},
		{
			name:    "negative timeout",
			mutate:  func(r *Request) { r.Options.Timeout = -time.Second },
			wantErr: "timeout must be positive",
		},
		{
			name:    "sub-millisecond timeout",
			mutate:  func(r *Request) { r.Options.Timeout = 10 * time.Microsecond },
			wantErr: "timeout 10µs is below the minimum of 1ms",
		},
		{
			name:    "timeout above maximum",
			mutate:  func(r *Request) { r.Options.Timeout = time.Hour },
			wantErr: "timeout 1h0m0s exceeds the maximum of 5m0s",
		},
	}

	v := NewValidator(config.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := v.Validate(req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatorNilRequest(t *testing.T) {
	err := NewValidator(config.Default()).Validate(nil)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestRuleSetUnmarshal(t *testing.T) {
	var preset struct {
		Rules RuleSet `yaml:"rules"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("rules: owasp-top-10\n"), &preset))
	assert.True(t, preset.Rules.IsPreset())
	assert.Equal(t, "owasp-top-10", preset.Rules.PresetID())

	var custom Request
	require.NoError(t, yaml.Unmarshal([]byte(`
code: eval(x)
language: javascript
rules:
  - id: eval-usage
    message: eval is dangerous
    languages: [javascript]
    severity: ERROR
    pattern: eval(...)
options:
  timeout: 5s
`), &custom))
	assert.False(t, custom.Rules.IsPreset())
	assert.Equal(t, []rules.Definition{evalRule()}, custom.Rules.Definitions())
	assert.Equal(t, 5*time.Second, custom.Options.Timeout)

	var fromJSON Request
	require.NoError(t, json.Unmarshal([]byte(`{"code": "x", "language": "go", "rules": "xss"}`), &fromJSON))
	assert.Equal(t, "xss", fromJSON.Rules.PresetID())

	var customJSON Request
	require.NoError(t, json.Unmarshal([]byte(`{"rules": [{"id": "eval-usage", "message": "eval is dangerous", "languages": ["javascript"], "severity": "ERROR", "pattern": "eval(...)"}]}`), &customJSON))
	assert.Equal(t, []rules.Definition{evalRule()}, customJSON.Rules.Definitions())

	var bad Request
	assert.Error(t, json.Unmarshal([]byte(`{"rules": 42}`), &bad))
}

func TestOptionsTimeoutDecoding(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		json    string
		want    time.Duration
		wantErr bool
	}{
		{name: "integer milliseconds", yaml: "timeout: 10000", json: `{"timeout": 10000}`, want: 10 * time.Second},
		{name: "fractional milliseconds", yaml: "timeout: 1.5", json: `{"timeout": 1.5}`, want: 1500 * time.Microsecond},
		{name: "numeric string", yaml: `timeout: "250"`, json: `{"timeout": "250"}`, want: 250 * time.Millisecond},
		{name: "duration string", yaml: "timeout: 45s", json: `{"timeout": "45s"}`, want: 45 * time.Second},
		{name: "omitted", yaml: "verbose: true", json: `{"verbose": true}`, want: 0},
		{name: "garbage", yaml: "timeout: soon", json: `{"timeout": "soon"}`, wantErr: true},
		{name: "wrong type", yaml: "timeout: [1]", json: `{"timeout": [1]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromYAML Options
			yamlErr := yaml.UnmarshalStrict([]byte(tt.yaml), &fromYAML)
			var fromJSON Options
			jsonErr := json.Unmarshal([]byte(tt.json), &fromJSON)

			if tt.wantErr {
				assert.Error(t, yamlErr)
				assert.Error(t, jsonErr)
				return
			}
			require.NoError(t, yamlErr)
			require.NoError(t, jsonErr)
			assert.Equal(t, tt.want, fromYAML.Timeout)
			assert.Equal(t, tt.want, fromJSON.Timeout)
		})
	}
}

func TestOptionsRejectUnknownFields(t *testing.T) {
	var opts Options
	assert.Error(t, yaml.UnmarshalStrict([]byte("timout: 10"), &opts))
	assert.Error(t, json.Unmarshal([]byte(`{"timout": 10}`), &opts))
}

func TestOptionsKeepOtherFields(t *testing.T) {
	var opts Options
	require.NoError(t, yaml.UnmarshalStrict([]byte("timeout: 2000\nverbose: true\nmax_memory_mb: 512\n"), &opts))
	assert.Equal(t, Options{Timeout: 2 * time.Second, Verbose: true, MaxMemoryMB: 512}, opts)
}
