package sarif

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-hclog"
	gosarif "github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-playground/internal/findings"
)

func testOutcome() *findings.Outcome {
	return &findings.Outcome{
		Matches: []findings.Finding{
			{
				RuleID:   "eval-usage",
				Path:     "code.js",
				Start:    findings.Position{Line: 1, Column: 0},
				End:      findings.Position{Line: 1, Column: 7},
				Severity: "ERROR",
				Message:  "eval is dangerous",
				Metadata: map[string]interface{}{
					"cwe":        []interface{}{"CWE-95: Eval Injection"},
					"owasp":      "A03:2021 - Injection",
					"confidence": "HIGH",
				},
				Lines: "eval(x)",
			},
			{
				RuleID:   "console-log",
				Path:     "code.js",
				Start:    findings.Position{Line: 2, Column: 0},
				End:      findings.Position{Line: 3, Column: 4},
				Severity: "INFO",
				Message:  "console.log left in code",
			},
			{
				RuleID:   "eval-usage",
				Path:     "code.js",
				Start:    findings.Position{Line: 4, Column: 2},
				End:      findings.Position{Line: 4, Column: 9},
				Severity: "ERROR",
				Message:  "eval is dangerous",
				Lines:    "  eval(y)",
			},
		},
		EngineErrors: []findings.Diagnostic{
			{Level: "warn", Message: "Syntax error at line code.js:9", Path: "code.js"},
		},
	}
}

func TestFromOutcome(t *testing.T) {
	version := "1.50.0"
	report, err := FromOutcome(testOutcome(), ToolMetadata{Name: "semgrep", Version: &version}, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	assert.Equal(t, "semgrep", run.Tool.Driver.Name)
	assert.Equal(t, "1.50.0", *run.Tool.Driver.SemanticVersion)

	require.Len(t, run.Tool.Driver.Rules, 2)
	evalRule := run.Tool.Driver.Rules[0]
	assert.Equal(t, "eval-usage", evalRule.ID)
	assert.Equal(t, "error", evalRule.DefaultConfiguration.Level)
	assert.Equal(t, []string{"CWE-95: Eval Injection", "A03:2021 - Injection"}, evalRule.Properties["tags"])
	assert.Equal(t, "HIGH", evalRule.Properties["confidence"])
	require.NotNil(t, evalRule.Help)
	assert.Contains(t, *evalRule.Help.Markdown, "https://cwe.mitre.org/data/definitions/95.html")
	assert.Contains(t, *evalRule.Help.Markdown, "https://owasp.org/Top10/A03_2021-Injection/")

	assert.Equal(t, "note", run.Tool.Driver.Rules[1].DefaultConfiguration.Level)
	assert.Nil(t, run.Tool.Driver.Rules[1].Properties)

	require.Len(t, run.Results, 3)
	first := run.Results[0]
	assert.Equal(t, "error", *first.Level)
	assert.Equal(t, "eval is dangerous", *first.Message.Text)
	region := first.Locations[0].PhysicalLocation.Region
	assert.Equal(t, 1, *region.StartLine)
	assert.Equal(t, 1, *region.StartColumn)
	assert.Equal(t, 8, *region.EndColumn)
	assert.Equal(t, "eval(x)", *region.Snippet.Text)
	assert.Equal(t, "code.js", *first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Len(t, first.PartialFingerprints[fingerprintKey], 32)
	assert.NotEqual(t, first.PartialFingerprints[fingerprintKey], run.Results[2].PartialFingerprints[fingerprintKey])

	assert.Nil(t, run.Results[1].Locations[0].PhysicalLocation.Region.Snippet)

	require.Len(t, run.Invocations, 1)
	assert.True(t, *run.Invocations[0].ExecutionSuccessful)
	require.Len(t, run.Invocations[0].ToolExecutionNotifications, 1)
	notification := run.Invocations[0].ToolExecutionNotifications[0]
	assert.Equal(t, "warning", notification.Level)
	assert.Equal(t, "Syntax error at line code.js:9", *notification.Message.Text)
}

func TestFromOutcomeEmpty(t *testing.T) {
	report, err := FromOutcome(&findings.Outcome{}, ToolMetadata{Name: "semgrep"}, hclog.NewNullLogger())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc["version"])
	runs := doc["runs"].([]interface{})
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].(map[string]interface{})["results"])

	meta, err := report.ExtractToolNameAndVersion()
	require.NoError(t, err)
	assert.Equal(t, "semgrep", meta.Name)
	assert.Nil(t, meta.Version)
}

func TestFromOutcomeSingleMatchFingerprint(t *testing.T) {
	outcome := &findings.Outcome{Matches: []findings.Finding{{
		RuleID:   "no-eval",
		Path:     "code.py",
		Start:    findings.Position{Line: 3, Column: 4},
		End:      findings.Position{Line: 3, Column: 12},
		Severity: "WARNING",
		Message:  "avoid eval",
		Lines:    "    eval(x)",
	}}}

	report, err := FromOutcome(outcome, ToolMetadata{Name: "semgrep"}, hclog.NewNullLogger())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))

	var doc struct {
		Runs []struct {
			Results []struct {
				PartialFingerprints map[string]string `json:"partialFingerprints"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Runs, 1)
	require.Len(t, doc.Runs[0].Results, 1)
	assert.Equal(t, calculateMD5Hash("no-eval|code.py|    eval(x)"), doc.Runs[0].Results[0].PartialFingerprints[fingerprintKey])
}

func TestCollectSeverityInfoAndSort(t *testing.T) {
	report, err := FromOutcome(testOutcome(), ToolMetadata{Name: "semgrep"}, hclog.NewNullLogger())
	require.NoError(t, err)

	report.EnrichResultsLevelProperty()
	assert.Equal(t, map[string]int{"high": 2, "medium": 0, "low": 1, "total": 3}, report.CollectSeverityInfo())

	report.SortResultsByLevel()
	levels := []string{}
	for _, result := range report.Runs[0].Results {
		levels = append(levels, *result.Level)
	}
	assert.Equal(t, []string{"error", "error", "note"}, levels)
}

func TestSummaries(t *testing.T) {
	report, err := FromOutcome(testOutcome(), ToolMetadata{Name: "semgrep"}, hclog.NewNullLogger())
	require.NoError(t, err)
	report.EnrichResultsLevelProperty()

	summaries := report.Summaries()
	require.Len(t, summaries, 3)
	assert.Equal(t, "[semgrep][High][eval-usage] at code.js:1", summaries[0].Title)
	assert.Equal(t, "eval(x)", summaries[0].Snippet)
	assert.Len(t, summaries[0].Refs, 2)
	assert.Equal(t, "[semgrep][Low][console-log] at code.js:2-3", summaries[1].Title)
	assert.Empty(t, summaries[1].Refs)
}

func TestEnrichResultsLevelPropertyInitialisesResultProperties(t *testing.T) {
	ruleID := "eval-usage"

	rule := &gosarif.ReportingDescriptor{
		ID: ruleID,
		Properties: gosarif.Properties{
			"problem.severity": "warning",
		},
	}

	result := &gosarif.Result{
		RuleID: &ruleID,
	}

	report := Report{
		Report: &gosarif.Report{
			Version: string(gosarif.Version210),
			Runs: []*gosarif.Run{
				{
					Tool: gosarif.Tool{
						Driver: &gosarif.ToolComponent{
							Name:  "semgrep",
							Rules: []*gosarif.ReportingDescriptor{rule},
						},
					},
					Results: []*gosarif.Result{result},
				},
			},
		},
	}

	report.EnrichResultsLevelProperty()

	if result.Properties == nil {
		t.Fatalf("expected result properties to be initialised, but it was nil")
	}

	level, ok := result.Properties["Level"]
	if !ok {
		t.Fatalf("expected Level property to be set on result properties")
	}

	if level != "warning" {
		t.Fatalf("expected Level property to be %q, got %v", "warning", level)
	}
}

func TestEnrichResultsLevelPropertyFallbacks(t *testing.T) {
	noteLevel := "note"
	tests := []struct {
		name   string
		rule   *gosarif.ReportingDescriptor
		result *gosarif.Result
		want   interface{}
	}{
		{
			name:   "result level wins",
			rule:   gosarif.NewRule("r").WithProperties(gosarif.Properties{"problem.severity": "warning"}),
			result: &gosarif.Result{Level: &noteLevel},
			want:   "note",
		},
		{
			name:   "default configuration",
			rule:   gosarif.NewRule("r").WithDefaultConfiguration(gosarif.NewReportingConfiguration().WithLevel("error")),
			result: &gosarif.Result{},
			want:   "error",
		},
		{
			name:   "unknown rule",
			rule:   gosarif.NewRule("other"),
			result: &gosarif.Result{},
			want:   "unknown",
		},
		{
			name:   "existing property kept",
			rule:   gosarif.NewRule("r").WithDefaultConfiguration(gosarif.NewReportingConfiguration().WithLevel("error")),
			result: &gosarif.Result{PropertyBag: gosarif.PropertyBag{Properties: gosarif.Properties{"Level": "warning"}}},
			want:   "warning",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ruleID := "r"
			tt.result.RuleID = &ruleID
			report := Report{Report: &gosarif.Report{Runs: []*gosarif.Run{{
				Tool:    gosarif.Tool{Driver: &gosarif.ToolComponent{Name: "semgrep", Rules: []*gosarif.ReportingDescriptor{tt.rule}}},
				Results: []*gosarif.Result{tt.result},
			}}}}

			report.EnrichResultsLevelProperty()
			assert.Equal(t, tt.want, tt.result.Properties["Level"])
		})
	}
}

func TestProcessSecurityTags(t *testing.T) {
	refs := processSecurityTags([]string{
		"CWE-79: Cross-site Scripting",
		"OWASP A01:2021 - Broken Access Control",
		"",
		"not-a-tag",
	})
	assert.Equal(t, []string{
		"- [CWE-79: Cross-site Scripting](https://cwe.mitre.org/data/definitions/79.html)",
		"- [OWASP A01:2021 - Broken Access Control](https://owasp.org/Top10/A01_2021-Broken_Access_Control/)",
	}, refs)
}

func TestDisplaySeverity(t *testing.T) {
	tests := map[string]string{
		"error":    "High",
		" Warning": "Medium",
		"note":     "Low",
		"none":     "Info",
		"":         "",
		"critical": "Critical",
	}
	for in, want := range tests {
		assert.Equal(t, want, displaySeverity(in), in)
	}
}

func TestLevelFromSeverity(t *testing.T) {
	assert.Equal(t, "error", levelFromSeverity("ERROR"))
	assert.Equal(t, "warning", levelFromSeverity("warning"))
	assert.Equal(t, "note", levelFromSeverity("INFO"))
	assert.Equal(t, "none", levelFromSeverity("INVENTORY"))
}
