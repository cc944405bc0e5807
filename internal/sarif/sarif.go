// Package sarif converts analysis outcomes into SARIF 2.1.0 reports.
package sarif

import (
	"fmt"
	"io"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/scanio-playground/internal/findings"
)

const (
	engineInformationURI = "https://semgrep.dev"
	fingerprintKey       = "scanioFindingHash/v1"
)

type Report struct {
	*sarif.Report
	logger hclog.Logger
}

type ToolMetadata struct {
	Name    string
	Version *string
}

// ResultSummary is a flattened, display-ready view of one SARIF result.
type ResultSummary struct {
	Title    string
	Severity string
	Message  string
	Snippet  string
	Refs     []string
}

// FromOutcome builds a single-run report from an analysis outcome.
// Rules are registered in the order they are first seen in the matches.
func FromOutcome(outcome *findings.Outcome, tool ToolMetadata, logger hclog.Logger) (*Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create sarif report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(tool.Name, engineInformationURI)
	if tool.Version != nil && *tool.Version != "" {
		run.Tool.Driver.WithSemanticVersion(*tool.Version)
	}

	for _, f := range outcome.Matches {
		level := levelFromSeverity(f.Severity)

		rule := run.AddRule(f.RuleID)
		if rule.ShortDescription == nil {
			rule.WithDescription(f.Message).
				WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel(level))
			if props := ruleProperties(f.Metadata); len(props) > 0 {
				rule.WithProperties(props)
			}
			if refs := processSecurityTags(securityTags(f.Metadata)); len(refs) > 0 {
				rule.WithMarkdownHelp(joinLines(refs))
			}
		}

		region := sarif.NewRegion().
			WithStartLine(f.Start.Line).
			WithStartColumn(f.Start.Column + 1).
			WithEndLine(f.End.Line).
			WithEndColumn(f.End.Column + 1)
		if f.Lines != "" {
			region.WithSnippet(sarif.NewArtifactContent().WithText(f.Lines))
		}

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(f.Path)).
				WithRegion(region),
		)

		result := sarif.NewRuleResult(f.RuleID).
			WithLevel(level).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLocations([]*sarif.Location{location}).
			WithPartialFingerPrints(map[string]interface{}{
				fingerprintKey: calculateMD5Hash(fmt.Sprintf("%s|%s|%s", f.RuleID, f.Path, f.Lines)),
			})
		run.AddResult(result)
	}

	invocation := run.AddInvocation(true)
	for _, d := range outcome.EngineErrors {
		notification := sarif.NewNotification().
			WithLevel(notificationLevel(d.Level)).
			WithTextMessage(d.Message)
		if d.Path != "" {
			notification.AddLocation(sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().WithArtifactLocation(sarif.NewSimpleArtifactLocation(d.Path)),
			))
		}
		invocation.AddTToolExecutionNotification(notification)
	}

	report.AddRun(run)
	logger.Debug("sarif report built", "rules", len(run.Tool.Driver.Rules), "results", len(run.Results), "notifications", len(outcome.EngineErrors))
	return &Report{Report: report, logger: logger}, nil
}

// ExtractToolNameAndVersion function extracts tool name and version from a sarif report
func (r Report) ExtractToolNameAndVersion() (*ToolMetadata, error) {
	if len(r.Runs) == 0 || r.Runs[0].Tool.Driver == nil {
		return nil, fmt.Errorf("sarif report has no runs")
	}
	return &ToolMetadata{
		Name:    r.Runs[0].Tool.Driver.Name,
		Version: r.Runs[0].Tool.Driver.SemanticVersion,
	}, nil
}

// CollectSeverityInfo counts results per severity bucket.
// It expects EnrichResultsLevelProperty to have run.
func (r Report) CollectSeverityInfo() map[string]int {
	severityInfo := map[string]int{
		"low":    0,
		"medium": 0,
		"high":   0,
		"total":  0,
	}

	for _, run := range r.Runs {
		for _, result := range run.Results {
			switch getStringProp(result.Properties, "Level") {
			case "error":
				severityInfo["high"]++
			case "warning":
				severityInfo["medium"]++
			default:
				severityInfo["low"]++
			}
			severityInfo["total"]++
		}
	}

	return severityInfo
}

// EnrichResultsLevelProperty copies each result's effective level into its "Level" property,
// falling back to the rule's default configuration.
func (r Report) EnrichResultsLevelProperty() {
	for _, run := range r.Runs {
		rulesMap := map[string]*sarif.ReportingDescriptor{}
		if run.Tool.Driver != nil {
			for _, rule := range run.Tool.Driver.Rules {
				rulesMap[rule.ID] = rule
			}
		}

		for _, result := range run.Results {
			if result.Properties == nil {
				result.Properties = make(map[string]interface{})
			}
			if result.Properties["Level"] != nil {
				continue
			}

			switch rule, ok := rulesMap[stringValue(result.RuleID)]; {
			case result.Level != nil:
				result.Properties["Level"] = *result.Level
			case ok && rule.Properties["problem.severity"] != nil:
				result.Properties["Level"] = rule.Properties["problem.severity"]
			case ok && rule.DefaultConfiguration != nil:
				result.Properties["Level"] = rule.DefaultConfiguration.Level
			default:
				result.Properties["Level"] = "unknown"
			}
		}
	}
}

// SortResultsByLevel orders results error first. Results of equal level keep their order.
func (r Report) SortResultsByLevel() {
	levelOrder := map[string]int{
		"error":   0,
		"warning": 1,
		"note":    2,
		"none":    3,
		"unknown": 4,
	}

	for _, run := range r.Runs {
		sort.SliceStable(run.Results, func(i, j int) bool {
			return levelOrder[getStringProp(run.Results[i].Properties, "Level")] < levelOrder[getStringProp(run.Results[j].Properties, "Level")]
		})
	}
}

// Summaries returns one display entry per result of the first run.
func (r Report) Summaries() []ResultSummary {
	if len(r.Runs) == 0 {
		return nil
	}
	run := r.Runs[0]
	toolName := ""
	if run.Tool.Driver != nil {
		toolName = run.Tool.Driver.Name
	}

	var summaries []ResultSummary
	for _, result := range run.Results {
		ruleID := stringValue(result.RuleID)
		severity := displaySeverity(getStringProp(result.Properties, "Level"))

		var uri, snippet string
		var line, endLine int
		if len(result.Locations) > 0 && result.Locations[0].PhysicalLocation != nil {
			pl := result.Locations[0].PhysicalLocation
			if pl.ArtifactLocation != nil {
				uri = stringValue(pl.ArtifactLocation.URI)
			}
			if pl.Region != nil {
				line = intValue(pl.Region.StartLine)
				endLine = intValue(pl.Region.EndLine)
				if pl.Region.Snippet != nil {
					snippet = stringValue(pl.Region.Snippet.Text)
				}
			}
		}

		var refs []string
		if rule, err := run.GetRuleById(ruleID); err == nil {
			refs = processSecurityTags(propertyStrings(rule.Properties, "tags"))
		}

		summaries = append(summaries, ResultSummary{
			Title:    buildIssueTitle(toolName, severity, ruleID, uri, line, endLine),
			Severity: severity,
			Message:  stringValue(result.Message.Text),
			Snippet:  snippet,
			Refs:     refs,
		})
	}
	return summaries
}

// Write writes the report as indented JSON.
func (r Report) Write(w io.Writer) error {
	if err := r.PrettyWrite(w); err != nil {
		return fmt.Errorf("failed to write sarif report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
