package sarif

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Compiled regex patterns for security tag parsing
var (
	cweRegex   = regexp.MustCompile(`^CWE-(\d+)\b`)
	owaspRegex = regexp.MustCompile(`^(?:OWASP[- ]?)?A(\d{2}):(\d{4})\s*-\s*(.+)$`)
)

// metadata keys copied verbatim into rule properties
var passthroughMetadata = []string{"category", "confidence", "likelihood", "impact", "subcategory"}

// levelFromSeverity maps an engine severity to a SARIF level.
func levelFromSeverity(severity string) string {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case "ERROR":
		return "error"
	case "WARNING":
		return "warning"
	case "INFO":
		return "note"
	default:
		return "none"
	}
}

func notificationLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return "error"
	case "warn", "warning":
		return "warning"
	default:
		return "note"
	}
}

// displaySeverity normalizes SARIF severity levels to more descriptive labels.
func displaySeverity(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "error":
		return "High"
	case "warning":
		return "Medium"
	case "note":
		return "Low"
	case "none":
		return "Info"
	default:
		if normalized == "" {
			return ""
		}
		return cases.Title(language.Und).String(normalized)
	}
}

// securityTags collects the cwe and owasp entries of rule metadata. Both keys accept a string or a list.
func securityTags(metadata map[string]interface{}) []string {
	var tags []string
	for _, key := range []string{"cwe", "owasp"} {
		tags = append(tags, propertyStrings(metadata, key)...)
	}
	return tags
}

func ruleProperties(metadata map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{}
	if tags := securityTags(metadata); len(tags) > 0 {
		props["tags"] = tags
	}
	for _, key := range passthroughMetadata {
		if v := getStringProp(metadata, key); v != "" {
			props[key] = v
		}
	}
	return props
}

// generateOWASPSlug creates a URL-safe slug from OWASP title text.
func generateOWASPSlug(title string) string {
	slug := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	clean := make([]rune, 0, len(slug))
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			clean = append(clean, r)
		}
	}
	return string(clean)
}

// processSecurityTags converts security tags (CWE, OWASP) into markdown reference links.
// Unrecognized tags are skipped.
func processSecurityTags(tags []string) []string {
	var tagRefs []string
	for _, tag := range tags {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}

		if m := cweRegex.FindStringSubmatch(t); len(m) == 2 {
			url := fmt.Sprintf("https://cwe.mitre.org/data/definitions/%s.html", m[1])
			tagRefs = append(tagRefs, fmt.Sprintf("- [%s](%s)", t, url))
			continue
		}

		if m := owaspRegex.FindStringSubmatch(t); len(m) == 4 {
			url := fmt.Sprintf("https://owasp.org/Top10/A%s_%s-%s/", m[1], m[2], generateOWASPSlug(m[3]))
			tagRefs = append(tagRefs, fmt.Sprintf("- [%s](%s)", t, url))
		}
	}
	return tagRefs
}

// buildIssueTitle formats "[<tool>][<severity>][<ruleID>] at <file>:<line>",
// with a range when endLine > line.
func buildIssueTitle(toolName, severity, ruleID, fileURI string, line, endLine int) string {
	label := strings.TrimSpace(toolName)
	if label == "" {
		label = "SARIF"
	}
	parts := []string{label}
	if sev := strings.TrimSpace(severity); sev != "" {
		parts = append(parts, sev)
	}
	parts = append(parts, ruleID)
	title := fmt.Sprintf("[%s]", strings.Join(parts, "]["))
	if line > 0 {
		if endLine > line {
			return fmt.Sprintf("%s at %s:%d-%d", title, fileURI, line, endLine)
		}
		return fmt.Sprintf("%s at %s:%d", title, fileURI, line)
	}
	return fmt.Sprintf("%s at %s", title, fileURI)
}

// helper to fetch a string property safely
func getStringProp(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// propertyStrings reads a string or a list of strings stored under key.
func propertyStrings(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// function that calculates md5 hash for a given text
func calculateMD5Hash(text string) string {
	hash := md5.New()
	io.WriteString(hash, text)
	return hex.EncodeToString(hash.Sum(nil))
}

func joinLines(lines []string) string {
	sorted := append([]string(nil), lines...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\n")
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intValue(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
