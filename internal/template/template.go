package template

import (
	_ "embed"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/scan-io-git/scanio-playground/internal/findings"
	"github.com/scan-io-git/scanio-playground/internal/sarif"
)

//go:embed report.txt.tmpl
var defaultReport string

// TextReport is the data rendered by the text report template.
type TextReport struct {
	Tool        string
	Language    string
	Rules       string
	GeneratedAt time.Time
	Results     []sarif.ResultSummary
	Severity    map[string]int
	Stats       findings.Stats
	Errors      []findings.Diagnostic
}

// add adds two integers and returns the result.
// helper function for text template
func add(a, b int) int {
	return a + b
}

// indent prefixes every line of s with n spaces.
// helper function for text template
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	return pad + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+pad)
}

// ordinalDate returns a string with the ordinal number of the day
// helper function for text template
func ordinalDate(day int) string {
	suffix := "th"
	switch day {
	case 1, 21, 31:
		suffix = "st"
	case 2, 22:
		suffix = "nd"
	case 3, 23:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

// formatDateTime formats a time.Time object into the specified string format.
// helper function for text template
func formatDateTime(t time.Time) string {
	day := ordinalDate(t.Day())
	return fmt.Sprintf("%s %s %d %d:%02d:%02d %s", day, t.Month(), t.Year(), t.Hour()%12, t.Minute(), t.Second(), t.Format("pm"))
}

// NewTemplate parses templateFile, or the built-in report template when templateFile is empty.
func NewTemplate(templateFile string) (*template.Template, error) {
	funcs := template.FuncMap{
		"add":            add,
		"indent":         indent,
		"formatDateTime": formatDateTime,
	}
	if templateFile == "" {
		return template.New("report.txt").Funcs(funcs).Parse(defaultReport)
	}
	return template.New(filepath.Base(templateFile)).Funcs(funcs).ParseFiles(templateFile)
}

// Render executes tmpl with report into w.
func Render(w io.Writer, tmpl *template.Template, report TextReport) error {
	if err := tmpl.Execute(w, report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
