// Package enginetest provides shell-script stand-ins for the analysis engine.
package enginetest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Report is a minimal engine JSON report with one match on line 1 of code.js.
const Report = `{"results":[{"check_id":"eval-usage","path":"code.js","start":{"line":1,"col":1,"offset":0},"end":{"line":1,"col":8,"offset":7},"extra":{"message":"eval is dangerous","severity":"ERROR","lines":"eval(x)"}}],"errors":[],"paths":{"scanned":["code.js"]}}`

// EmptyReport is an engine JSON report without matches.
const EmptyReport = `{"results":[],"errors":[],"paths":{"scanned":["code.js"]}}`

// Write creates an executable /bin/sh script with the given body and returns its path.
// Tests using it are skipped on Windows.
func Write(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-engine")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake engine: %v", err)
	}
	return path
}

// Printing returns a fake engine that prints report and exits 0.
func Printing(t *testing.T, report string) string {
	t.Helper()
	return Write(t, "cat <<'JSON'\n"+report+"\nJSON")
}
