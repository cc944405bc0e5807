// Package languages holds the fixed set of languages a job can be analysed in.
package languages

import (
	"fmt"
	"strings"
)

// Language is the engine identifier of a supported language.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Java       Language = "java"
	Go         Language = "go"
	C          Language = "c"
	Cpp        Language = "cpp"
	Rust       Language = "rust"
	PHP        Language = "php"
	Ruby       Language = "ruby"
)

// Info describes a supported language.
type Info struct {
	ID        Language `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Extension string   `json:"extension" yaml:"extension"`
}

// supported is ordered for catalog output. Every Language constant must have an entry.
var supported = []Info{
	{ID: JavaScript, Name: "JavaScript", Extension: ".js"},
	{ID: TypeScript, Name: "TypeScript", Extension: ".ts"},
	{ID: Python, Name: "Python", Extension: ".py"},
	{ID: Java, Name: "Java", Extension: ".java"},
	{ID: Go, Name: "Go", Extension: ".go"},
	{ID: C, Name: "C", Extension: ".c"},
	{ID: Cpp, Name: "C++", Extension: ".cpp"},
	{ID: Rust, Name: "Rust", Extension: ".rs"},
	{ID: PHP, Name: "PHP", Extension: ".php"},
	{ID: Ruby, Name: "Ruby", Extension: ".rb"},
}

var byID = func() map[Language]Info {
	m := make(map[Language]Info, len(supported))
	for _, info := range supported {
		m[info.ID] = info
	}
	return m
}()

// All returns the supported languages in catalog order.
func All() []Info {
	out := make([]Info, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether l is a member of the supported set.
func IsSupported(l Language) bool {
	_, ok := byID[l]
	return ok
}

// Parse converts a user supplied identifier into a Language. Matching is case-insensitive.
func Parse(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !IsSupported(l) {
		return "", fmt.Errorf("unsupported language: %q", s)
	}
	return l, nil
}

// Extension returns the file extension used to signal l to the engine's language detector.
func Extension(l Language) (string, error) {
	info, ok := byID[l]
	if !ok {
		return "", fmt.Errorf("no file extension registered for language %q", l)
	}
	return info.Extension, nil
}
