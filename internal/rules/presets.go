package rules

// Preset is a named reference to a curated ruleset hosted by the engine's registry.
type Preset struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
	Ruleset     string `json:"ruleset" yaml:"ruleset"`
}

var presets = []Preset{
	{ID: "security", Name: "Security audit", Description: "General security vulnerability detection", Category: "security", Ruleset: "p/security-audit"},
	{ID: "owasp-top-10", Name: "OWASP Top 10", Description: "The OWASP top ten security risks", Category: "security", Ruleset: "p/owasp-top-10"},
	{ID: "command-injection", Name: "Command injection", Description: "Detects command injection vulnerabilities", Category: "injection", Ruleset: "p/command-injection"},
	{ID: "sql-injection", Name: "SQL injection", Description: "Detects SQL injection vulnerabilities", Category: "injection", Ruleset: "p/sql-injection"},
	{ID: "xss", Name: "Cross-site scripting", Description: "Detects XSS vulnerabilities", Category: "web", Ruleset: "p/xss"},
	{ID: "secrets", Name: "Secrets exposure", Description: "Detects API keys, passwords and other sensitive values", Category: "secrets", Ruleset: "p/secrets"},
}

// Presets returns the registered presets in catalog order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset returns the preset registered under id.
func LookupPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
