package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateEngineConfig(&cfg.Engine); err != nil {
		return fmt.Errorf("YAML global config: engine directive is invalid: %w", err)
	}
	if err := ValidateWorkspaceConfig(&cfg.Workspace); err != nil {
		return fmt.Errorf("YAML global config: workspace directive is invalid: %w", err)
	}
	if err := ValidateAnalysisConfig(&cfg.Analysis); err != nil {
		return fmt.Errorf("YAML global config: analysis directive is invalid: %w", err)
	}
	return nil
}

// ValidateEngineConfig checks if the engine configurations have valid values.
func ValidateEngineConfig(engineConfig *Engine) error {
	if engineConfig == nil {
		return fmt.Errorf("engine configuration is nil")
	}
	if engineConfig.Binary == "" {
		return fmt.Errorf("binary must be set")
	}

	if err := validateDuration(engineConfig.MaxTimeout, "max_timeout", 1*time.Hour); err != nil {
		return err
	}
	if err := validateDuration(engineConfig.Timeout, "timeout", engineConfig.MaxTimeout); err != nil {
		return err
	}
	if engineConfig.Timeout == 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if engineConfig.MaxOutputBytes <= 0 {
		return fmt.Errorf("max_output_bytes must be positive: %d", engineConfig.MaxOutputBytes)
	}
	if engineConfig.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent cannot be negative: %d", engineConfig.MaxConcurrent)
	}
	return nil
}

// ValidateWorkspaceConfig checks that the scratch root is usable as a base for job directories.
func ValidateWorkspaceConfig(workspaceConfig *Workspace) error {
	if workspaceConfig == nil {
		return fmt.Errorf("workspace configuration is nil")
	}
	if workspaceConfig.Root == "" {
		return fmt.Errorf("root must be set")
	}
	if filepath.Clean(workspaceConfig.Root) == string(filepath.Separator) {
		return fmt.Errorf("root cannot be the filesystem root")
	}
	return nil
}

// ValidateAnalysisConfig checks the request limits.
func ValidateAnalysisConfig(analysisConfig *Analysis) error {
	if analysisConfig == nil {
		return fmt.Errorf("analysis configuration is nil")
	}
	if analysisConfig.MaxCodeLength <= 0 {
		return fmt.Errorf("max_code_length must be positive: %d", analysisConfig.MaxCodeLength)
	}
	if analysisConfig.ConcurrentJobs <= 0 {
		return fmt.Errorf("concurrent_jobs must be positive: %d", analysisConfig.ConcurrentJobs)
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}
