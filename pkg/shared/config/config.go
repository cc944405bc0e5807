package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultConfigPath     = "config.yml"
	DefaultEngineBinary   = "semgrep"
	DefaultEngineTimeout  = 30 * time.Second
	DefaultMaxTimeout     = 5 * time.Minute
	DefaultMaxOutputBytes = 10 * 1024 * 1024
	DefaultMaxCodeLength  = 100000
)

type Config struct {
	Logger    Logger    `yaml:"logger"`
	Engine    Engine    `yaml:"engine"`
	Workspace Workspace `yaml:"workspace"`
	Analysis  Analysis  `yaml:"analysis"`
}

type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      *bool  `yaml:"json_format"`
	DisableTime     *bool  `yaml:"disable_time"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// Engine holds the settings used to invoke the external analysis engine.
type Engine struct {
	Binary         string            `yaml:"binary"`
	Timeout        time.Duration     `yaml:"timeout"`
	MaxTimeout     time.Duration     `yaml:"max_timeout"`
	MaxOutputBytes int64             `yaml:"max_output_bytes"`
	MaxConcurrent  int64             `yaml:"max_concurrent"` // 0 means unlimited
	AdditionalArgs []string          `yaml:"additional_args"`
	Env            map[string]string `yaml:"env"`
}

type Workspace struct {
	Root string `yaml:"root"`
}

type Analysis struct {
	MaxCodeLength  int `yaml:"max_code_length"`
	ConcurrentJobs int `yaml:"concurrent_jobs"`
}

// ValidateConfigPath checks that path points to a file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the configuration from configPath and fills in defaults and environment overrides.
// A missing file at the default path is not an error, the defaults are used instead.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		configPath = DefaultConfigPath
	}
	if err := LoadYAML(configPath, cfg); err != nil {
		if !(os.IsNotExist(err) && configPath == DefaultConfigPath) {
			return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
		}
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// Default returns a configuration with every value set to its default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields and applies environment overrides.
func ApplyDefaults(cfg *Config) {
	cfg.Engine.Binary = SetThen(os.Getenv("SCANIO_ENGINE_BINARY"), SetThen(cfg.Engine.Binary, DefaultEngineBinary))
	cfg.Engine.Timeout = SetThen(cfg.Engine.Timeout, DefaultEngineTimeout)
	cfg.Engine.MaxTimeout = SetThen(cfg.Engine.MaxTimeout, DefaultMaxTimeout)
	cfg.Engine.MaxOutputBytes = SetThen(cfg.Engine.MaxOutputBytes, int64(DefaultMaxOutputBytes))

	cfg.Workspace.Root = SetThen(os.Getenv("SCANIO_TEMP_FOLDER"), SetThen(cfg.Workspace.Root, filepath.Join(os.TempDir(), "scanio-playground")))

	cfg.Analysis.MaxCodeLength = SetThen(cfg.Analysis.MaxCodeLength, DefaultMaxCodeLength)
	cfg.Analysis.ConcurrentJobs = SetThen(cfg.Analysis.ConcurrentJobs, 1)
}

// GetWorkspaceRoot returns the scratch root under which job workspaces are created.
func GetWorkspaceRoot(cfg *Config) string {
	if cfg == nil || cfg.Workspace.Root == "" {
		return filepath.Join(os.TempDir(), "scanio-playground")
	}
	return cfg.Workspace.Root
}
