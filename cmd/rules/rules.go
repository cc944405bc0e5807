package rules

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/scan-io-git/scanio-playground/internal/rules"
	"github.com/scan-io-git/scanio-playground/pkg/shared"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
	"github.com/scan-io-git/scanio-playground/pkg/shared/logger"
)

// ValidationResult is printed by the validate subcommand.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	RulesCount int      `json:"rules_count"`
	Message    string   `json:"message,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

var (
	AppConfig     *config.Config
	compilePreset string
	outputPath    string

	exampleRulesUsage = `  # Checking a rules file before using it in an analysis
  scanio-playground rules validate rules.yml

  # Printing the document handed to the engine for custom rules or a preset
  scanio-playground rules compile rules.yml
  scanio-playground rules compile --preset owasp-top-10

  # Starting a new rules file from the bundled examples
  scanio-playground rules examples --output rules.yml`
)

// RulesCmd groups the rule authoring subcommands.
var RulesCmd = &cobra.Command{
	Use:                   "rules [command]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRulesUsage,
	Short:                 "Validates, compiles and lists analysis rules",
}

var validateCmd = &cobra.Command{
	Use:                   "validate PATH",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Checks a rules file and reports every problem found",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runValidateCommand,
}

var compileCmd = &cobra.Command{
	Use:                   "compile {PATH | --preset ID}",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Prints the rule-configuration document handed to the engine",
	Args:                  cobra.MaximumNArgs(1),
	RunE:                  runCompileCommand,
}

var templatesCmd = &cobra.Command{
	Use:                   "templates",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Lists rule skeletons for the common rule shapes",
	Args:                  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeYAML(cmd, struct {
			Templates []rules.Template `yaml:"templates"`
		}{Templates: rules.Templates()})
	},
}

var examplesCmd = &cobra.Command{
	Use:                   "examples",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Prints example rules as a ready to use rules file",
	Args:                  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeYAML(cmd, struct {
			Rules []rules.Definition `yaml:"rules"`
		}{Rules: rules.Examples()})
	},
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-rules")

	result, err := validateRulesFile(args[0])
	if writeErr := shared.WriteGenericResult(logger, result, outputPath, cmd.OutOrStdout()); writeErr != nil {
		logger.Error("failed to write result", "error", writeErr)
		return writeErr
	}
	if err != nil {
		logger.Error("rules are invalid", "path", args[0], "error", err)
		return errs.NewCommandError(result, err)
	}

	logger.Info("rules are valid", "path", args[0], "rules", result.RulesCount)
	return nil
}

// validateRulesFile loads and validates path. The result describes the outcome in both cases.
func validateRulesFile(path string) (ValidationResult, error) {
	defs, err := rules.LoadFile(path)
	if err == nil {
		err = rules.Validate(defs)
	}

	result := ValidationResult{Valid: err == nil, RulesCount: len(defs)}
	var validationErr *errs.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &validationErr):
		result.Message = validationErr.Message
		result.Errors = validationErr.Details
	default:
		result.Message = err.Error()
	}
	return result, err
}

func runCompileCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-rules")

	if (len(args) == 0) == (compilePreset == "") {
		return errs.NewValidationError("either a rules file or the 'preset' flag must be specified")
	}

	var compiled *rules.CompiledRuleSet
	var err error
	if compilePreset != "" {
		compiled, err = rules.CompilePreset(compilePreset)
	} else {
		compiled, err = compileRulesFile(args[0])
	}
	if err != nil {
		logger.Error("failed to compile rules", "error", err)
		return err
	}

	logger.Debug("rules compiled", "rules", compiled.RuleCount, "ruleset", compiled.Ruleset)
	return shared.WriteOutput(logger, compiled.Document, outputPath, cmd.OutOrStdout())
}

func compileRulesFile(path string) (*rules.CompiledRuleSet, error) {
	defs, err := rules.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := rules.Validate(defs); err != nil {
		return nil, err
	}
	return rules.Compile(defs)
}

func writeYAML(cmd *cobra.Command, v interface{}) error {
	logger := logger.NewLogger(AppConfig, "core-rules")
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return shared.WriteOutput(logger, data, outputPath, cmd.OutOrStdout())
}

func init() {
	compileCmd.Flags().StringVarP(&compilePreset, "preset", "p", "", "Identifier of a curated preset to compile instead of a rules file.")
	RulesCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Path to the output file. Results are printed to stdout when omitted.")

	RulesCmd.AddCommand(validateCmd, compileCmd, templatesCmd, examplesCmd)
}
