package analyse

import (
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

// validateAnalyseArgs validates the arguments provided to the analyse command.
// Request content (code size, language support, rule shape) is checked later by the analysis validator.
func validateAnalyseArgs(options *RunOptionsAnalyse, args []string) error {
	if len(args) > 0 {
		return errs.NewValidationError("the analyse command takes no positional arguments, use --code-file or --code")
	}

	if options.BatchFile != "" {
		if options.Language != "" || options.CodeFile != "" || options.Code != "" || options.RulesFile != "" || options.Preset != "" {
			return errs.NewValidationError("the 'batch' flag cannot be combined with per-job flags, describe every job in the jobs file")
		}
		if options.ReportFormat != FormatJSON {
			return errs.NewValidationError("batch results can only be reported in the json format")
		}
		if options.Threads < 0 {
			return errs.NewValidationError("the 'threads' flag must be a positive integer")
		}
		return nil
	}

	if options.Language == "" {
		return errs.NewValidationError("the 'language' flag must be specified")
	}

	if options.CodeFile != "" && options.Code != "" {
		return errs.NewValidationError("you cannot use the 'code-file' and 'code' flags at the same time")
	}
	if options.CodeFile == "" && options.Code == "" {
		return errs.NewValidationError("either the 'code-file' or the 'code' flag must be specified")
	}

	if options.RulesFile != "" && options.Preset != "" {
		return errs.NewValidationError("you cannot use the 'rules' and 'preset' flags at the same time")
	}
	if options.RulesFile == "" && options.Preset == "" {
		return errs.NewValidationError("either the 'rules' or the 'preset' flag must be specified")
	}

	switch options.ReportFormat {
	case FormatJSON, FormatSARIF:
		if options.TemplatePath != "" {
			return errs.NewValidationError("the 'template' flag is only supported with the text format")
		}
	case FormatText:
	default:
		return errs.NewValidationError("unsupported report format: " + options.ReportFormat)
	}

	if options.Threads != 0 {
		return errs.NewValidationError("the 'threads' flag is only supported in batch mode")
	}
	return nil
}
