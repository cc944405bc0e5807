package analysis

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/scan-io-git/scanio-playground/internal/languages"
	"github.com/scan-io-git/scanio-playground/internal/rules"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

// Validator gates requests before any resource is allocated for them.
type Validator struct {
	maxCodeLength int
	maxTimeout    time.Duration
}

// NewValidator creates a Validator enforcing the configured limits.
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{
		maxCodeLength: config.SetThen(cfg.Analysis.MaxCodeLength, config.DefaultMaxCodeLength),
		maxTimeout:    config.SetThen(cfg.Engine.MaxTimeout, config.DefaultMaxTimeout),
	}
}

// Validate returns a ValidationError describing the first request-level problem.
// Problems in custom rule definitions are reported together.
func (v *Validator) Validate(req *Request) error {
	if req == nil {
		return errs.NewValidationError("analysis request is empty")
	}

	if strings.TrimSpace(req.Code) == "" {
		return errs.NewValidationError("code is required")
	}
	// the limit is in characters, not bytes
	if n := utf8.RuneCountInString(req.Code); n > v.maxCodeLength {
		return errs.NewValidationError(fmt.Sprintf("code is too long: %d characters exceeds the limit of %d", n, v.maxCodeLength))
	}

	if !languages.IsSupported(req.Language) {
		return errs.NewValidationError(fmt.Sprintf("unsupported language: %q", req.Language))
	}

	if err := v.validateOptions(req.Options); err != nil {
		return err
	}

	if req.Rules.IsPreset() {
		return nil
	}
	if len(req.Rules.Definitions()) == 0 {
		return errs.NewValidationError("at least one analysis rule is required")
	}
	return rules.Validate(req.Rules.Definitions())
}

func (v *Validator) validateOptions(opts Options) error {
	if opts.Timeout < 0 {
		return errs.NewValidationError(fmt.Sprintf("timeout must be positive: %s", opts.Timeout))
	}
	if opts.Timeout > 0 && opts.Timeout < time.Millisecond {
		return errs.NewValidationError(fmt.Sprintf("timeout %s is below the minimum of 1ms", opts.Timeout))
	}
	if opts.Timeout > v.maxTimeout {
		return errs.NewValidationError(fmt.Sprintf("timeout %s exceeds the maximum of %s", opts.Timeout, v.maxTimeout))
	}
	if opts.MaxMemoryMB < 0 {
		return errs.NewValidationError(fmt.Sprintf("max memory cannot be negative: %d", opts.MaxMemoryMB))
	}
	return nil
}
