// Package engine runs the external pattern-matching engine as a bounded subprocess.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"

	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

const (
	versionTimeout = 10 * time.Second
	waitDelay      = 5 * time.Second
	maxErrorOutput = 4096
)

// Invocation describes one engine run against a prepared workspace.
type Invocation struct {
	WorkDir     string        // working directory of the engine, normally the workspace
	RulesPath   string        // rule-configuration file
	CodePath    string        // the single scan target
	Timeout     time.Duration // overrides the configured default when > 0
	Verbose     bool
	MaxMemoryMB int
}

// Executor invokes the engine binary.
type Executor struct {
	binary         string
	timeout        time.Duration
	maxOutputBytes int64
	additionalArgs []string
	env            map[string]string
	slots          *semaphore.Weighted
	logger         hclog.Logger
}

// NewExecutor creates an Executor from the engine configuration.
func NewExecutor(cfg config.Engine, logger hclog.Logger) *Executor {
	e := &Executor{
		binary:         config.SetThen(cfg.Binary, config.DefaultEngineBinary),
		timeout:        config.SetThen(cfg.Timeout, config.DefaultEngineTimeout),
		maxOutputBytes: config.SetThen(cfg.MaxOutputBytes, int64(config.DefaultMaxOutputBytes)),
		additionalArgs: cfg.AdditionalArgs,
		env:            cfg.Env,
		logger:         logger,
	}
	if cfg.MaxConcurrent > 0 {
		e.slots = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return e
}

// Binary returns the configured engine binary.
func (e *Executor) Binary() string {
	return e.binary
}

// buildCommandArgs constructs the command-line arguments for the engine.
func (e *Executor) buildCommandArgs(inv Invocation) []string {
	var commandArgs []string

	appendArg := func(arg ...string) {
		commandArgs = append(commandArgs, arg...)
	}

	appendArg("--config", relativeTo(inv.WorkDir, inv.RulesPath))
	appendArg("--json", "--no-git-ignore", "--disable-version-check", "--metrics=off")

	if inv.Verbose {
		appendArg("--verbose")
	}
	if inv.MaxMemoryMB > 0 {
		appendArg("--max-memory", strconv.Itoa(inv.MaxMemoryMB))
	}
	if len(e.additionalArgs) != 0 {
		appendArg(e.additionalArgs...)
	}

	appendArg(relativeTo(inv.WorkDir, inv.CodePath))
	return commandArgs
}

// buildEnv forwards the parent environment with telemetry and version checks switched off.
func (e *Executor) buildEnv() []string {
	env := os.Environ()

	keys := make([]string, 0, len(e.env))
	for k := range e.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+e.env[k])
	}

	// later entries win, these must not be overridable
	return append(env,
		"SEMGREP_SEND_METRICS=off",
		"SEMGREP_ENABLE_VERSION_CHECK=0",
	)
}

// Run executes the engine and returns its raw stdout on a zero exit.
func (e *Executor) Run(ctx context.Context, inv Invocation) ([]byte, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		e.logger.Error("engine binary not found", "binary", e.binary, "error", err)
		return nil, errs.NewEngineUnavailableError(e.binary, err)
	}

	if e.slots != nil {
		if err := e.slots.Acquire(ctx, 1); err != nil {
			return nil, errs.NewEngineExecutionError("analysis cancelled before the engine started", "", err)
		}
		defer e.slots.Release(1)
	}

	timeout := config.SetThen(inv.Timeout, e.timeout)
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline).Round(time.Millisecond); remaining < timeout {
			timeout = remaining
		}
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, e.buildCommandArgs(inv)...)
	cmd.Dir = inv.WorkDir
	cmd.Env = e.buildEnv()
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	budget := newOutputBudget(e.maxOutputBytes)
	cmd.Stdout = budget.writer(&stdout)
	cmd.Stderr = budget.writer(io.MultiWriter(&stderr, e.logger.StandardWriter(&hclog.StandardLoggerOptions{
		InferLevels: true,
		ForceLevel:  hclog.Debug,
	})))

	e.logger.Debug("running engine", "cmd", cmd.Args, "dir", cmd.Dir, "timeout", timeout)
	start := time.Now()
	err = cmd.Run()
	e.logger.Debug("engine finished", "elapsed", time.Since(start), "error", err)

	switch {
	case err == nil && !budget.Exceeded():
		return stdout.Bytes(), nil

	case errors.Is(ctx.Err(), context.Canceled):
		return nil, errs.NewEngineExecutionError("analysis cancelled", "", ctx.Err())

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		e.logger.Warn("engine timed out and was killed", "timeout", timeout)
		return nil, errs.NewEngineTimeoutError(timeout)

	case budget.Exceeded():
		e.logger.Error("engine output exceeded limit", "limit", e.maxOutputBytes)
		return nil, errs.NewEngineExecutionError(fmt.Sprintf("engine output exceeded the %d byte limit", e.maxOutputBytes), "", errOutputLimit)

	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		e.logger.Error("engine could not be started", "binary", path, "error", err)
		return nil, errs.NewEngineUnavailableError(e.binary, err)
	}

	output := truncate(stderr.String(), maxErrorOutput)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e.logger.Error("engine execution error", "exitCode", exitErr.ExitCode(), "error", err)
		if msg := failureMessage(stdout.Bytes()); msg != "" {
			return nil, errs.NewEngineExecutionError(msg, output, err)
		}
		if msg := failureMessage(stderr.Bytes()); msg != "" {
			return nil, errs.NewEngineExecutionError(msg, output, err)
		}
		return nil, errs.NewEngineExecutionError("", output, err)
	}

	e.logger.Error("engine execution error", "error", err)
	return nil, errs.NewEngineExecutionError("", output, err)
}

// Version runs the engine's version command. It doubles as an availability probe.
func (e *Executor) Version(ctx context.Context) (string, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return "", errs.NewEngineUnavailableError(e.binary, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, "--version")
	cmd.Env = e.buildEnv()
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	var out bytes.Buffer
	budget := newOutputBudget(maxErrorOutput)
	cmd.Stdout = budget.writer(&out)
	cmd.Stderr = budget.writer(&out)

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", errs.NewEngineTimeoutError(versionTimeout)
		}
		return "", errs.NewEngineUnavailableError(e.binary, fmt.Errorf("%w: %s", err, strings.TrimSpace(out.String())))
	}
	return strings.TrimSpace(out.String()), nil
}

// failureMessage extracts the engine's own message from a JSON error document.
// It returns "" when data is not such a document.
func failureMessage(data []byte) string {
	var doc struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), &doc); err != nil {
		return ""
	}
	if doc.Message != "" {
		return doc.Message
	}
	var messages []string
	for _, e := range doc.Errors {
		if e.Message != "" {
			messages = append(messages, strings.TrimSpace(e.Message))
		}
	}
	return strings.Join(messages, "; ")
}

func relativeTo(dir, path string) string {
	if dir == "" {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
