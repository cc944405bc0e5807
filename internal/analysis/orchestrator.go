package analysis

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"
	"k8s.io/utils/clock"

	"github.com/scan-io-git/scanio-playground/internal/engine"
	"github.com/scan-io-git/scanio-playground/internal/findings"
	"github.com/scan-io-git/scanio-playground/internal/rules"
	"github.com/scan-io-git/scanio-playground/internal/workspace"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

// State is a step of a job's lifecycle.
type State string

const (
	StateCreated        State = "Created"
	StateValidated      State = "Validated"
	StateWorkspaceReady State = "WorkspaceReady"
	StateRulesCompiled  State = "RulesCompiled"
	StateExecuted       State = "Executed"
	StateSucceeded      State = "Succeeded"
	StateFailed         State = "Failed"
	StateCleaned        State = "Cleaned"
)

// Runner executes the engine against a prepared workspace.
type Runner interface {
	Run(ctx context.Context, inv engine.Invocation) ([]byte, error)
}

// Analyzer runs analysis requests. It is safe for concurrent use: jobs share no mutable state
// apart from the workspace manager's counters.
type Analyzer struct {
	validator  *Validator
	workspaces *workspace.Manager
	runner     Runner
	clock      clock.PassiveClock
	logger     hclog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock replaces the clock used to measure engine time.
func WithClock(c clock.PassiveClock) Option {
	return func(a *Analyzer) {
		a.clock = c
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg *config.Config, runner Runner, workspaces *workspace.Manager, logger hclog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		validator:  NewValidator(cfg),
		workspaces: workspaces,
		runner:     runner,
		clock:      clock.RealClock{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Workspaces returns the workspace manager used by the analyzer.
func (a *Analyzer) Workspaces() *workspace.Manager {
	return a.workspaces
}

// job tracks the lifecycle state of one request.
type job struct {
	state  State
	logger hclog.Logger
}

func (j *job) transition(to State) {
	j.logger.Trace("state transition", "from", j.state, "to", to)
	j.state = to
}

func (j *job) fail(err error) {
	j.logger.Debug("analysis failed", "state", j.state, "kind", errs.KindOf(err), "error", err)
	j.transition(StateFailed)
}

// Analyze validates req, runs it in a private workspace and maps the engine output.
// It returns either an outcome or one typed error. The workspace is removed before
// Analyze returns on every path, including panics in the engine runner or the mapper.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (outcome *findings.Outcome, err error) {
	j := &job{state: StateCreated, logger: a.logger}

	if err := a.validator.Validate(req); err != nil {
		j.fail(err)
		return nil, err
	}
	j.transition(StateValidated)

	ws, err := a.workspaces.Create()
	if err != nil {
		j.fail(err)
		return nil, err
	}
	j.logger = a.logger.With("workspace", ws.ID)
	j.logger.Debug("analysis started", "language", req.Language, "rules", req.Rules.String())

	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("panic during analysis", "panic", r, "stack", string(debug.Stack()))
			outcome, err = nil, errs.NewInfrastructureError("analysis aborted unexpectedly", fmt.Errorf("%v", r))
			j.transition(StateFailed)
		}
		a.workspaces.Destroy(ws)
		j.transition(StateCleaned)
	}()

	outcome, err = a.run(ctx, j, ws, req)
	if err != nil {
		j.fail(err)
		return nil, err
	}

	j.transition(StateSucceeded)
	j.logger.Debug("analysis finished", "matches", outcome.Stats.MatchesCount, "elapsed", outcome.Stats.ExecutionTime)
	return outcome, nil
}

func (a *Analyzer) run(ctx context.Context, j *job, ws *workspace.Workspace, req *Request) (*findings.Outcome, error) {
	codePath, err := a.workspaces.WriteCode(ws, req.Code, req.Language)
	if err != nil {
		return nil, err
	}
	j.transition(StateWorkspaceReady)

	compiled, err := compile(req.Rules)
	if err != nil {
		return nil, err
	}
	rulesPath, err := a.workspaces.WriteRules(ws, compiled.Document)
	if err != nil {
		return nil, err
	}
	j.transition(StateRulesCompiled)

	start := a.clock.Now()
	raw, err := a.runner.Run(ctx, engine.Invocation{
		WorkDir:     ws.Dir,
		RulesPath:   rulesPath,
		CodePath:    codePath,
		Timeout:     req.Options.Timeout,
		Verbose:     req.Options.Verbose,
		MaxMemoryMB: req.Options.MaxMemoryMB,
	})
	elapsed := a.clock.Since(start)
	if err != nil {
		return nil, err
	}
	j.transition(StateExecuted)

	return findings.Map(raw, findings.MapOptions{
		WorkspaceDir: ws.Dir,
		RuleIDs:      compiled.RuleIDs,
		RuleCount:    compiled.RuleCount,
		Elapsed:      elapsed,
	})
}

func compile(set RuleSet) (*rules.CompiledRuleSet, error) {
	if set.IsPreset() {
		return rules.CompilePreset(set.PresetID())
	}
	return rules.Compile(set.Definitions())
}
