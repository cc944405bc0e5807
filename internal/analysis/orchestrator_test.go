package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/scan-io-git/scanio-playground/internal/engine"
	"github.com/scan-io-git/scanio-playground/internal/engine/enginetest"
	"github.com/scan-io-git/scanio-playground/internal/workspace"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, inv engine.Invocation) ([]byte, error)

func (f runnerFunc) Run(ctx context.Context, inv engine.Invocation) ([]byte, error) {
	return f(ctx, inv)
}

func testConfig(t *testing.T, binary string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.Binary = binary
	cfg.Workspace.Root = filepath.Join(t.TempDir(), "scratch")
	return cfg
}

func newEngineAnalyzer(t *testing.T, binary string) *Analyzer {
	t.Helper()
	cfg := testConfig(t, binary)
	logger := hclog.NewNullLogger()
	return NewAnalyzer(cfg, engine.NewExecutor(cfg.Engine, logger), workspace.NewManager(cfg.Workspace.Root, logger), logger)
}

func newFakeAnalyzer(t *testing.T, runner Runner, opts ...Option) *Analyzer {
	t.Helper()
	cfg := testConfig(t, "unused")
	logger := hclog.NewNullLogger()
	return NewAnalyzer(cfg, runner, workspace.NewManager(cfg.Workspace.Root, logger), logger, opts...)
}

func assertNoLiveWorkspaces(t *testing.T, a *Analyzer) {
	t.Helper()
	stats := a.Workspaces().Stats()
	assert.Equal(t, stats.Created, stats.Destroyed)
	assert.Zero(t, stats.Live)

	entries, err := os.ReadDir(a.Workspaces().Root())
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	a := newEngineAnalyzer(t, enginetest.Printing(t, enginetest.Report))

	outcome, err := a.Analyze(context.Background(), validRequest())
	require.NoError(t, err)

	require.Len(t, outcome.Matches, 1)
	match := outcome.Matches[0]
	assert.Equal(t, "eval-usage", match.RuleID)
	assert.Equal(t, "code.js", match.Path)
	assert.Equal(t, 1, match.Start.Line)
	assert.Equal(t, "ERROR", match.Severity)
	assert.Equal(t, len(outcome.Matches), outcome.Stats.MatchesCount)
	assert.Equal(t, 1, outcome.Stats.RulesCount)
	assert.Equal(t, 1, outcome.Stats.FilesCount)

	assert.Equal(t, workspace.Stats{Created: 1, Destroyed: 1, Live: 0}, a.Workspaces().Stats())
	assertNoLiveWorkspaces(t, a)
}

func TestAnalyzeTimeoutCleansWorkspace(t *testing.T) {
	a := newEngineAnalyzer(t, enginetest.Write(t, "exec sleep 30"))
	req := validRequest()
	req.Options.Timeout = 200 * time.Millisecond

	outcome, err := a.Analyze(context.Background(), req)
	assert.Nil(t, outcome)
	assert.Equal(t, errs.KindEngineTimeout, errs.KindOf(err))
	assertNoLiveWorkspaces(t, a)
}

func TestAnalyzeEngineCrashCleansWorkspace(t *testing.T) {
	a := newEngineAnalyzer(t, enginetest.Write(t, `echo "fatal: out of memory" >&2; exit 2`))

	outcome, err := a.Analyze(context.Background(), validRequest())
	assert.Nil(t, outcome)
	assert.Equal(t, errs.KindEngineExecution, errs.KindOf(err))
	assertNoLiveWorkspaces(t, a)
}

func TestAnalyzeMalformedOutputIsAnError(t *testing.T) {
	a := newEngineAnalyzer(t, enginetest.Write(t, `echo "not json"`))

	outcome, err := a.Analyze(context.Background(), validRequest())
	assert.Nil(t, outcome)
	assert.Equal(t, errs.KindEngineExecution, errs.KindOf(err))
	assertNoLiveWorkspaces(t, a)
}

func TestAnalyzeEngineUnavailable(t *testing.T) {
	a := newEngineAnalyzer(t, "scanio-playground-no-such-engine")

	_, err := a.Analyze(context.Background(), validRequest())
	assert.Equal(t, errs.KindEngineUnavailable, errs.KindOf(err))
	assertNoLiveWorkspaces(t, a)
}

func TestAnalyzePresetDelegatesToRuleset(t *testing.T) {
	var rulesDoc string
	a := newFakeAnalyzer(t, runnerFunc(func(ctx context.Context, inv engine.Invocation) ([]byte, error) {
		data, err := os.ReadFile(inv.RulesPath)
		require.NoError(t, err)
		rulesDoc = string(data)
		return []byte(enginetest.EmptyReport), nil
	}))
	req := validRequest()
	req.Rules = Preset("security")

	outcome, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, outcome.Matches)
	assert.Equal(t, 1, outcome.Stats.RulesCount)
	assert.Contains(t, rulesDoc, "p/security-audit")
	assertNoLiveWorkspaces(t, a)
}

func TestAnalyzeInvocation(t *testing.T) {
	var got engine.Invocation
	a := newFakeAnalyzer(t, runnerFunc(func(ctx context.Context, inv engine.Invocation) ([]byte, error) {
		got = inv
		code, err := os.ReadFile(inv.CodePath)
		require.NoError(t, err)
		assert.Equal(t, "eval(x)\n", string(code))
		return []byte(enginetest.Report), nil
	}))
	req := validRequest()
	req.Options = Options{Timeout: 10 * time.Second, Verbose: true, MaxMemoryMB: 256}

	_, err := a.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(got.WorkDir, "code.js"), got.CodePath)
	assert.Equal(t, filepath.Join(got.WorkDir, workspace.RulesFileName), got.RulesPath)
	assert.Equal(t, 10*time.Second, got.Timeout)
	assert.True(t, got.Verbose)
	assert.Equal(t, 256, got.MaxMemoryMB)
}

func TestAnalyzeFailsBeforeRunningEngine(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(r *Request)
		wantWorkspace bool
	}{
		{name: "oversize code", mutate: func(r *Request) { r.Code = strings.Repeat("a", 100001) }},
		{name: "empty rules", mutate: func(r *Request) { r.Rules = Custom(nil) }},
		{name: "unknown preset", mutate: func(r *Request) { r.Rules = Preset("does-not-exist") }, wantWorkspace: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			a := newFakeAnalyzer(t, runnerFunc(func(ctx context.Context, inv engine.Invocation) ([]byte, error) {
				called = true
				return nil, nil
			}))
			req := validRequest()
			tt.mutate(req)

			outcome, err := a.Analyze(context.Background(), req)
			assert.Nil(t, outcome)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
			assert.False(t, called)

			stats := a.Workspaces().Stats()
			if tt.wantWorkspace {
				assert.Equal(t, int64(1), stats.Created)
			} else {
				assert.Zero(t, stats.Created)
			}
			assertNoLiveWorkspaces(t, a)
		})
	}
}

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	a := newFakeAnalyzer(t, runnerFunc(func(ctx context.Context, inv engine.Invocation) ([]byte, error) {
		panic("runner exploded")
	}))

	outcome, err := a.Analyze(context.Background(), validRequest())
	assert.Nil(t, outcome)
	assert.Equal(t, errs.KindInfrastructure, errs.KindOf(err))
	assert.Contains(t, err.Error(), "runner exploded")
	assertNoLiveWorkspaces(t, a)
}

func TestAnalyzeMeasuresEngineTime(t *testing.T) {
	fakeClock := testingclock.NewFakePassiveClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	a := newFakeAnalyzer(t, runnerFunc(func(ctx context.Context, inv engine.Invocation) ([]byte, error) {
		fakeClock.SetTime(fakeClock.Now().Add(1500 * time.Millisecond))
		return []byte(enginetest.Report), nil
	}), WithClock(fakeClock))

	outcome, err := a.Analyze(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, outcome.Stats.ExecutionTime)
}

func TestAnalyzeConcurrentJobs(t *testing.T) {
	a := newEngineAnalyzer(t, enginetest.Printing(t, enginetest.Report))

	const jobs = 16
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := a.Analyze(context.Background(), validRequest())
			if assert.NoError(t, err) {
				assert.Equal(t, len(outcome.Matches), outcome.Stats.MatchesCount)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workspace.Stats{Created: jobs, Destroyed: jobs, Live: 0}, a.Workspaces().Stats())
	assertNoLiveWorkspaces(t, a)
}
