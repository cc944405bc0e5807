package health

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-playground/internal/engine/enginetest"
	"github.com/scan-io-git/scanio-playground/pkg/shared"
	"github.com/scan-io-git/scanio-playground/pkg/shared/config"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
)

func testConfig(t *testing.T, binary string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.Binary = binary
	cfg.Workspace.Root = filepath.Join(t.TempDir(), "scratch")
	return cfg
}

func TestHealthy(t *testing.T) {
	cfg := testConfig(t, enginetest.Write(t, "echo 1.50.0"))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Workspace.Root, "6f1c2a7e-3b7d-4c1e-9a43-0b6a4d1c2e55"), 0o700))

	var out bytes.Buffer
	require.NoError(t, runHealth(context.Background(), cfg, &out, hclog.NewNullLogger()))

	var report Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, shared.StatusOK, report.Status)
	assert.True(t, report.Engine.Available)
	assert.Equal(t, "1.50.0", report.Engine.Version)
	assert.True(t, report.Workspace.Writable)
	assert.Equal(t, 1, report.Workspace.Leftovers)
	assert.Zero(t, report.Workspace.Stats.Live)
}

func TestEngineUnavailable(t *testing.T) {
	cfg := testConfig(t, "scanio-playground-no-such-engine")

	var out bytes.Buffer
	err := runHealth(context.Background(), cfg, &out, hclog.NewNullLogger())
	assert.Equal(t, errs.KindEngineUnavailable, errs.KindOf(err))

	var report Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, shared.StatusFailed, report.Status)
	assert.False(t, report.Engine.Available)
	assert.NotEmpty(t, report.Engine.Error)
	assert.True(t, report.Workspace.Writable)
}

func TestWorkspaceRootNotWritable(t *testing.T) {
	cfg := testConfig(t, enginetest.Write(t, "echo 1.50.0"))
	cfg.Workspace.Root = filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(cfg.Workspace.Root, nil, 0o600))

	var out bytes.Buffer
	err := runHealth(context.Background(), cfg, &out, hclog.NewNullLogger())
	assert.Equal(t, errs.KindInfrastructure, errs.KindOf(err))

	var report Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.Workspace.Writable)
	assert.Contains(t, report.Workspace.Error, "failed to list workspace root")
	assert.True(t, report.Engine.Available)
}

func TestLeftoversErrorIsReported(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	cfg := testConfig(t, enginetest.Write(t, "echo 1.50.0"))
	require.NoError(t, os.MkdirAll(cfg.Workspace.Root, 0o700))
	require.NoError(t, os.Chmod(cfg.Workspace.Root, 0o300))
	t.Cleanup(func() { os.Chmod(cfg.Workspace.Root, 0o700) })

	var out bytes.Buffer
	err := runHealth(context.Background(), cfg, &out, hclog.NewNullLogger())
	assert.Equal(t, errs.KindInfrastructure, errs.KindOf(err))

	var report Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, shared.StatusFailed, report.Status)
	assert.Contains(t, report.Workspace.Error, "failed to list workspace root")
	assert.Zero(t, report.Workspace.Leftovers)
	assert.True(t, report.Workspace.Writable)
}
