// Package workspace allocates the private on-disk directory an analysis job runs in.
package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-playground/internal/languages"
	errs "github.com/scan-io-git/scanio-playground/pkg/shared/errors"
	"github.com/scan-io-git/scanio-playground/pkg/shared/files"
)

const (
	// RulesFileName is the fixed name of the compiled rule file inside a workspace.
	RulesFileName = "rules.yml"
	codeFileBase  = "code"
)

// Workspace is a uniquely named directory exclusively owned by one job.
type Workspace struct {
	ID  string
	Dir string
}

// Stats counts workspace lifecycle events since the manager was created.
type Stats struct {
	Created   int64 `json:"created"`
	Destroyed int64 `json:"destroyed"`
	Live      int64 `json:"live"`
}

// Manager creates and destroys workspaces under a scratch root.
type Manager struct {
	root      string
	logger    hclog.Logger
	created   atomic.Int64
	destroyed atomic.Int64
}

// NewManager creates a Manager rooted at root. The root is created lazily.
func NewManager(root string, logger hclog.Logger) *Manager {
	return &Manager{
		root:   root,
		logger: logger,
	}
}

// Root returns the scratch root.
func (m *Manager) Root() string {
	return m.root
}

// Create allocates a fresh workspace directory.
func (m *Manager) Create() (*Workspace, error) {
	if err := files.CreateFolderIfNotExists(m.root); err != nil {
		return nil, errs.NewInfrastructureError("failed to prepare workspace root", err)
	}

	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	// an existing directory is a collision and must fail
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, errs.NewInfrastructureError("failed to create workspace", err)
	}

	m.created.Add(1)
	m.logger.Debug("workspace created", "id", id, "dir", dir)
	return &Workspace{ID: id, Dir: dir}, nil
}

// WriteCode writes the code buffer verbatim to a file whose extension signals language to the engine.
func (m *Manager) WriteCode(ws *Workspace, code string, language languages.Language) (string, error) {
	ext, err := languages.Extension(language)
	if err != nil {
		return "", errs.NewValidationError(err.Error())
	}

	path := filepath.Join(ws.Dir, codeFileBase+ext)
	if err := files.WriteFile(path, []byte(code), 0o600); err != nil {
		return "", errs.NewInfrastructureError("failed to write code file", err)
	}
	return path, nil
}

// WriteRules writes the compiled rule document to the workspace's rule file.
func (m *Manager) WriteRules(ws *Workspace, document []byte) (string, error) {
	path := filepath.Join(ws.Dir, RulesFileName)
	if err := files.WriteFile(path, document, 0o600); err != nil {
		return "", errs.NewInfrastructureError("failed to write rules file", err)
	}
	return path, nil
}

// Destroy removes the workspace directory. Failures are logged and never returned:
// cleanup must not replace the job's real outcome.
func (m *Manager) Destroy(ws *Workspace) {
	if ws == nil {
		return
	}
	if _, err := files.EnsureWithinRoot(m.root, ws.Dir); err != nil || filepath.Clean(ws.Dir) == filepath.Clean(m.root) {
		m.logger.Error("refusing to remove directory outside workspace root", "dir", ws.Dir, "root", m.root)
		return
	}

	m.destroyed.Add(1)
	if err := os.RemoveAll(ws.Dir); err != nil {
		m.logger.Warn("failed to remove workspace", "id", ws.ID, "dir", ws.Dir, "error", err)
		return
	}
	m.logger.Debug("workspace removed", "id", ws.ID)
}

// Stats returns the lifecycle counters.
func (m *Manager) Stats() Stats {
	created := m.created.Load()
	destroyed := m.destroyed.Load()
	return Stats{Created: created, Destroyed: destroyed, Live: created - destroyed}
}

// Leftovers lists the workspace directories present under the root. Outside a running job these
// were left behind by a process killed mid-job. A missing root has none.
func (m *Manager) Leftovers() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewInfrastructureError("failed to list workspace root", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		ids = append(ids, entry.Name())
	}
	return ids, nil
}
