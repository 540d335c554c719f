// Package workspace carries the filesystem and path context every
// resolver, cache and installer call runs against.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	ProjectConfigFile = "aster.json"
	LockfileName      = "aster.lock"
	PackageManifest   = "package.json"
	stateDir          = ".aster"
)

type Workspace struct {
	Fs        afero.Fs
	Cwd       string
	Home      string
	CacheRoot string
}

// New builds a workspace over fs. An empty cacheRoot defaults to
// ~/.aster/cache.
func New(fs afero.Fs, cwd, home, cacheRoot string) *Workspace {
	if cacheRoot == "" {
		cacheRoot = filepath.Join(home, stateDir, "cache")
	}
	return &Workspace{Fs: fs, Cwd: filepath.Clean(cwd), Home: home, CacheRoot: cacheRoot}
}

// Default builds a workspace over the OS filesystem rooted at cwd (or the
// process working directory when cwd is empty).
func Default(cwd, cacheRoot string) (*Workspace, error) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("WS_CWD: %w", err)
		}
		cwd = wd
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("WS_CWD: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("WS_HOME: %w", err)
	}
	ws := New(afero.NewOsFs(), abs, home, "")
	if cacheRoot != "" {
		ws.CacheRoot = ws.ExpandHome(cacheRoot)
	}
	return ws, nil
}

func (w *Workspace) StateRoot() string {
	return filepath.Join(w.Home, stateDir)
}

func (w *Workspace) AuditPath() string {
	return filepath.Join(w.StateRoot(), "audit.log")
}

func (w *Workspace) ProjectConfigPath() string {
	return filepath.Join(w.Cwd, ProjectConfigFile)
}

func (w *Workspace) LockfilePath() string {
	return filepath.Join(w.Cwd, LockfileName)
}

func (w *Workspace) PackageManifestPath() string {
	return filepath.Join(w.Cwd, PackageManifest)
}

// ExpandHome resolves a leading "~/" against the home directory.
func (w *Workspace) ExpandHome(p string) string {
	if p == "~" {
		return w.Home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(w.Home, strings.TrimPrefix(p, "~/"))
	}
	return p
}

// Abs resolves p against the working directory after home expansion.
func (w *Workspace) Abs(p string) string {
	p = w.ExpandHome(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(w.Cwd, filepath.FromSlash(p))
}

// Rel returns p relative to the working directory using forward slashes.
// Paths outside the working directory are returned cleaned and absolute.
func (w *Workspace) Rel(p string) string {
	abs := w.Abs(p)
	rel, err := filepath.Rel(w.Cwd, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func (w *Workspace) Exists(p string) bool {
	_, err := w.Fs.Stat(w.Abs(p))
	return err == nil
}
