package installer

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"aster/internal/resolver"
	"aster/internal/workspace"
)

// Runner executes external processes (package managers, post-install
// hooks).
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

type PackageManager struct {
	Name    string
	Add     []string
	DevFlag string
}

var (
	bun  = PackageManager{Name: "bun", Add: []string{"add"}, DevFlag: "-d"}
	pnpm = PackageManager{Name: "pnpm", Add: []string{"add"}, DevFlag: "-D"}
	yarn = PackageManager{Name: "yarn", Add: []string{"add"}, DevFlag: "-D"}
	npm  = PackageManager{Name: "npm", Add: []string{"install"}, DevFlag: "-D"}
)

// DetectPackageManager picks the manager whose lockfile is present in the
// project root, defaulting to npm.
func DetectPackageManager(ws *workspace.Workspace) PackageManager {
	probes := []struct {
		file string
		pm   PackageManager
	}{
		{"bun.lockb", bun},
		{"bun.lock", bun},
		{"pnpm-lock.yaml", pnpm},
		{"yarn.lock", yarn},
	}
	for _, p := range probes {
		if ws.Exists(p.file) {
			return p.pm
		}
	}
	return npm
}

func (pm PackageManager) Args(pkgs []string, dev bool) []string {
	args := append([]string(nil), pm.Add...)
	if dev {
		args = append(args, pm.DevFlag)
	}
	return append(args, pkgs...)
}

// PackageName strips the version from a specifier, keeping the scope:
// "@scope/pkg@^1" -> "@scope/pkg", "clsx@2" -> "clsx".
func PackageName(spec string) string {
	spec = strings.TrimSpace(spec)
	start := 0
	if strings.HasPrefix(spec, "@") {
		start = 1
	}
	if i := strings.Index(spec[start:], "@"); i >= 0 {
		return spec[:start+i]
	}
	return spec
}

// declaredPackages returns every dependency and devDependency named in
// package.json. A missing manifest declares nothing.
func declaredPackages(ws *workspace.Workspace) (map[string]struct{}, error) {
	declared := map[string]struct{}{}
	blob, err := afero.ReadFile(ws.Fs, ws.PackageManifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return declared, nil
		}
		return declared, err
	}
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(blob, &manifest); err != nil {
		return declared, err
	}
	for name := range manifest.Dependencies {
		declared[name] = struct{}{}
	}
	for name := range manifest.DevDependencies {
		declared[name] = struct{}{}
	}
	return declared, nil
}

// missingDependencies unions dependency lists across the set in
// resolution order, dropping duplicates and already-declared packages. A
// package requested as both regular and dev dependency is installed as a
// regular one.
func missingDependencies(set *resolver.ResolvedSet, declared map[string]struct{}) (deps, devDeps, skipped []string) {
	seen := map[string]struct{}{}
	take := func(spec string) bool {
		name := PackageName(spec)
		if name == "" {
			return false
		}
		if _, ok := seen[name]; ok {
			return false
		}
		seen[name] = struct{}{}
		if _, ok := declared[name]; ok {
			skipped = append(skipped, name)
			return false
		}
		return true
	}
	for _, e := range set.Entries() {
		for _, spec := range e.Resource.Dependencies {
			if take(spec) {
				deps = append(deps, spec)
			}
		}
	}
	for _, e := range set.Entries() {
		for _, spec := range e.Resource.DevDependencies {
			if take(spec) {
				devDeps = append(devDeps, spec)
			}
		}
	}
	return deps, devDeps, skipped
}

func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}
