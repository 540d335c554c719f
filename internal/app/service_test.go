package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"aster/internal/config"
	"aster/internal/source"
	"aster/internal/store"
)

type fakeRegistry struct {
	mu        sync.Mutex
	resources map[string]source.Resource
	hits      map[string]int
}

func (f *fakeRegistry) set(res source.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[res.Name] = res
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/r"), "/")
	f.hits[name]++
	w.Header().Set("Content-Type", "application/json")
	if name == "" {
		items := []source.IndexItem{}
		for _, res := range f.resources {
			items = append(items, source.IndexItem{Name: res.Name, Type: res.Type, Description: res.Description})
		}
		_ = json.NewEncoder(w).Encode(items)
		return
	}
	res, ok := f.resources[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"component not found"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func newFakeRegistry() *fakeRegistry {
	reg := &fakeRegistry{resources: map[string]source.Resource{}, hits: map[string]int{}}
	reg.set(source.Resource{
		Name:                 "button",
		Type:                 source.TypeUI,
		Description:          "Pressable button",
		Version:              "1.0.0",
		Files:                []source.File{{Path: "ui/button.tsx", Content: "export const Button = 1;\n", Type: source.TypeUI}},
		RegistryDependencies: []string{"utils"},
	})
	reg.set(source.Resource{
		Name:        "utils",
		Type:        source.TypeLib,
		Description: "Class name helper",
		Files:       []source.File{{Path: "lib/utils.ts", Content: "export const cn = () => '';\n", Type: source.TypeLib}},
	})
	return reg
}

type noopRunner struct{}

func (noopRunner) Run(context.Context, string, string, ...string) ([]byte, error) { return nil, nil }

const testCwd = "/proj"

func newTestService(t *testing.T, reg *fakeRegistry, withProject bool) (*Service, afero.Fs) {
	t.Helper()
	server := httptest.NewServer(reg)
	t.Cleanup(server.Close)
	t.Setenv("ASTER_API_URL", server.URL+"/api/r")
	t.Setenv("ASTER_CACHE_DIR", "/home/dev/.aster/cache")
	t.Setenv("ASTER_LOG_LEVEL", "")

	fs := afero.NewMemMapFs()
	if withProject {
		if err := config.SaveProject(fs, filepath.Join(testCwd, "aster.json"), config.DefaultProjectConfig()); err != nil {
			t.Fatalf("save project: %v", err)
		}
	}
	svc, err := New(Options{
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Cwd:        testCwd,
		Fs:         fs,
		Home:       "/home/dev",
		HTTPClient: server.Client(),
		LogOutput:  &strings.Builder{},
		Runner:     noopRunner{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, fs
}

func readProjectFile(t *testing.T, fs afero.Fs, rel string) string {
	t.Helper()
	blob, err := afero.ReadFile(fs, filepath.Join(testCwd, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(blob)
}

func TestAddInstallsComponentWithRegistryDependencies(t *testing.T) {
	svc, fs := newTestService(t, newFakeRegistry(), true)
	result, err := svc.Add(context.Background(), []string{"button"}, AddOptions{})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(result.Resolved) != 2 || result.Resolved[1].Name != "utils" || result.Resolved[1].Via != "button" {
		t.Fatalf("unexpected resolution %+v", result.Resolved)
	}
	if result.Report == nil || result.Report.Written() != 2 {
		t.Fatalf("expected two written files, got %+v", result.Report)
	}
	if got := readProjectFile(t, fs, "components/ui/button.tsx"); got != "export const Button = 1;\n" {
		t.Fatalf("unexpected button %q", got)
	}
	lock, err := store.Load(fs, svc.Workspace.LockfilePath())
	if err != nil {
		t.Fatalf("load lock: %v", err)
	}
	if lock.Components["button"].Version != "1.0.0" || len(lock.Components["utils"].Files) != 1 {
		t.Fatalf("unexpected lockfile %+v", lock.Components)
	}
}

func TestAddDryRunWritesNothing(t *testing.T) {
	svc, fs := newTestService(t, newFakeRegistry(), true)
	result, err := svc.Add(context.Background(), []string{"button"}, AddOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !result.DryRun || result.Report != nil || len(result.Resolved) != 2 {
		t.Fatalf("unexpected dry run result %+v", result)
	}
	if ok, _ := afero.Exists(fs, filepath.Join(testCwd, "components/ui/button.tsx")); ok {
		t.Fatalf("dry run wrote files")
	}
}

func TestAddReportsWarningsAndFailsWhenNothingResolves(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry(), true)
	result, err := svc.Add(context.Background(), []string{"utils", "missing"}, AddOptions{})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "missing") {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	_, err = svc.Add(context.Background(), []string{"missing"}, AddOptions{})
	if err == nil || !errors.Is(err, source.ErrNotFound) && !strings.Contains(err.Error(), "INS_ADD") {
		t.Fatalf("expected failure, got %v", err)
	}
}

func TestAddRequiresProject(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry(), false)
	if _, err := svc.Add(context.Background(), []string{"button"}, AddOptions{}); !errors.Is(err, config.ErrProjectMissing) {
		t.Fatalf("expected missing project error, got %v", err)
	}
	p, err := svc.Init("stylesheet", false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if p.Style != "stylesheet" || !svc.HasProject {
		t.Fatalf("unexpected project %+v", p)
	}
	if _, err := svc.Init("", false); err == nil {
		t.Fatalf("expected second init to refuse overwriting")
	}
	if _, err := svc.Add(context.Background(), []string{"utils"}, AddOptions{}); err != nil {
		t.Fatalf("add after init: %v", err)
	}
}

func TestUpdateDetectsAndAppliesRemoteChanges(t *testing.T) {
	reg := newFakeRegistry()
	svc, fs := newTestService(t, reg, true)
	if _, err := svc.Add(context.Background(), []string{"button"}, AddOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	checks, err := svc.CheckUpdates(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, c := range checks {
		if c.HasUpdate {
			t.Fatalf("nothing should be outdated yet: %+v", c)
		}
	}

	button := reg.resources["button"]
	button.Version = "1.1.0"
	button.Files = []source.File{{Path: "ui/button.tsx", Content: "export const Button = 2;\n", Type: source.TypeUI}}
	reg.set(button)

	checks, err = svc.CheckUpdates(context.Background(), []string{"button", "ghost"}, false)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(checks) != 2 || checks[0].Error != "not installed" {
		t.Fatalf("expected ghost reported first as not installed, got %+v", checks)
	}
	check := checks[1]
	if !check.HasUpdate || check.VersionHint != "newer" || check.RemoteVersion != "1.1.0" {
		t.Fatalf("unexpected check %+v", check)
	}
	report, err := svc.Update(context.Background(), []UpdateCheck{check})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if report.Written() != 1 {
		t.Fatalf("expected one file rewritten, got %d", report.Written())
	}
	if got := readProjectFile(t, fs, "components/ui/button.tsx"); got != "export const Button = 2;\n" {
		t.Fatalf("update not applied: %q", got)
	}
	lock, _ := store.Load(fs, svc.Workspace.LockfilePath())
	if lock.Components["button"].Version != "1.1.0" {
		t.Fatalf("lockfile version not updated: %+v", lock.Components["button"])
	}
}

func TestDiffShowsLocalModification(t *testing.T) {
	svc, fs := newTestService(t, newFakeRegistry(), true)
	if _, err := svc.Add(context.Background(), []string{"button"}, AddOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = afero.WriteFile(fs, filepath.Join(testCwd, "components/ui/button.tsx"), []byte("export const Button = 99;\n"), 0o644)
	check, err := svc.Diff(context.Background(), "button")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	text, err := check.Files[0].Unified(3)
	if err != nil {
		t.Fatalf("unified: %v", err)
	}
	if !strings.Contains(text, "-export const Button = 99;") || !strings.Contains(text, "+export const Button = 1;") {
		t.Fatalf("unexpected diff:\n%s", text)
	}
	outdated, err := svc.Outdated(context.Background())
	if err != nil {
		t.Fatalf("outdated: %v", err)
	}
	if len(outdated) != 1 || outdated[0].Name != "button" {
		t.Fatalf("unexpected outdated list %+v", outdated)
	}
	if _, err := svc.Diff(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected diff of unknown component to fail")
	}
}

func TestRemoveDeletesInstalledFiles(t *testing.T) {
	svc, fs := newTestService(t, newFakeRegistry(), true)
	if _, err := svc.Add(context.Background(), []string{"button"}, AddOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	names, err := svc.Installed()
	if err != nil || len(names) != 2 {
		t.Fatalf("expected two installed names, got %v (%v)", names, err)
	}
	results, err := svc.Remove(context.Background(), []string{"button"})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !results[0].Found {
		t.Fatalf("button should be found")
	}
	if ok, _ := afero.Exists(fs, filepath.Join(testCwd, "components/ui/button.tsx")); ok {
		t.Fatalf("button file still present")
	}
	entries, err := svc.InstalledEntries()
	if err != nil {
		t.Fatalf("installed entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "utils" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestCacheStatusAndClear(t *testing.T) {
	reg := newFakeRegistry()
	svc, _ := newTestService(t, reg, true)
	if _, err := svc.Add(context.Background(), []string{"button"}, AddOptions{DryRun: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(context.Background(), []string{"button"}, AddOptions{DryRun: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if reg.hits["button"] != 1 {
		t.Fatalf("second resolution should be served from cache, hits=%d", reg.hits["button"])
	}
	status, err := svc.CacheStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Enabled || status.Count != 2 || len(status.Entries) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if n, err := svc.CacheClean(); err != nil || n != 0 {
		t.Fatalf("clean removed %d (%v)", n, err)
	}
	if n, err := svc.CacheClear(); err != nil || n != 2 {
		t.Fatalf("clear removed %d (%v)", n, err)
	}
}

func TestListAndSearch(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry(), true)
	libs, err := svc.List(context.Background(), "lib")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(libs) != 1 || libs[0].Name != "utils" {
		t.Fatalf("unexpected lib list %+v", libs)
	}
	found, err := svc.Search(context.Background(), "PRESS")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "button" {
		t.Fatalf("unexpected search result %+v", found)
	}
}

func TestRegistryAddListRemove(t *testing.T) {
	svc, fs := newTestService(t, newFakeRegistry(), true)
	view, err := svc.RegistryAdd("acme", "https://acme.dev/r/{name}.json", []string{"Authorization=Bearer ${ACME_TOKEN}"})
	if err != nil {
		t.Fatalf("registry add: %v", err)
	}
	if view.Name != "@acme" || len(view.Headers) != 1 || view.Headers[0] != "Authorization" {
		t.Fatalf("unexpected view %+v", view)
	}
	if _, err := svc.RegistryAdd("bad", "https://x", []string{"novalue"}); err == nil {
		t.Fatalf("expected malformed header to fail")
	}
	reloaded, err := config.LoadProject(fs, svc.Workspace.ProjectConfigPath())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entry, ok := reloaded.Registry("@acme")
	if !ok || entry.Headers["Authorization"] != "Bearer ${ACME_TOKEN}" {
		t.Fatalf("registry not persisted: %+v", reloaded.Registries)
	}
	if len(svc.RegistryList()) != 1 {
		t.Fatalf("expected one registry")
	}
	if err := svc.RegistryRemove("@acme"); err != nil {
		t.Fatalf("registry remove: %v", err)
	}
	if err := svc.RegistryRemove("@acme"); err == nil {
		t.Fatalf("expected removing twice to fail")
	}
}

func TestInfoSummarisesProject(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry(), true)
	if _, err := svc.Add(context.Background(), []string{"utils"}, AddOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	info, err := svc.Info(context.Background())
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !info.HasProject || len(info.Installed) != 1 || info.PackageManager != "npm" {
		t.Fatalf("unexpected info %+v", info)
	}
	if len(info.Dirs) != 3 || info.Dirs[1].Role != "lib" || !info.Dirs[1].Exists {
		t.Fatalf("unexpected dirs %+v", info.Dirs)
	}
	if !info.Doctor.Healthy {
		t.Fatalf("expected healthy doctor report: %+v", info.Doctor.Findings)
	}
}
