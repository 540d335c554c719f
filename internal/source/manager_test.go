package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"aster/internal/config"
	"aster/internal/workspace"
)

func newTestManager(t *testing.T, urls []string, raw string, ws *workspace.Workspace, env map[string]string) *Manager {
	t.Helper()
	return NewManager(Options{
		Registry: config.RegistryConfig{
			APIURLs:      urls,
			Backoff:      "1ms",
			GitHubRawURL: raw,
		},
		Workspace: ws,
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func buttonResource() Resource {
	return Resource{
		Name:                 "button",
		Type:                 TypeUI,
		Files:                []File{{Path: "button.tsx", Content: "export const Button = 1;\n", Type: TypeUI}},
		RegistryDependencies: []string{"utils"},
	}
}

func TestOfficialFetchSendsQueryAndDecodes(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/r/button" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		if ua := r.Header.Get("User-Agent"); ua != "aster-cli" {
			t.Errorf("unexpected user agent %q", ua)
		}
		writeJSON(w, http.StatusOK, buttonResource())
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL + "/api/r"}, server.URL, nil, nil)
	res, err := mgr.Fetch(context.Background(), Parse("button"), Request{Style: "stylesheet"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if res.Name != "button" || len(res.Files) != 1 || res.RegistryDependencies[0] != "utils" {
		t.Fatalf("unexpected resource %+v", res)
	}
	for _, want := range []string{"framework=expo", "type=ui", "style=stylesheet"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestOfficialRetriesThenAdvancesBaseURL(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	var flaky atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
			return
		}
		writeJSON(w, http.StatusOK, buttonResource())
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{deadURL, server.URL}, server.URL, nil, nil)
	if _, err := mgr.Fetch(context.Background(), Parse("button"), Request{}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got := flaky.Load(); got != 2 {
		t.Fatalf("expected one retry against the live server, got %d calls", got)
	}
}

func TestOfficialNotFoundIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Component not found"})
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL, server.URL}, server.URL, nil, nil)
	_, err := mgr.Fetch(context.Background(), Parse("nope"), Request{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "Component not found") || !strings.HasPrefix(err.Error(), "SRC_NOT_FOUND") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single request, got %d", calls.Load())
	}
}

func TestOfficialBadRequestIsConfigError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown framework"})
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	_, err := mgr.Fetch(context.Background(), Parse("config:eslint"), Request{Framework: "vue"})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestOfficialExhaustedRetriesIsNetworkError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	_, err := mgr.Fetch(context.Background(), Parse("button"), Request{})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestConfigKindRequestsConfigType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "config" {
			http.Error(w, "wrong type", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":  "eslint",
			"files": []map[string]string{{"path": "eslint.config.js", "content": "module.exports = {};"}},
		})
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	res, err := mgr.Fetch(context.Background(), Parse("config:eslint"), Request{})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !res.IsConfig() || res.Files[0].Type != TypeConfig {
		t.Fatalf("expected config typed resource, got %+v", res)
	}
}

func TestIndexIsMemoized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, []IndexItem{{Name: "button", Type: "ui"}, {Name: "use-theme", Type: "registry:hook"}})
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	for i := 0; i < 2; i++ {
		items, err := mgr.Index(context.Background(), Request{Style: "nativewind"}, "ui")
		if err != nil {
			t.Fatalf("index failed: %v", err)
		}
		if len(items) != 2 || items[0].Type != TypeUI {
			t.Fatalf("unexpected items %+v", items)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected memoized index, got %d calls", calls.Load())
	}
}

func TestGitHubFallsBackToDefaultStyle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acme/widgets/v2/registry.json":
			writeJSON(w, http.StatusOK, githubRegistry{
				Name: "widgets",
				Components: map[string]githubComponent{
					"card": {Name: "card", Type: "registry:ui", Files: []string{"card.tsx"}, Dependencies: []string{"clsx"}},
				},
			})
		case "/acme/widgets/v2/nativewind/card.tsx":
			_, _ = w.Write([]byte("export const Card = 'nativewind';\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	res, err := mgr.Fetch(context.Background(), Parse("github:acme/widgets/card@v2"), Request{Style: "stylesheet"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(res.Files) != 1 || res.Files[0].Content != "export const Card = 'nativewind';\n" {
		t.Fatalf("expected fallback content, got %+v", res.Files)
	}
	if res.Dependencies[0] != "clsx" || res.Type != TypeUI {
		t.Fatalf("unexpected resource metadata %+v", res)
	}
}

func TestGitHubMissingComponentListsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, githubRegistry{Components: map[string]githubComponent{"badge": {Files: []string{"badge.tsx"}}}})
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	_, err := mgr.Fetch(context.Background(), Parse("github:acme/widgets/card"), Request{})
	if !errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "badge") {
		t.Fatalf("expected not found listing badge, got %v", err)
	}
}

func TestHTTPInjectsStyle(t *testing.T) {
	var gotStyle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		gotStyle = r.URL.Query().Get("style")
		writeJSON(w, http.StatusOK, buttonResource())
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	if _, err := mgr.Fetch(context.Background(), Parse(server.URL+"/r/button.json"), Request{Style: "stylesheet"}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotStyle != "stylesheet" {
		t.Fatalf("expected injected style, got %q", gotStyle)
	}
	if _, err := mgr.Fetch(context.Background(), Parse(server.URL+"/r/button.json?style=nativewind"), Request{Style: "stylesheet"}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotStyle != "nativewind" {
		t.Fatalf("explicit style should win, got %q", gotStyle)
	}
	if _, err := mgr.Fetch(context.Background(), Parse(server.URL+"/missing.json"), Request{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNamespaceExpandsHeadersAndDistinguishesAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad token"})
			return
		}
		if r.URL.Path != "/r/button.json" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, buttonResource())
	}))
	defer server.Close()

	project := config.DefaultProjectConfig()
	project.Registries = map[string]config.RegistryEntry{
		"@acme": {URL: server.URL + "/r/{name}.json", Headers: map[string]string{"Authorization": "Bearer ${ACME_TOKEN}"}},
	}
	req := Request{Style: "nativewind", Project: &project}

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, map[string]string{"ACME_TOKEN": "s3cret"})
	if _, err := mgr.Fetch(context.Background(), Parse("@acme/button"), req); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if _, err := mgr.Fetch(context.Background(), Parse("@acme/ghost"), req); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	noToken := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	_, err := noToken.Fetch(context.Background(), Parse("@acme/button"), req)
	if !errors.Is(err, ErrAuth) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected auth error, got %v", err)
	}

	_, err = mgr.Fetch(context.Background(), Parse("@other/button"), req)
	if !errors.Is(err, ErrConfig) || !strings.Contains(err.Error(), "@other") {
		t.Fatalf("expected config error naming the registry, got %v", err)
	}
}

func TestRegistryURL(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"https://x.dev/r/{name}.json", "https://x.dev/r/button.json?style=nativewind"},
		{"https://x.dev/r/{style}/{name}.json", "https://x.dev/r/nativewind/button.json"},
		{"https://x.dev/r/", "https://x.dev/r/button?style=nativewind"},
		{"https://x.dev/r?token=1", "https://x.dev/r/button?style=nativewind&token=1"},
		{"https://x.dev/{style}", "https://x.dev/nativewind/button"},
	}
	for _, tt := range tests {
		got, err := RegistryURL(tt.template, "button", "nativewind")
		if err != nil {
			t.Fatalf("RegistryURL(%q) failed: %v", tt.template, err)
		}
		if got != tt.want {
			t.Fatalf("RegistryURL(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestLocalReadsFromWorkspace(t *testing.T) {
	fs := afero.NewMemMapFs()
	ws := workspace.New(fs, "/proj", "/home/u", "")
	blob, _ := json.Marshal(buttonResource())
	if err := afero.WriteFile(fs, "/home/u/components/button.json", blob, 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := afero.WriteFile(fs, "/proj/broken.json", []byte("{"), 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	mgr := newTestManager(t, []string{"http://127.0.0.1:1"}, "http://127.0.0.1:1", ws, nil)
	res, err := mgr.Fetch(context.Background(), Parse("~/components/button.json"), Request{})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if res.Name != "button" {
		t.Fatalf("unexpected resource %+v", res)
	}
	for _, in := range []string{"./missing.json", "./broken.json"} {
		if _, err := mgr.Fetch(context.Background(), Parse(in), Request{}); !errors.Is(err, ErrLocalRead) {
			t.Fatalf("expected local read error for %s, got %v", in, err)
		}
	}
}

func TestSchemaViolationIsInvalidResource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"name": "button", "files": []map[string]any{{"path": "", "content": 3}}})
	}))
	defer server.Close()

	mgr := newTestManager(t, []string{server.URL}, server.URL, nil, nil)
	_, err := mgr.Fetch(context.Background(), Parse("button"), Request{})
	if !errors.Is(err, ErrInvalidResource) || !strings.Contains(err.Error(), "/files/0") {
		t.Fatalf("expected schema violation at /files/0, got %v", err)
	}
}

type stubFetcher struct{ res Resource }

func (s stubFetcher) Fetch(context.Context, Descriptor, Request) (Resource, error) { return s.res, nil }

func TestRegisterReplacesKind(t *testing.T) {
	mgr := newTestManager(t, []string{"http://127.0.0.1:1"}, "http://127.0.0.1:1", nil, nil)
	mgr.Register(KindOfficial, stubFetcher{res: Resource{Files: []File{{Path: "x.ts", Content: "x"}}}})
	res, err := mgr.Fetch(context.Background(), Parse("x"), Request{})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if res.Name != "x" || res.Type != TypeUI || res.Files[0].Type != TypeUI {
		t.Fatalf("expected normalized stub resource, got %+v", res)
	}
}
