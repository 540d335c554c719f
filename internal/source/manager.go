package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"aster/internal/config"
	"aster/internal/workspace"
)

type Options struct {
	HTTPClient *http.Client
	Registry   config.RegistryConfig
	Workspace  *workspace.Workspace
	// LookupEnv resolves ${VAR} references in namespace registry headers.
	LookupEnv func(string) (string, bool)
}

// Manager dispatches fetches to the provider registered for each kind.
type Manager struct {
	fetchers map[Kind]Fetcher
	official *officialProvider
}

func NewManager(opts Options) *Manager {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	reg := config.Normalize(config.Config{Registry: opts.Registry}).Registry
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	official := &officialProvider{
		client:  client,
		bases:   reg.APIURLs,
		retries: reg.Retries,
		backoff: reg.BackoffDuration(),
		timeout: reg.TimeoutDuration(),
		index:   gocache.New(5*time.Minute, 10*time.Minute),
	}
	remote := reg.RemoteTimeoutDuration()
	return &Manager{
		official: official,
		fetchers: map[Kind]Fetcher{
			KindOfficial:  official,
			KindConfig:    official,
			KindGitHub:    &githubProvider{client: client, rawBase: reg.GitHubRawURL, defaultStyle: reg.DefaultStyle, timeout: remote},
			KindHTTP:      &httpProvider{client: client, timeout: remote},
			KindNamespace: &namespaceProvider{client: client, timeout: remote, lookupEnv: lookup},
			KindLocal:     &localProvider{ws: opts.Workspace},
		},
	}
}

// Register installs or replaces the fetcher for kind.
func (m *Manager) Register(kind Kind, f Fetcher) {
	m.fetchers[kind] = f
}

func (m *Manager) fetcher(kind Kind) (Fetcher, error) {
	f, ok := m.fetchers[kind]
	if !ok {
		return nil, fmt.Errorf("SRC_PROVIDER: unsupported source kind %q", kind)
	}
	return f, nil
}

func (m *Manager) Fetch(ctx context.Context, d Descriptor, req Request) (Resource, error) {
	f, err := m.fetcher(d.Kind)
	if err != nil {
		return Resource{}, err
	}
	res, err := f.Fetch(ctx, d, req)
	if err != nil {
		return Resource{}, err
	}
	return res.normalize(d.Component, TypeUI), nil
}

// Index lists the official registry for the given resource type
// ("ui" or "config").
func (m *Manager) Index(ctx context.Context, req Request, typ string) ([]IndexItem, error) {
	return m.official.Index(ctx, req, typ)
}
