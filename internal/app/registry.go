package app

import (
	"fmt"
	"sort"
	"strings"

	"aster/internal/config"
)

type RegistryView struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Headers []string `json:"headers,omitempty"`
}

// RegistryAdd registers a namespace registry in aster.json. headers are
// "Name=value" pairs; values may reference ${ENV_VAR}.
func (s *Service) RegistryAdd(name, url string, headers []string) (RegistryView, error) {
	if err := s.requireProject(); err != nil {
		return RegistryView{}, err
	}
	if strings.TrimSpace(url) == "" {
		return RegistryView{}, fmt.Errorf("DOC_PROJECT_REGISTRY: url is required")
	}
	entry := config.RegistryEntry{URL: strings.TrimSpace(url)}
	for _, h := range headers {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return RegistryView{}, fmt.Errorf("DOC_PROJECT_REGISTRY: header %q must be Name=value", h)
		}
		if entry.Headers == nil {
			entry.Headers = map[string]string{}
		}
		entry.Headers[strings.TrimSpace(k)] = v
	}
	p := s.Project
	p.Registries = cloneRegistries(p.Registries)
	if err := p.AddRegistry(name, entry); err != nil {
		return RegistryView{}, err
	}
	if err := config.SaveProject(s.Workspace.Fs, s.Workspace.ProjectConfigPath(), p); err != nil {
		return RegistryView{}, err
	}
	s.setProject(p)
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return registryView(name, entry), nil
}

func (s *Service) RegistryRemove(name string) error {
	if err := s.requireProject(); err != nil {
		return err
	}
	p := s.Project
	p.Registries = cloneRegistries(p.Registries)
	if !p.RemoveRegistry(name) {
		return fmt.Errorf("DOC_PROJECT_REGISTRY: registry %q not found", name)
	}
	if err := config.SaveProject(s.Workspace.Fs, s.Workspace.ProjectConfigPath(), p); err != nil {
		return err
	}
	s.setProject(p)
	return nil
}

func (s *Service) RegistryList() []RegistryView {
	out := []RegistryView{}
	for _, name := range s.Project.RegistryNames() {
		out = append(out, registryView(name, s.Project.Registries[name]))
	}
	return out
}

// registryView lists header names only; values may hold credentials.
func registryView(name string, e config.RegistryEntry) RegistryView {
	v := RegistryView{Name: name, URL: e.URL}
	for k := range e.Headers {
		v.Headers = append(v.Headers, k)
	}
	sort.Strings(v.Headers)
	return v
}

func cloneRegistries(in map[string]config.RegistryEntry) map[string]config.RegistryEntry {
	out := make(map[string]config.RegistryEntry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
