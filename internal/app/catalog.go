package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"aster/internal/source"
	"aster/internal/store"
)

// List returns the official registry index. typ filters by resource type
// ("ui", "lib", "hook" or "config"); empty lists every non-config type.
func (s *Service) List(ctx context.Context, typ string) ([]source.IndexItem, error) {
	typ = source.ShortType(strings.TrimSpace(typ))
	indexType := "ui"
	if typ == "config" {
		indexType = "config"
	}
	items, err := s.Sources.Index(ctx, s.request(), indexType)
	if err != nil {
		return nil, err
	}
	if typ == "" || typ == "config" {
		return items, nil
	}
	out := make([]source.IndexItem, 0, len(items))
	for _, item := range items {
		if source.ShortType(item.Type) == typ {
			out = append(out, item)
		}
	}
	return out, nil
}

// Search filters the official index by a case-insensitive substring of
// name or description. An empty query returns everything.
func (s *Service) Search(ctx context.Context, query string) ([]source.IndexItem, error) {
	items, err := s.Sources.Index(ctx, s.request(), "ui")
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items, nil
	}
	out := []source.IndexItem{}
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), q) || strings.Contains(strings.ToLower(item.Description), q) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.HasPrefix(strings.ToLower(out[i].Name), q) && !strings.HasPrefix(strings.ToLower(out[j].Name), q)
	})
	return out, nil
}

// InstalledEntry is one row of `list --installed`.
type InstalledEntry struct {
	Name        string        `json:"name"`
	Section     store.Section `json:"section"`
	Version     string        `json:"version,omitempty"`
	Source      string        `json:"source,omitempty"`
	InstalledAt *time.Time    `json:"installedAt,omitempty"`
	Files       []string      `json:"files,omitempty"`
	Untracked   bool          `json:"untracked,omitempty"`
}

// InstalledEntries lists lockfile entries followed by component files
// the lockfile does not know about.
func (s *Service) InstalledEntries() ([]InstalledEntry, error) {
	lock, err := store.Load(s.Workspace.Fs, s.Workspace.LockfilePath())
	if err != nil {
		return nil, err
	}
	names, err := s.Installer.Installed()
	if err != nil {
		return nil, err
	}
	out := make([]InstalledEntry, 0, len(names))
	for _, name := range names {
		sec, entry, ok := lock.Lookup(name)
		if !ok {
			out = append(out, InstalledEntry{Name: name, Section: store.SectionComponents, Untracked: true})
			continue
		}
		at := entry.InstalledAt
		out = append(out, InstalledEntry{
			Name:        name,
			Section:     sec,
			Version:     entry.Version,
			Source:      entry.Source,
			InstalledAt: &at,
			Files:       entry.Files,
		})
	}
	return out, nil
}

// Describe fetches a single resource for display.
func (s *Service) Describe(ctx context.Context, id string) (source.Resource, error) {
	if strings.TrimSpace(id) == "" {
		return source.Resource{}, fmt.Errorf("SRC_DESCRIBE: component id is required")
	}
	set, warnings := s.Resolver.ResolveAll(ctx, []string{id}, s.request())
	if e, ok := set.Get(id); ok {
		return e.Resource, nil
	}
	if len(warnings) > 0 {
		return source.Resource{}, warnings[0].Err
	}
	return source.Resource{}, fmt.Errorf("SRC_DESCRIBE: %s could not be resolved", id)
}
