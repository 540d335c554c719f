package app

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"aster/internal/cache"
	"aster/internal/installer"
	"aster/internal/resolver"
	"aster/internal/source"
	"aster/internal/store"
)

// UpdateCheck compares one installed item with its source.
type UpdateCheck struct {
	Name          string               `json:"name"`
	Source        string               `json:"source"`
	Section       store.Section        `json:"section,omitempty"`
	LocalVersion  string               `json:"localVersion,omitempty"`
	RemoteVersion string               `json:"remoteVersion,omitempty"`
	VersionHint   string               `json:"versionHint,omitempty"`
	HasUpdate     bool                 `json:"hasUpdate"`
	Files         []installer.FileDiff `json:"files,omitempty"`
	Error         string               `json:"error,omitempty"`

	descriptor source.Descriptor
	resource   source.Resource
}

// versionHint compares lockfile and remote versions when both are semver.
func versionHint(local, remote string) string {
	lv, rv := canonical(local), canonical(remote)
	if !semver.IsValid(lv) || !semver.IsValid(rv) {
		return ""
	}
	switch semver.Compare(lv, rv) {
	case -1:
		return "newer"
	case 1:
		return "older"
	default:
		return "same"
	}
}

func canonical(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

type installedItem struct {
	name    string
	source  string
	section store.Section
	version string
}

// targets picks the installed items to check: names when given, every
// installed item otherwise. Unknown names come back as errored checks.
func (s *Service) targets(names []string, all bool) ([]installedItem, []UpdateCheck, error) {
	lock, err := store.Load(s.Workspace.Fs, s.Workspace.LockfilePath())
	if err != nil {
		return nil, nil, err
	}
	installed, err := s.Installer.Installed()
	if err != nil {
		return nil, nil, err
	}
	if all || len(names) == 0 {
		names = installed
	}
	known := map[string]struct{}{}
	for _, n := range installed {
		known[n] = struct{}{}
	}
	var items []installedItem
	var missing []UpdateCheck
	for _, name := range names {
		if _, ok := known[name]; !ok {
			missing = append(missing, UpdateCheck{Name: name, Source: name, Error: "not installed"})
			continue
		}
		item := installedItem{name: name, source: name}
		if sec, entry, ok := lock.Lookup(name); ok {
			item.source = entry.Source
			item.section = sec
			item.version = entry.Version
		}
		items = append(items, item)
	}
	return items, missing, nil
}

// fetchFresh bypasses cached copies and refreshes the cache with the
// result.
func (s *Service) fetchFresh(ctx context.Context, input string) (source.Descriptor, source.Resource, error) {
	req := s.request()
	d := source.Parse(input)
	res, err := s.Sources.Fetch(ctx, d, req)
	if err != nil {
		return d, source.Resource{}, err
	}
	if s.Cache != nil && d.Kind != source.KindLocal {
		if err := s.Cache.Put(cache.KeyFor(req.Style, source.Key(d)), source.Format(d), res); err != nil {
			s.Logger.WithField("source", source.Key(d)).Warn(err.Error())
		}
	}
	return d, res, nil
}

func (s *Service) CheckUpdates(ctx context.Context, names []string, all bool) ([]UpdateCheck, error) {
	if err := s.requireProject(); err != nil {
		return nil, err
	}
	items, checks, err := s.targets(names, all)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		check := UpdateCheck{Name: item.name, Source: item.source, Section: item.section, LocalVersion: item.version}
		d, res, err := s.fetchFresh(ctx, item.source)
		if err != nil {
			check.Error = err.Error()
			checks = append(checks, check)
			continue
		}
		check.descriptor, check.resource = d, res
		check.RemoteVersion = res.Version
		check.VersionHint = versionHint(item.version, res.Version)
		diffs, err := s.Installer.Compare(res)
		if err != nil {
			check.Error = err.Error()
			checks = append(checks, check)
			continue
		}
		check.Files = diffs
		check.HasUpdate = installer.HasChanges(diffs)
		checks = append(checks, check)
	}
	return checks, nil
}

// Update installs the fetched resources of the selected checks,
// overwriting local copies.
func (s *Service) Update(ctx context.Context, checks []UpdateCheck) (installer.Report, error) {
	set := resolver.NewSet()
	for _, c := range checks {
		if c.Error != "" || c.resource.Name == "" {
			continue
		}
		set.Add(resolver.Entry{Input: c.Source, Key: source.Key(c.descriptor), Descriptor: c.descriptor, Resource: c.resource})
	}
	if set.Len() == 0 {
		return installer.Report{Items: []installer.ItemReport{}}, nil
	}
	return s.Installer.Install(ctx, set, installer.Options{Force: true})
}

// Diff compares one installed item with its source file by file.
func (s *Service) Diff(ctx context.Context, name string) (UpdateCheck, error) {
	checks, err := s.CheckUpdates(ctx, []string{name}, false)
	if err != nil {
		return UpdateCheck{}, err
	}
	c := checks[0]
	if c.Error != "" {
		return c, fmt.Errorf("INS_DIFF: %s: %s", name, c.Error)
	}
	return c, nil
}

// Outdated lists installed items whose source content differs.
func (s *Service) Outdated(ctx context.Context) ([]UpdateCheck, error) {
	checks, err := s.CheckUpdates(ctx, nil, true)
	if err != nil {
		return nil, err
	}
	out := checks[:0]
	for _, c := range checks {
		if c.HasUpdate || c.Error != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
