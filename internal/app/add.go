package app

import (
	"context"
	"fmt"
	"strings"

	"aster/internal/installer"
	"aster/internal/resolver"
	"aster/internal/source"
)

type AddOptions struct {
	Force      bool
	SkipExport bool
	DryRun     bool
}

// ResolvedItem is the reportable view of one resolved resource.
type ResolvedItem struct {
	Input  string   `json:"input"`
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Source string   `json:"source"`
	Via    string   `json:"via,omitempty"`
	Cached bool     `json:"cached"`
	Files  []string `json:"files"`
}

type AddResult struct {
	Resolved []ResolvedItem    `json:"resolved"`
	Warnings []string          `json:"warnings,omitempty"`
	DryRun   bool              `json:"dryRun"`
	Report   *installer.Report `json:"report,omitempty"`
}

// Plan resolves ids and their registry dependencies without touching the
// project.
func (s *Service) Plan(ctx context.Context, ids []string) (*resolver.ResolvedSet, []resolver.Warning) {
	return s.Resolver.ResolveAll(ctx, ids, s.request())
}

func (s *Service) Add(ctx context.Context, ids []string, opts AddOptions) (AddResult, error) {
	if len(ids) == 0 {
		return AddResult{}, fmt.Errorf("INS_ADD: at least one component is required")
	}
	if err := s.requireProject(); err != nil {
		return AddResult{}, err
	}
	set, warnings := s.Plan(ctx, ids)
	result := AddResult{Resolved: resolvedItems(s, set), Warnings: warningStrings(warnings), DryRun: opts.DryRun}
	if set.Len() == 0 {
		if len(warnings) > 0 {
			return result, fmt.Errorf("INS_ADD: nothing could be resolved: %v", warnings[0])
		}
		return result, fmt.Errorf("INS_ADD: nothing to install")
	}
	if opts.DryRun {
		return result, nil
	}
	report, err := s.Installer.Install(ctx, set, installer.Options{Force: opts.Force, SkipExport: opts.SkipExport})
	result.Report = &report
	return result, err
}

func resolvedItems(s *Service, set *resolver.ResolvedSet) []ResolvedItem {
	out := make([]ResolvedItem, 0, set.Len())
	for _, e := range set.Entries() {
		item := ResolvedItem{
			Input:  e.Input,
			Name:   e.Resource.Name,
			Type:   source.ShortType(e.Resource.Type),
			Source: source.Format(e.Descriptor),
			Via:    e.Via,
			Cached: e.Cached,
			Files:  make([]string, 0, len(e.Resource.Files)),
		}
		for _, f := range e.Resource.Files {
			item.Files = append(item.Files, strings.ReplaceAll(installer.Destination(s.Project, f), "\\", "/"))
		}
		out = append(out, item)
	}
	return out
}

func warningStrings(ws []resolver.Warning) []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Error())
	}
	return out
}

// Remove deletes installed components or configs by name.
func (s *Service) Remove(ctx context.Context, names []string) ([]installer.RemoveResult, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("INS_REMOVE: at least one name is required")
	}
	if err := s.requireProject(); err != nil {
		return nil, err
	}
	return s.Installer.Remove(ctx, names)
}

// Installed lists installed names for interactive selection.
func (s *Service) Installed() ([]string, error) {
	return s.Installer.Installed()
}
