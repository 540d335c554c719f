// Package doctor checks the health of the user configuration, the project
// files and the resource cache.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"aster/internal/cache"
	"aster/internal/config"
	"aster/internal/installer"
	"aster/internal/store"
	"aster/internal/workspace"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy        bool      `json:"healthy"`
	Findings       []Finding `json:"findings"`
	PackageManager string    `json:"packageManager,omitempty"`
}

type Service struct {
	ConfigPath string
	Workspace  *workspace.Workspace
	Cache      *cache.Store
}

func (s *Service) Run(ctx context.Context) Report {
	findings := []Finding{}
	add := func(code, level, msg string) {
		findings = append(findings, Finding{Code: code, Level: level, Message: msg})
	}

	if _, err := os.Stat(s.ConfigPath); err != nil {
		add("DOC_CONFIG_MISSING", "info", "no user config at "+s.ConfigPath+"; defaults in use")
	} else if _, err := config.Load(s.ConfigPath); err != nil {
		add("DOC_CONFIG_INVALID", "error", err.Error())
	}

	project, err := config.LoadProject(s.Workspace.Fs, s.Workspace.ProjectConfigPath())
	switch {
	case errors.Is(err, config.ErrProjectMissing):
		add("DOC_PROJECT_MISSING", "warn", "aster.json not found; run `aster init`")
	case err != nil:
		add("DOC_PROJECT_INVALID", "error", err.Error())
	default:
		if !s.Workspace.Exists(project.Paths.Components) {
			add("DOC_COMPONENTS_DIR", "warn", "components directory "+project.Paths.Components+" does not exist yet")
		}
	}

	lock, err := store.Load(s.Workspace.Fs, s.Workspace.LockfilePath())
	if err != nil {
		add("DOC_LOCK_INVALID", "error", err.Error())
	} else {
		for _, entries := range []map[string]store.Entry{lock.Components, lock.Configs} {
			for name, entry := range entries {
				if ctx.Err() != nil {
					break
				}
				for _, f := range entry.Files {
					if !s.Workspace.Exists(f) {
						add("DOC_LOCK_DRIFT", "warn", fmt.Sprintf("%s: recorded file %s is missing", name, f))
					}
				}
			}
		}
	}

	if s.Cache != nil {
		entries, err := s.Cache.List()
		if err != nil {
			add("DOC_CACHE_INVALID", "error", err.Error())
		} else {
			expired := 0
			for _, e := range entries {
				if s.Cache.Expired(e) {
					expired++
				}
			}
			if expired > 0 {
				add("DOC_CACHE_EXPIRED", "info", fmt.Sprintf("%d expired cache entries; run `aster cache clean`", expired))
			}
		}
	}

	healthy := true
	for _, f := range findings {
		if f.Level == "error" {
			healthy = false
			break
		}
	}
	return Report{
		Healthy:        healthy,
		Findings:       findings,
		PackageManager: installer.DetectPackageManager(s.Workspace).Name,
	}
}
