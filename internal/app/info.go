package app

import (
	"context"

	"aster/internal/config"
	"aster/internal/doctor"
	"aster/internal/installer"
)

type DirStatus struct {
	Role   string `json:"role"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

type Info struct {
	ConfigPath     string                `json:"configPath"`
	CacheDir       string                `json:"cacheDir"`
	HasProject     bool                  `json:"hasProject"`
	Project        *config.ProjectConfig `json:"project,omitempty"`
	Dirs           []DirStatus           `json:"dirs,omitempty"`
	Installed      []string              `json:"installed"`
	Registries     []RegistryView        `json:"registries,omitempty"`
	PackageManager string                `json:"packageManager"`
	Doctor         doctor.Report         `json:"doctor"`
}

func (s *Service) Info(ctx context.Context) (Info, error) {
	info := Info{
		ConfigPath:     s.ConfigPath,
		CacheDir:       s.Workspace.CacheRoot,
		HasProject:     s.HasProject,
		Installed:      []string{},
		PackageManager: installer.DetectPackageManager(s.Workspace).Name,
		Doctor:         s.Doctor.Run(ctx),
	}
	if !s.HasProject {
		return info, nil
	}
	p := s.Project
	info.Project = &p
	for _, d := range []DirStatus{
		{Role: "components", Path: p.Paths.Components},
		{Role: "lib", Path: p.Paths.Lib},
		{Role: "hooks", Path: p.Paths.Hooks},
	} {
		if d.Path == "" {
			continue
		}
		d.Exists = s.Workspace.Exists(d.Path)
		info.Dirs = append(info.Dirs, d)
	}
	installed, err := s.Installer.Installed()
	if err != nil {
		return info, err
	}
	info.Installed = installed
	info.Registries = s.RegistryList()
	return info, nil
}
