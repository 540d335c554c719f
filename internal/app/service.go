// Package app wires the resolver, cache, installer and configuration into
// the operations exposed by the aster CLI.
package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"aster/internal/audit"
	"aster/internal/cache"
	"aster/internal/config"
	"aster/internal/doctor"
	"aster/internal/installer"
	"aster/internal/logging"
	"aster/internal/resolver"
	"aster/internal/security"
	"aster/internal/source"
	"aster/internal/workspace"
)

type Options struct {
	ConfigPath string
	Cwd        string
	HTTPClient *http.Client
	// Fs and Home default to the OS filesystem and the user home directory.
	Fs        afero.Fs
	Home      string
	LogOutput io.Writer
	LookupEnv func(string) (string, bool)
	Runner    installer.Runner
}

type Service struct {
	ConfigPath string
	Config     config.Config
	Workspace  *workspace.Workspace
	Project    config.ProjectConfig
	HasProject bool

	Logger    *logrus.Logger
	Sources   *source.Manager
	Cache     *cache.Store
	Resolver  *resolver.Service
	Installer *installer.Service
	Doctor    *doctor.Service
	Audit     *audit.Logger
}

func New(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	home := opts.Home
	if home == "" {
		if home, err = os.UserHomeDir(); err != nil {
			return nil, fmt.Errorf("WS_HOME: %w", err)
		}
	}
	cwd := opts.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("WS_CWD: %w", err)
		}
	}
	if cwd, err = filepath.Abs(cwd); err != nil {
		return nil, fmt.Errorf("WS_CWD: %w", err)
	}
	ws := workspace.New(fs, cwd, home, "")
	if cfg.Cache.Dir != "" {
		ws.CacheRoot = ws.ExpandHome(cfg.Cache.Dir)
	}

	project, err := config.LoadProject(fs, ws.ProjectConfigPath())
	hasProject := err == nil
	if errors.Is(err, config.ErrProjectMissing) {
		project, err = config.DefaultProjectConfig(), nil
		project.Style = cfg.Registry.DefaultStyle
	}
	if err != nil {
		return nil, err
	}

	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := logging.New(cfg.Logging, logOut)
	auditLog := audit.New(fs, ws.AuditPath())

	sources := source.NewManager(source.Options{
		HTTPClient: opts.HTTPClient,
		Registry:   cfg.Registry,
		Workspace:  ws,
		LookupEnv:  opts.LookupEnv,
	})
	var store *cache.Store
	resolverSvc := &resolver.Service{Sources: sources, Logger: logger}
	if cfg.Cache.Enabled {
		store = cache.New(fs, ws.CacheRoot, cfg.Cache.TTLDuration())
		resolverSvc.Cache = store
	}
	return &Service{
		ConfigPath: configPath,
		Config:     cfg,
		Workspace:  ws,
		Project:    project,
		HasProject: hasProject,
		Logger:     logger,
		Sources:    sources,
		Cache:      store,
		Resolver:   resolverSvc,
		Installer: &installer.Service{
			Workspace: ws,
			Project:   project,
			Runner:    opts.Runner,
			Logger:    logger,
			Audit:     auditLog,
			Scanner:   security.NewScanner(cfg.Security),
		},
		Doctor: &doctor.Service{ConfigPath: configPath, Workspace: ws, Cache: store},
		Audit:  auditLog,
	}, nil
}

func (s *Service) request() source.Request {
	style := s.Project.Style
	if style == "" {
		style = s.Config.Registry.DefaultStyle
	}
	framework := s.Project.Framework
	if framework == "" {
		framework = s.Config.Registry.Framework
	}
	return source.Request{Style: style, Framework: framework, Project: &s.Project}
}

func (s *Service) requireProject() error {
	if !s.HasProject {
		return config.ErrProjectMissing
	}
	return nil
}

// setProject replaces the project config everywhere it is held.
func (s *Service) setProject(p config.ProjectConfig) {
	s.Project = p
	s.HasProject = true
	s.Installer.Project = p
}

// Init writes a default aster.json. An existing file is kept unless force
// is set.
func (s *Service) Init(style string, force bool) (config.ProjectConfig, error) {
	path := s.Workspace.ProjectConfigPath()
	if s.Workspace.Exists(path) && !force {
		return config.ProjectConfig{}, fmt.Errorf("DOC_PROJECT_EXISTS: %s already exists; use --force to overwrite", workspace.ProjectConfigFile)
	}
	p := config.DefaultProjectConfig()
	if style == "" {
		style = s.Config.Registry.DefaultStyle
	}
	p.Style = style
	p.Framework = s.Config.Registry.Framework
	p.TypeScript = !s.Workspace.Exists("package.json") || s.Workspace.Exists("tsconfig.json")
	if err := config.SaveProject(s.Workspace.Fs, path, p); err != nil {
		return config.ProjectConfig{}, err
	}
	s.setProject(config.NormalizeProject(p))
	return s.Project, nil
}
