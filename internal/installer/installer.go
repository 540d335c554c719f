// Package installer reconciles resolved resources against the project
// tree and records what it wrote in aster.lock.
package installer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"aster/internal/audit"
	"aster/internal/config"
	"aster/internal/fsutil"
	"aster/internal/resolver"
	"aster/internal/security"
	"aster/internal/source"
	"aster/internal/store"
	"aster/internal/workspace"
)

type Service struct {
	Workspace *workspace.Workspace
	Project   config.ProjectConfig
	Runner    Runner
	Logger    logrus.FieldLogger
	Audit     *audit.Logger
	Scanner   *security.Scanner
	Now       func() time.Time
}

type Options struct {
	Force      bool
	SkipExport bool
	SkipDeps   bool
}

type FileStatus string

const (
	FileWritten     FileStatus = "written"
	FileOverwritten FileStatus = "overwritten"
	FileUnchanged   FileStatus = "unchanged"
	FileConflict    FileStatus = "conflict"
)

type FileResult struct {
	Path        string     `json:"path"`
	Status      FileStatus `json:"status"`
	LocalLines  int        `json:"localLines,omitempty"`
	RemoteLines int        `json:"remoteLines,omitempty"`
}

// ConflictError describes a skipped file whose local content differs from
// the incoming content.
type ConflictError struct {
	Path        string
	LocalLines  int
	RemoteLines int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("INS_CONFLICT: %s differs from the incoming version (local %d lines, incoming %d lines); use --force to overwrite", e.Path, e.LocalLines, e.RemoteLines)
}

type HookResult struct {
	Command string `json:"command"`
	Blocked bool   `json:"blocked,omitempty"`
	Error   string `json:"error,omitempty"`
	Output  string `json:"output,omitempty"`
}

type ItemReport struct {
	Name       string             `json:"name"`
	Input      string             `json:"input"`
	Source     string             `json:"source"`
	Section    store.Section      `json:"section"`
	Files      []FileResult       `json:"files"`
	Transforms []TransformResult  `json:"transforms,omitempty"`
	Hooks      []HookResult       `json:"hooks,omitempty"`
	Findings   []security.Finding `json:"findings,omitempty"`
	Recorded   bool               `json:"recorded"`
}

type DependencyReport struct {
	Manager      string   `json:"manager,omitempty"`
	Installed    []string `json:"installed,omitempty"`
	DevInstalled []string `json:"devInstalled,omitempty"`
	Skipped      []string `json:"skipped,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

type Report struct {
	Items        []ItemReport     `json:"items"`
	Dependencies DependencyReport `json:"dependencies"`
	Exports      []string         `json:"exports,omitempty"`
}

// Conflicts lists every skipped file across the report.
func (r Report) Conflicts() []*ConflictError {
	var out []*ConflictError
	for _, item := range r.Items {
		for _, f := range item.Files {
			if f.Status == FileConflict {
				out = append(out, &ConflictError{Path: f.Path, LocalLines: f.LocalLines, RemoteLines: f.RemoteLines})
			}
		}
	}
	return out
}

// Written counts files created or overwritten.
func (r Report) Written() int {
	n := 0
	for _, item := range r.Items {
		for _, f := range item.Files {
			if f.Status == FileWritten || f.Status == FileOverwritten {
				n++
			}
		}
	}
	return n
}

// Destination returns the project-relative path a resource file is
// written to.
func Destination(p config.ProjectConfig, f source.File) string {
	if f.Target != "" {
		return filepath.Clean(filepath.FromSlash(f.Target))
	}
	return filepath.Join(filepath.FromSlash(p.DirForType(f.Type)), path.Base(filepath.ToSlash(f.Path)))
}

// SectionFor maps a resource to its lockfile section.
func SectionFor(res source.Resource) store.Section {
	if res.IsConfig() {
		return store.SectionConfigs
	}
	return store.SectionComponents
}

// Install writes every resource in set. Dependency and hook failures are
// reported; file and lockfile write failures roll back this call's writes
// and are returned.
func (s *Service) Install(ctx context.Context, set *resolver.ResolvedSet, opts Options) (Report, error) {
	report := Report{Items: []ItemReport{}}
	if set == nil || set.Len() == 0 {
		return report, nil
	}
	op := s.Audit.Begin("install", map[string]string{"items": strings.Join(set.Inputs(), ",")})
	if err := s.checkDestinations(set); err != nil {
		op.Fail(err)
		return report, err
	}
	findings, err := s.scanFiles(ctx, set, opts.Force)
	if err != nil {
		op.Fail(err)
		return report, err
	}
	lock, err := store.Load(s.Workspace.Fs, s.Workspace.LockfilePath())
	if err != nil {
		op.Fail(err)
		return report, err
	}

	if !opts.SkipDeps {
		report.Dependencies = s.installDependencies(ctx, set)
	}

	tx := newTxn(s.Workspace.Fs)
	fail := func(err error) (Report, error) {
		tx.rollback()
		op.Fail(err)
		return report, err
	}

	var newUI []string
	lockChanged := false
	for _, e := range set.Entries() {
		item := ItemReport{
			Name:     e.Resource.Name,
			Input:    e.Input,
			Source:   source.Format(e.Descriptor),
			Section:  SectionFor(e.Resource),
			Files:    []FileResult{},
			Findings: findings[e.Input],
		}
		prevSec, prev, hadPrev := lock.Lookup(item.Name)
		prevFiles := map[string]struct{}{}
		if hadPrev && prevSec == item.Section {
			for _, f := range prev.Files {
				prevFiles[f] = struct{}{}
			}
		}

		var recorded []string
		wrote := false
		for _, f := range e.Resource.Files {
			res, err := s.placeFile(tx, f, opts.Force)
			if err != nil {
				return fail(err)
			}
			item.Files = append(item.Files, res)
			switch res.Status {
			case FileWritten, FileOverwritten:
				wrote = true
				recorded = append(recorded, res.Path)
				if res.Status == FileWritten && source.NormalizeType(f.Type) == source.TypeUI && f.Target == "" {
					newUI = append(newUI, res.Path)
				}
			case FileUnchanged:
				recorded = append(recorded, res.Path)
			case FileConflict:
				if _, ok := prevFiles[res.Path]; ok {
					recorded = append(recorded, res.Path)
				}
			}
		}

		if e.Resource.IsConfig() {
			for _, t := range e.Resource.Transforms {
				tr, err := s.transform(tx, t)
				if err != nil {
					return fail(err)
				}
				item.Transforms = append(item.Transforms, tr)
			}
			if wrote {
				hooks, hookFindings := s.runHooks(ctx, e.Resource.Name, e.Resource.PostInstall, opts.Force)
				item.Hooks = hooks
				item.Findings = append(item.Findings, hookFindings...)
			}
		}

		if wrote || (!hadPrev && len(recorded) > 0) {
			lock.Record(item.Section, store.Entry{
				Name:        item.Name,
				Version:     s.version(e.Resource),
				InstalledAt: s.now().UTC(),
				Source:      item.Source,
				Files:       recorded,
			})
			item.Recorded = true
			lockChanged = true
		}
		report.Items = append(report.Items, item)
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"name": item.Name, "files": len(item.Files), "recorded": item.Recorded}).Debug("installed")
		}
	}

	if !opts.SkipExport && len(newUI) > 0 {
		exports, err := s.addExports(tx, newUI)
		if err != nil {
			return fail(err)
		}
		report.Exports = exports
	}

	if lockChanged {
		if err := store.Save(s.Workspace.Fs, s.Workspace.LockfilePath(), lock); err != nil {
			return fail(fmt.Errorf("INS_LOCK_SAVE: %w", err))
		}
	}
	op.Commit(fmt.Sprintf("written=%d conflicts=%d", report.Written(), len(report.Conflicts())), nil)
	return report, nil
}

func (s *Service) checkDestinations(set *resolver.ResolvedSet) error {
	for _, e := range set.Entries() {
		for _, f := range e.Resource.Files {
			dest := Destination(s.Project, f)
			if err := security.CheckRelative(dest); err != nil {
				return fmt.Errorf("INS_PATH: %s: destination %q is outside the project: %w", e.Input, filepath.ToSlash(dest), err)
			}
		}
		for _, t := range e.Resource.Transforms {
			if err := security.CheckRelative(t.File); err != nil {
				return fmt.Errorf("INS_PATH: %s: transform target %q is outside the project: %w", e.Input, t.File, err)
			}
		}
	}
	return nil
}

// placeFile applies the conflict policy to one file.
func (s *Service) placeFile(tx *txn, f source.File, force bool) (FileResult, error) {
	rel := filepath.ToSlash(Destination(s.Project, f))
	abs := s.Workspace.Abs(rel)
	res := FileResult{Path: rel, RemoteLines: fsutil.CountLines(f.Content)}

	current, err := afero.ReadFile(s.Workspace.Fs, abs)
	switch {
	case os.IsNotExist(err):
		res.Status = FileWritten
	case err != nil:
		return res, fmt.Errorf("INS_READ: %s: %w", rel, err)
	case string(current) == f.Content:
		res.Status = FileUnchanged
		res.LocalLines = res.RemoteLines
		return res, nil
	default:
		res.LocalLines = fsutil.CountLines(string(current))
		if !force {
			res.Status = FileConflict
			return res, nil
		}
		res.Status = FileOverwritten
	}
	if err := tx.write(abs, []byte(f.Content)); err != nil {
		return res, fmt.Errorf("INS_WRITE: %s: %w", rel, err)
	}
	return res, nil
}

func (s *Service) transform(tx *txn, t source.Transform) (TransformResult, error) {
	rel := filepath.ToSlash(filepath.Clean(filepath.FromSlash(t.File)))
	tr := TransformResult{File: rel, Op: transformOp(t)}
	abs := s.Workspace.Abs(rel)
	current, err := afero.ReadFile(s.Workspace.Fs, abs)
	if err != nil {
		tr.Status = TransformSkipped
		if !os.IsNotExist(err) {
			tr.Error = err.Error()
		}
		return tr, nil
	}
	out, err := applyTransform(abs, current, t)
	if err != nil {
		tr.Status = TransformFailed
		tr.Error = err.Error()
		return tr, nil
	}
	if out == nil {
		tr.Status = TransformUnchanged
		return tr, nil
	}
	if err := tx.write(abs, out); err != nil {
		return tr, fmt.Errorf("INS_WRITE: %s: %w", rel, err)
	}
	tr.Status = TransformApplied
	return tr, nil
}

// scanFiles runs the content rules over every resource before anything is
// written. Findings at or above the block severity abort the install.
func (s *Service) scanFiles(ctx context.Context, set *resolver.ResolvedSet, force bool) (map[string][]security.Finding, error) {
	out := map[string][]security.Finding{}
	if s.Scanner == nil {
		return out, nil
	}
	for _, e := range set.Entries() {
		files := make(map[string]string, len(e.Resource.Files))
		for _, f := range e.Resource.Files {
			files[filepath.ToSlash(Destination(s.Project, f))] = f.Content
		}
		rep := s.Scanner.Scan(ctx, security.Subject{Resource: e.Resource.Name, Files: files})
		if err := s.Scanner.Enforce(rep, force); err != nil {
			return nil, fmt.Errorf("INS_SCAN: %s: %w", e.Input, err)
		}
		if len(rep.Findings) > 0 {
			out[e.Input] = rep.Findings
		}
	}
	return out, nil
}

// runHooks executes each command unless the scanner blocks it. A blocked
// hook is reported like a failed one.
func (s *Service) runHooks(ctx context.Context, resource string, commands []string, force bool) ([]HookResult, []security.Finding) {
	var out []HookResult
	var findings []security.Finding
	for _, command := range commands {
		if strings.TrimSpace(command) == "" {
			continue
		}
		hr := HookResult{Command: command}
		if s.Scanner != nil {
			rep := s.Scanner.Scan(ctx, security.Subject{Resource: resource, Hooks: []string{command}})
			findings = append(findings, rep.Findings...)
			if err := s.Scanner.Enforce(rep, force); err != nil {
				hr.Blocked = true
				hr.Error = err.Error()
				if s.Logger != nil {
					s.Logger.WithField("command", command).Warn("post-install hook blocked")
				}
				out = append(out, hr)
				continue
			}
		}
		name, args := shellCommand(command)
		if output, err := s.runner().Run(ctx, s.Workspace.Cwd, name, args...); err != nil {
			hr.Error = err.Error()
			hr.Output = strings.TrimSpace(string(output))
			if s.Logger != nil {
				s.Logger.WithField("command", command).Warn("post-install hook failed: " + err.Error())
			}
		}
		out = append(out, hr)
	}
	return out, findings
}

func (s *Service) installDependencies(ctx context.Context, set *resolver.ResolvedSet) DependencyReport {
	var rep DependencyReport
	declared, err := declaredPackages(s.Workspace)
	if err != nil {
		rep.Errors = append(rep.Errors, "package.json: "+err.Error())
	}
	deps, devDeps, skipped := missingDependencies(set, declared)
	rep.Skipped = skipped
	if len(deps) == 0 && len(devDeps) == 0 {
		return rep
	}
	pm := DetectPackageManager(s.Workspace)
	rep.Manager = pm.Name
	install := func(pkgs []string, dev bool) bool {
		if len(pkgs) == 0 {
			return false
		}
		output, err := s.runner().Run(ctx, s.Workspace.Cwd, pm.Name, pm.Args(pkgs, dev)...)
		if err != nil {
			msg := fmt.Sprintf("%s %s: %v", pm.Name, strings.Join(pm.Args(pkgs, dev), " "), err)
			if text := strings.TrimSpace(string(output)); text != "" {
				msg += ": " + lastLine(text)
			}
			rep.Errors = append(rep.Errors, msg)
			return false
		}
		return true
	}
	if install(deps, false) {
		rep.Installed = deps
	}
	if install(devDeps, true) {
		rep.DevInstalled = devDeps
	}
	return rep
}

func (s *Service) version(res source.Resource) string {
	if res.Version != "" {
		return res.Version
	}
	return strconv.FormatInt(s.now().UnixMilli(), 10)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) runner() Runner {
	if s.Runner == nil {
		return ExecRunner{}
	}
	return s.Runner
}

func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
