package installer

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"aster/internal/security"
	"aster/internal/store"
)

// componentExts are the file extensions a directory scan treats as
// components.
var componentExts = []string{".tsx", ".ts", ".jsx", ".js", ".vue"}

// RemovalStrategy decides which files belong to an installed name.
type RemovalStrategy interface {
	Files(s *Service) []string
	Describe() string
}

// ByLockfile removes exactly the files recorded at install time.
type ByLockfile struct {
	Section store.Section
	Paths   []string
}

func (r ByLockfile) Files(*Service) []string { return r.Paths }
func (r ByLockfile) Describe() string        { return "lockfile" }

// ByDirScan finds the component file by name in the components directory.
// It covers installs that predate the lockfile.
type ByDirScan struct {
	Dir  string
	Name string
}

func (r ByDirScan) Files(s *Service) []string {
	for _, ext := range componentExts {
		p := path.Join(r.Dir, r.Name+ext)
		if s.Workspace.Exists(p) {
			return []string{p}
		}
	}
	return nil
}

func (r ByDirScan) Describe() string { return "directory scan" }

type RemoveResult struct {
	Name     string   `json:"name"`
	Strategy string   `json:"strategy,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	Found    bool     `json:"found"`
}

// Installed lists installed component and config names: lockfile entries
// first, then component files found only by directory scan.
func (s *Service) Installed() ([]string, error) {
	lock, err := store.Load(s.Workspace.Fs, s.Workspace.LockfilePath())
	if err != nil {
		return nil, err
	}
	names := append(lock.Names(store.SectionComponents), lock.Names(store.SectionConfigs)...)
	seen := map[string]struct{}{}
	for _, n := range names {
		seen[n] = struct{}{}
	}
	var scanned []string
	for _, n := range s.scanComponents() {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			scanned = append(scanned, n)
		}
	}
	sort.Strings(scanned)
	return append(names, scanned...), nil
}

func (s *Service) scanComponents() []string {
	entries, err := afero.ReadDir(s.Workspace.Fs, s.Workspace.Abs(s.Project.Paths.Components))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		for _, ext := range componentExts {
			if strings.HasSuffix(name, ext) {
				base := strings.TrimSuffix(name, ext)
				if base != "index" {
					out = append(out, base)
				}
				break
			}
		}
	}
	return out
}

// PlanRemoval picks the strategy for name, preferring the lockfile.
func (s *Service) PlanRemoval(lock *store.Lockfile, name string) (RemovalStrategy, bool) {
	if sec, entry, ok := lock.Lookup(name); ok {
		return ByLockfile{Section: sec, Paths: entry.Files}, true
	}
	scan := ByDirScan{Dir: s.Project.Paths.Components, Name: name}
	if len(scan.Files(s)) > 0 {
		return scan, true
	}
	return nil, false
}

// Remove deletes the files of each named install, drops their barrel
// exports and lockfile entries. Names that are not installed are reported
// with Found=false. Delete failures are aggregated and returned after the
// lockfile is saved; an entry whose files could not all be deleted stays
// recorded with the remaining paths.
func (s *Service) Remove(ctx context.Context, names []string) ([]RemoveResult, error) {
	op := s.Audit.Begin("remove", map[string]string{"items": strings.Join(names, ",")})
	lock, err := store.Load(s.Workspace.Fs, s.Workspace.LockfilePath())
	if err != nil {
		op.Fail(err)
		return nil, err
	}
	var (
		results   []RemoveResult
		errs      *multierror.Error
		exports   []string
		lockDirty bool
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		res := RemoveResult{Name: name}
		strategy, ok := s.PlanRemoval(&lock, name)
		if !ok {
			results = append(results, res)
			continue
		}
		res.Found = true
		res.Strategy = strategy.Describe()
		var kept []string
		for _, rel := range strategy.Files(s) {
			if err := security.CheckRelative(rel); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("INS_PATH: %s: %w", rel, err))
				kept = append(kept, rel)
				continue
			}
			err := s.Workspace.Fs.Remove(s.Workspace.Abs(rel))
			switch {
			case err == nil:
				res.Removed = append(res.Removed, rel)
				if s.inBarrelDir(rel) {
					exports = append(exports, rel)
				}
			case os.IsNotExist(err):
				res.Missing = append(res.Missing, rel)
			default:
				errs = multierror.Append(errs, fmt.Errorf("INS_REMOVE: %s: %w", rel, err))
				kept = append(kept, rel)
			}
		}
		// The entry keeps whatever is still on disk so a retry can finish.
		if _, ok := strategy.(ByLockfile); ok {
			if len(kept) == 0 {
				lock.Remove(name)
			} else if sec, entry, found := lock.Lookup(name); found {
				entry.Files = kept
				lock.Record(sec, entry)
			}
			lockDirty = true
		}
		results = append(results, res)
	}

	if len(exports) > 0 {
		if _, err := s.dropExports(exports); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("INS_EXPORT: %w", err))
		}
	}
	if lockDirty {
		if err := store.Save(s.Workspace.Fs, s.Workspace.LockfilePath(), lock); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("INS_LOCK_SAVE: %w", err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		op.Fail(err)
		return results, err
	}
	op.Commit(fmt.Sprintf("removed=%d", len(exports)), nil)
	return results, nil
}
