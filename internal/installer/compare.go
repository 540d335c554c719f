package installer

import (
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"

	"aster/internal/fsutil"
	"aster/internal/source"
)

type DiffStatus string

const (
	DiffSame     DiffStatus = "same"
	DiffModified DiffStatus = "modified"
	DiffMissing  DiffStatus = "missing"
)

// FileDiff compares one resource file with its installed copy.
type FileDiff struct {
	Path        string     `json:"path"`
	Status      DiffStatus `json:"status"`
	LocalLines  int        `json:"localLines"`
	RemoteLines int        `json:"remoteLines"`
	Local       string     `json:"-"`
	Remote      string     `json:"-"`
}

// Unified renders the change from the local copy to the incoming one.
func (d FileDiff) Unified(context int) (string, error) {
	if d.Status == DiffSame {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(d.Local),
		B:        difflib.SplitLines(d.Remote),
		FromFile: "local/" + d.Path,
		ToFile:   "remote/" + d.Path,
		Context:  context,
	})
}

// Compare reads the installed copy of every file in res. Content that
// differs only in line endings or trailing whitespace counts as the same.
func (s *Service) Compare(res source.Resource) ([]FileDiff, error) {
	out := make([]FileDiff, 0, len(res.Files))
	for _, f := range res.Files {
		rel := filepath.ToSlash(Destination(s.Project, f))
		d := FileDiff{Path: rel, Remote: f.Content, RemoteLines: fsutil.CountLines(f.Content)}
		current, err := afero.ReadFile(s.Workspace.Fs, s.Workspace.Abs(rel))
		switch {
		case os.IsNotExist(err):
			d.Status = DiffMissing
		case err != nil:
			return nil, err
		default:
			d.Local = string(current)
			d.LocalLines = fsutil.CountLines(d.Local)
			d.Status = DiffModified
			if fsutil.SameContent(d.Local, d.Remote) {
				d.Status = DiffSame
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// HasChanges reports whether any file differs or is missing.
func HasChanges(diffs []FileDiff) bool {
	for _, d := range diffs {
		if d.Status != DiffSame {
			return true
		}
	}
	return false
}
