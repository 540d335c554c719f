package installer

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// IndexFile is the barrel file under the components directory.
func (s *Service) IndexFile() string {
	name := "index.js"
	if s.Project.TypeScript {
		name = "index.ts"
	}
	return path.Join(s.Project.Paths.Components, name)
}

// ExportLine is the barrel line for a component file.
func ExportLine(file string) string {
	base := path.Base(file)
	base = strings.TrimSuffix(base, path.Ext(base))
	return fmt.Sprintf("export * from './%s';", base)
}

// inBarrelDir reports whether f sits directly in the components directory
// and is not the barrel file itself.
func (s *Service) inBarrelDir(f string) bool {
	return path.Dir(f) == path.Clean(s.Project.Paths.Components) && path.Base(f) != path.Base(s.IndexFile())
}

// addExports appends export lines for newly created component files that
// live directly in the components directory.
func (s *Service) addExports(tx *txn, files []string) ([]string, error) {
	index := s.IndexFile()
	abs := s.Workspace.Abs(index)
	current, err := afero.ReadFile(s.Workspace.Fs, abs)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("INS_READ: %s: %w", index, err)
	}
	present := map[string]struct{}{}
	for _, line := range strings.Split(string(current), "\n") {
		present[strings.TrimSpace(line)] = struct{}{}
	}
	var added []string
	for _, f := range files {
		if !s.inBarrelDir(f) {
			continue
		}
		line := ExportLine(f)
		if _, ok := present[line]; ok {
			continue
		}
		present[line] = struct{}{}
		added = append(added, line)
	}
	if len(added) == 0 {
		return nil, nil
	}
	out := string(current)
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += strings.Join(added, "\n") + "\n"
	if err := tx.write(abs, []byte(out)); err != nil {
		return nil, fmt.Errorf("INS_WRITE: %s: %w", index, err)
	}
	return added, nil
}

// dropExports removes the export lines of the given component files from
// the barrel file. It reports whether the file changed.
func (s *Service) dropExports(files []string) (bool, error) {
	abs := s.Workspace.Abs(s.IndexFile())
	current, err := afero.ReadFile(s.Workspace.Fs, abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	drop := map[string]struct{}{}
	for _, f := range files {
		drop[ExportLine(f)] = struct{}{}
	}
	lines := strings.Split(string(current), "\n")
	kept := lines[:0]
	changed := false
	for _, line := range lines {
		if _, ok := drop[strings.TrimSpace(line)]; ok {
			changed = true
			continue
		}
		kept = append(kept, line)
	}
	if !changed {
		return false, nil
	}
	return true, afero.WriteFile(s.Workspace.Fs, abs, []byte(strings.Join(kept, "\n")), 0o644)
}
