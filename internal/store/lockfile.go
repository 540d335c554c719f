package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/afero"

	"aster/internal/fsutil"
)

func New() Lockfile {
	return Lockfile{LockfileVersion: LockVersion, Components: map[string]Entry{}, Configs: map[string]Entry{}}
}

// Load reads aster.lock. A missing file yields an empty lockfile.
func Load(fs afero.Fs, path string) (Lockfile, error) {
	blob, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return Lockfile{}, fmt.Errorf("DOC_LOCK_READ: %w", err)
	}
	var lock Lockfile
	if err := json.Unmarshal(blob, &lock); err != nil {
		return Lockfile{}, fmt.Errorf("DOC_LOCK_PARSE: %w", err)
	}
	if lock.LockfileVersion == 0 {
		lock.LockfileVersion = LockVersion
	}
	if lock.LockfileVersion != LockVersion {
		return Lockfile{}, fmt.Errorf("DOC_LOCK_VERSION: unsupported version %d", lock.LockfileVersion)
	}
	if lock.Components == nil {
		lock.Components = map[string]Entry{}
	}
	if lock.Configs == nil {
		lock.Configs = map[string]Entry{}
	}
	for _, sec := range []Section{SectionComponents, SectionConfigs} {
		for name, e := range lock.section(sec) {
			if e.Source == "" {
				return Lockfile{}, fmt.Errorf("DOC_LOCK_SCHEMA: %s entry %q has no source", sec, name)
			}
		}
	}
	return lock, nil
}

func Save(fs afero.Fs, path string, lock Lockfile) error {
	lock.LockfileVersion = LockVersion
	if lock.Components == nil {
		lock.Components = map[string]Entry{}
	}
	if lock.Configs == nil {
		lock.Configs = map[string]Entry{}
	}
	blob, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("DOC_LOCK_ENCODE: %w", err)
	}
	if err := fsutil.AtomicWrite(fs, path, append(blob, '\n'), 0o644); err != nil {
		return fmt.Errorf("DOC_LOCK_WRITE: %w", err)
	}
	return nil
}

func (l *Lockfile) section(sec Section) map[string]Entry {
	if sec == SectionConfigs {
		if l.Configs == nil {
			l.Configs = map[string]Entry{}
		}
		return l.Configs
	}
	if l.Components == nil {
		l.Components = map[string]Entry{}
	}
	return l.Components
}

// Record inserts or overwrites the entry for name in sec.
func (l *Lockfile) Record(sec Section, e Entry) {
	l.section(sec)[e.Name] = e
}

// Lookup finds name in components first, then configs.
func (l *Lockfile) Lookup(name string) (Section, Entry, bool) {
	for _, sec := range []Section{SectionComponents, SectionConfigs} {
		if e, ok := l.section(sec)[name]; ok {
			return sec, e, true
		}
	}
	return "", Entry{}, false
}

func (l *Lockfile) Remove(name string) (Section, Entry, bool) {
	sec, e, ok := l.Lookup(name)
	if !ok {
		return "", Entry{}, false
	}
	delete(l.section(sec), name)
	return sec, e, true
}

// Names returns the sorted entry names of sec.
func (l *Lockfile) Names(sec Section) []string {
	m := l.section(sec)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Lockfile) Len() int {
	return len(l.Components) + len(l.Configs)
}
