// Package cache is the disk-backed resource cache shared by every CLI
// invocation. Entries expire after a fixed TTL measured from cachedAt.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"aster/internal/fsutil"
	"aster/internal/source"
)

const (
	IndexVersion = "1.0"
	indexFile    = "index.json"
	DefaultTTL   = 7 * 24 * time.Hour
)

type Entry struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	CachedAt time.Time `json:"cachedAt"`
	FilePath string    `json:"filePath"`
}

type index struct {
	Version string           `json:"version"`
	Items   map[string]Entry `json:"items"`
}

type Stats struct {
	Count  int        `json:"count"`
	Size   int64      `json:"size"`
	Oldest *time.Time `json:"oldest,omitempty"`
}

type Store struct {
	fs   afero.Fs
	root string
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

func New(fs afero.Fs, root string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{fs: fs, root: root, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Root() string { return s.root }

func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns the cached resource for key. Expired or unreadable entries
// are reported as a miss and left on disk.
func (s *Store) Get(key string) (*source.Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return nil, false
	}
	entry, ok := idx.Items[key]
	if !ok || s.expired(entry) {
		return nil, false
	}
	blob, err := afero.ReadFile(s.fs, filepath.Join(s.root, entry.FilePath))
	if err != nil {
		return nil, false
	}
	var res source.Resource
	if err := json.Unmarshal(blob, &res); err != nil {
		return nil, false
	}
	return &res, true
}

// Put stores res under key, replacing any previous entry.
func (s *Store) Put(key, src string, res source.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		idx = index{Version: IndexVersion, Items: map[string]Entry{}}
	}
	blob, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("CACHE_ENCODE: %w", err)
	}
	name := fileName(key)
	if err := fsutil.AtomicWrite(s.fs, filepath.Join(s.root, name), blob, 0o644); err != nil {
		return fmt.Errorf("CACHE_WRITE: %w", err)
	}
	cachedAt := s.now().UTC()
	if prev, ok := idx.Items[key]; ok && prev.CachedAt.After(cachedAt) {
		cachedAt = prev.CachedAt
	}
	idx.Items[key] = Entry{Key: key, Name: res.Name, Source: src, CachedAt: cachedAt, FilePath: name}
	return s.saveIndex(idx)
}

// SweepExpired deletes expired entries and returns how many were removed.
func (s *Store) SweepExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return 0, err
	}
	var errs error
	removed := 0
	for key, entry := range idx.Items {
		if !s.expired(entry) {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.root, entry.FilePath)); err != nil && !os.IsNotExist(err) {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		delete(idx.Items, key)
		removed++
	}
	if removed > 0 {
		if err := s.saveIndex(idx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return removed, errs
}

// Clear deletes the indexed entry files, any orphaned entry files and the
// index itself, and returns the number of entry files removed. Other files
// in the cache directory are left alone.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	targets := map[string]struct{}{}
	if idx, err := s.loadIndex(); err == nil {
		for _, entry := range idx.Items {
			if entry.FilePath != "" && filepath.Base(entry.FilePath) == entry.FilePath {
				targets[entry.FilePath] = struct{}{}
			}
		}
	}
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("CACHE_READ: %w", err)
	}
	for _, info := range infos {
		if !info.IsDir() && entryFilePattern.MatchString(info.Name()) {
			targets[info.Name()] = struct{}{}
		}
	}
	var errs error
	removed := 0
	for name := range targets {
		if err := s.fs.Remove(filepath.Join(s.root, name)); err != nil {
			if !os.IsNotExist(err) {
				errs = multierror.Append(errs, err)
			}
			continue
		}
		removed++
	}
	if err := s.fs.Remove(filepath.Join(s.root, indexFile)); err != nil && !os.IsNotExist(err) {
		errs = multierror.Append(errs, err)
	}
	return removed, errs
}

func (s *Store) Stats() (Stats, error) {
	entries, err := s.List()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Count: len(entries)}
	for i := range entries {
		if info, err := s.fs.Stat(filepath.Join(s.root, entries[i].FilePath)); err == nil {
			st.Size += info.Size()
		}
		if st.Oldest == nil || entries[i].CachedAt.Before(*st.Oldest) {
			at := entries[i].CachedAt
			st.Oldest = &at
		}
	}
	return st, nil
}

// List returns all indexed entries, oldest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(idx.Items))
	for _, e := range idx.Items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CachedAt.Equal(out[j].CachedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].CachedAt.Before(out[j].CachedAt)
	})
	return out, nil
}

// Expired reports whether e is older than the store TTL.
func (s *Store) Expired(e Entry) bool { return s.expired(e) }

func (s *Store) expired(e Entry) bool {
	return s.now().Sub(e.CachedAt) > s.ttl
}

func (s *Store) loadIndex() (index, error) {
	blob, err := afero.ReadFile(s.fs, filepath.Join(s.root, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return index{Version: IndexVersion, Items: map[string]Entry{}}, nil
		}
		return index{}, fmt.Errorf("CACHE_READ: %w", err)
	}
	var idx index
	if err := json.Unmarshal(blob, &idx); err != nil {
		return index{}, fmt.Errorf("CACHE_INDEX_PARSE: %w", err)
	}
	if idx.Items == nil {
		idx.Items = map[string]Entry{}
	}
	return idx, nil
}

func (s *Store) saveIndex(idx index) error {
	idx.Version = IndexVersion
	blob, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("CACHE_ENCODE: %w", err)
	}
	if err := fsutil.AtomicWrite(s.fs, filepath.Join(s.root, indexFile), blob, 0o644); err != nil {
		return fmt.Errorf("CACHE_WRITE: %w", err)
	}
	return nil
}

// fileName derives a readable, collision-free file name for key.
// entryFilePattern matches names produced by fileName.
var entryFilePattern = regexp.MustCompile(`-[0-9a-f]{12}\.json$`)

func fileName(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "@", "_", "?", "_", "&", "_", "=", "_", " ", "-")
	readable := r.Replace(key)
	if len(readable) > 80 {
		readable = readable[:80]
	}
	sum := sha256.Sum256([]byte(key))
	return readable + "-" + hex.EncodeToString(sum[:])[:12] + ".json"
}

// KeyFor scopes a source key by style, since the same component renders
// differently per style.
func KeyFor(style, sourceKey string) string {
	if style == "" {
		return sourceKey
	}
	return style + "|" + sourceKey
}
