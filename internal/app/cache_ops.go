package app

import (
	"fmt"
	"time"

	"aster/internal/cache"
)

type CacheEntryView struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	CachedAt time.Time `json:"cachedAt"`
	Expired  bool      `json:"expired"`
}

type CacheStatus struct {
	Enabled bool             `json:"enabled"`
	Dir     string           `json:"dir"`
	TTL     string           `json:"ttl"`
	Count   int              `json:"count"`
	Size    int64            `json:"size"`
	Oldest  *time.Time       `json:"oldest,omitempty"`
	Entries []CacheEntryView `json:"entries"`
}

func (s *Service) CacheStatus() (CacheStatus, error) {
	st := CacheStatus{
		Enabled: s.Cache != nil,
		Dir:     s.Workspace.CacheRoot,
		TTL:     s.Config.Cache.TTLDuration().String(),
		Entries: []CacheEntryView{},
	}
	if s.Cache == nil {
		return st, nil
	}
	stats, err := s.Cache.Stats()
	if err != nil {
		return st, err
	}
	st.Count, st.Size, st.Oldest = stats.Count, stats.Size, stats.Oldest
	entries, err := s.Cache.List()
	if err != nil {
		return st, err
	}
	for _, e := range entries {
		st.Entries = append(st.Entries, CacheEntryView{
			Key:      e.Key,
			Name:     e.Name,
			Source:   e.Source,
			CachedAt: e.CachedAt,
			Expired:  s.Cache.Expired(e),
		})
	}
	return st, nil
}

// CacheClean removes expired entries.
func (s *Service) CacheClean() (int, error) {
	return s.cacheOp("cache.clean", (*cache.Store).SweepExpired)
}

// CacheClear removes every entry.
func (s *Service) CacheClear() (int, error) {
	return s.cacheOp("cache.clear", (*cache.Store).Clear)
}

func (s *Service) cacheOp(name string, fn func(*cache.Store) (int, error)) (int, error) {
	if s.Cache == nil {
		return 0, nil
	}
	op := s.Audit.Begin(name, nil)
	n, err := fn(s.Cache)
	if err != nil {
		op.Fail(err)
		return n, err
	}
	op.Commit(fmt.Sprintf("removed=%d", n), nil)
	return n, nil
}
