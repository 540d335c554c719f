package cache

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/afero"

	"aster/internal/source"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(t *testing.T) (*Store, *clock, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(fs, "/home/u/.aster/cache", DefaultTTL).WithClock(c.now), c, fs
}

func sample(name string) source.Resource {
	return source.Resource{
		Name:         name,
		Type:         source.TypeUI,
		Description:  "a " + name,
		Files:        []source.File{{Path: name + ".tsx", Content: "export {}\n", Type: source.TypeUI}},
		Dependencies: []string{"clsx"},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	res := sample("button")
	if err := store.Put("official:button", "button", res); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, ok := store.Get("official:button")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if !reflect.DeepEqual(*got, res) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, res)
	}
	if _, ok := store.Get("official:card"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestGetHonoursTTLBoundary(t *testing.T) {
	store, c, _ := newTestStore(t)
	if err := store.Put("k", "k", sample("k")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	start := c.t

	c.t = start.Add(DefaultTTL - time.Millisecond)
	if _, ok := store.Get("k"); !ok {
		t.Fatalf("entry at TTL-1ms must hit")
	}
	c.t = start.Add(DefaultTTL + time.Millisecond)
	if _, ok := store.Get("k"); ok {
		t.Fatalf("entry at TTL+1ms must miss")
	}
	entries, err := store.List()
	if err != nil || len(entries) != 1 {
		t.Fatalf("get must not delete expired entries, got %d (%v)", len(entries), err)
	}
}

func TestPutKeepsCachedAtMonotonic(t *testing.T) {
	store, c, _ := newTestStore(t)
	first := c.t
	if err := store.Put("k", "k", sample("v1")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	c.t = first.Add(-time.Hour)
	if err := store.Put("k", "k", sample("v2")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	entries, _ := store.List()
	if !entries[0].CachedAt.Equal(first) {
		t.Fatalf("cachedAt moved backwards: %s", entries[0].CachedAt)
	}
	got, ok := store.Get("k")
	if !ok || got.Name != "v2" {
		t.Fatalf("expected refreshed content, got %+v", got)
	}
}

func TestSweepExpiredAndClear(t *testing.T) {
	store, c, fs := newTestStore(t)
	_ = store.Put("old", "old", sample("old"))
	c.t = c.t.Add(DefaultTTL)
	_ = store.Put("fresh", "fresh", sample("fresh"))
	c.t = c.t.Add(time.Hour)

	removed, err := store.SweepExpired()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired entry removed, got %d", removed)
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Fatalf("fresh entry should survive sweep")
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Count != 1 || stats.Size == 0 || stats.Oldest == nil {
		t.Fatalf("unexpected stats %+v", stats)
	}

	cleared, err := store.Clear()
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 file cleared, got %d", cleared)
	}
	infos, _ := afero.ReadDir(fs, store.Root())
	if len(infos) != 0 {
		t.Fatalf("expected empty cache dir, found %d files", len(infos))
	}
	if cleared, err := store.Clear(); err != nil || cleared != 0 {
		t.Fatalf("clear on empty cache = %d, %v", cleared, err)
	}
}

func TestFileNamesDoNotCollide(t *testing.T) {
	a, b := fileName("official:a/b"), fileName("official:a_b")
	if a == b {
		t.Fatalf("distinct keys produced the same file name %q", a)
	}
	if fileName("x") != fileName("x") {
		t.Fatalf("file name must be deterministic")
	}
}

func TestKeyForScopesByStyle(t *testing.T) {
	if KeyFor("nativewind", "official:button") == KeyFor("stylesheet", "official:button") {
		t.Fatalf("styles must produce distinct cache keys")
	}
}

func TestClearLeavesForeignFiles(t *testing.T) {
	store, _, fs := newTestStore(t)
	_ = store.Put("official:card", "card", sample("card"))
	foreign := []string{"notes.txt", "settings.json", "backup-1.json"}
	for _, name := range foreign {
		_ = afero.WriteFile(fs, store.Root()+"/"+name, []byte("keep"), 0o644)
	}
	orphan := fileName("official:gone")
	_ = afero.WriteFile(fs, store.Root()+"/"+orphan, []byte("{}"), 0o644)

	cleared, err := store.Clear()
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("expected indexed and orphaned entry removed, got %d", cleared)
	}
	for _, name := range foreign {
		if ok, _ := afero.Exists(fs, store.Root()+"/"+name); !ok {
			t.Fatalf("%s was deleted", name)
		}
	}
	for _, name := range []string{orphan, fileName("official:card"), indexFile} {
		if ok, _ := afero.Exists(fs, store.Root()+"/"+name); ok {
			t.Fatalf("%s should be gone", name)
		}
	}
}
