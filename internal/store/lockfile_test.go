package store

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestLoadMissingReturnsEmpty(t *testing.T) {
	lock, err := Load(afero.NewMemMapFs(), "/proj/aster.lock")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if lock.LockfileVersion != LockVersion || lock.Len() != 0 {
		t.Fatalf("expected empty v1 lockfile, got %+v", lock)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	lock := New()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	lock.Record(SectionComponents, Entry{Name: "button", Version: "1.2.0", InstalledAt: at, Source: "button", Files: []string{"components/ui/button.tsx"}})
	lock.Record(SectionConfigs, Entry{Name: "eslint", Version: "1", InstalledAt: at, Source: "config:eslint", Files: []string{"eslint.config.js"}})
	if err := Save(fs, "/proj/aster.lock", lock); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	blob, _ := afero.ReadFile(fs, "/proj/aster.lock")
	var raw map[string]any
	if err := json.Unmarshal(blob, &raw); err != nil {
		t.Fatalf("lockfile should be JSON: %v", err)
	}
	if raw["lockfileVersion"] != float64(1) {
		t.Fatalf("expected lockfileVersion 1, got %v", raw["lockfileVersion"])
	}

	loaded, err := Load(fs, "/proj/aster.lock")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	sec, e, ok := loaded.Lookup("eslint")
	if !ok || sec != SectionConfigs || e.Files[0] != "eslint.config.js" || !e.InstalledAt.Equal(at) {
		t.Fatalf("unexpected eslint entry %s %+v", sec, e)
	}
	if names := loaded.Names(SectionComponents); len(names) != 1 || names[0] != "button" {
		t.Fatalf("unexpected component names %v", names)
	}
}

func TestRemove(t *testing.T) {
	lock := New()
	lock.Record(SectionComponents, Entry{Name: "button", Source: "button", Files: []string{"a"}})
	sec, e, ok := lock.Remove("button")
	if !ok || sec != SectionComponents || e.Files[0] != "a" {
		t.Fatalf("unexpected remove result %s %+v %v", sec, e, ok)
	}
	if _, _, ok := lock.Remove("button"); ok {
		t.Fatalf("second remove should report missing")
	}
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"DOC_LOCK_PARSE":   "{",
		"DOC_LOCK_VERSION": `{"lockfileVersion": 2}`,
		"DOC_LOCK_SCHEMA":  `{"lockfileVersion": 1, "components": {"x": {"files": []}}}`,
	}
	for code, body := range cases {
		fs := afero.NewMemMapFs()
		_ = afero.WriteFile(fs, "/aster.lock", []byte(body), 0o644)
		_, err := Load(fs, "/aster.lock")
		if err == nil || !strings.HasPrefix(err.Error(), code) {
			t.Fatalf("expected %s error, got %v", code, err)
		}
	}
}
