package workspace

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestPathsAreDerivedFromCwdAndHome(t *testing.T) {
	ws := New(afero.NewMemMapFs(), "/proj", "/home/u", "")
	if got, want := ws.CacheRoot, filepath.Join("/home/u", ".aster", "cache"); got != want {
		t.Fatalf("cache root = %q, want %q", got, want)
	}
	if got, want := ws.LockfilePath(), filepath.Join("/proj", "aster.lock"); got != want {
		t.Fatalf("lockfile = %q, want %q", got, want)
	}
	if got, want := ws.ProjectConfigPath(), filepath.Join("/proj", "aster.json"); got != want {
		t.Fatalf("project config = %q, want %q", got, want)
	}
}

func TestAbsAndRel(t *testing.T) {
	ws := New(afero.NewMemMapFs(), "/proj", "/home/u", "/tmp/cache")
	cases := []struct {
		in      string
		wantAbs string
		wantRel string
	}{
		{"components/ui/button.tsx", "/proj/components/ui/button.tsx", "components/ui/button.tsx"},
		{"./lib/utils.ts", "/proj/lib/utils.ts", "lib/utils.ts"},
		{"~/x.json", "/home/u/x.json", "/home/u/x.json"},
		{"/proj/a.ts", "/proj/a.ts", "a.ts"},
	}
	for _, tc := range cases {
		if got := filepath.ToSlash(ws.Abs(tc.in)); got != tc.wantAbs {
			t.Fatalf("Abs(%q) = %q, want %q", tc.in, got, tc.wantAbs)
		}
		if got := ws.Rel(tc.in); got != tc.wantRel {
			t.Fatalf("Rel(%q) = %q, want %q", tc.in, got, tc.wantRel)
		}
	}
}
