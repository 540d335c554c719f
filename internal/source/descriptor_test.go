package source

import "testing"

func TestParseClassification(t *testing.T) {
	tests := []struct {
		input string
		want  Descriptor
	}{
		{"button", Descriptor{Kind: KindOfficial, Component: "button"}},
		{"config:eslint", Descriptor{Kind: KindConfig, Component: "eslint"}},
		{"github:acme/widgets/card@v2", Descriptor{Kind: KindGitHub, Owner: "acme", Repo: "widgets", Component: "card", Ref: "v2"}},
		{"github:acme/widgets/card", Descriptor{Kind: KindGitHub, Owner: "acme", Repo: "widgets", Component: "card", Ref: "main"}},
		{"github:acme/widgets/forms/input@dev", Descriptor{Kind: KindGitHub, Owner: "acme", Repo: "widgets", Component: "forms/input", Ref: "dev"}},
		{"https://x.dev/r/button.json?style=a", Descriptor{Kind: KindHTTP, URL: "https://x.dev/r/button.json?style=a", Component: "button"}},
		{"http://x.dev/r/card/", Descriptor{Kind: KindHTTP, URL: "http://x.dev/r/card/", Component: "card"}},
		{"https://x.dev", Descriptor{Kind: KindHTTP, URL: "https://x.dev", Component: "unknown"}},
		{"./local/badge.json", Descriptor{Kind: KindLocal, FilePath: "./local/badge.json", Component: "badge"}},
		{"~/aster/chip.json", Descriptor{Kind: KindLocal, FilePath: "~/aster/chip.json", Component: "chip"}},
		{"/abs/path/tile.json", Descriptor{Kind: KindLocal, FilePath: "/abs/path/tile.json", Component: "tile"}},
		{"@acme/button", Descriptor{Kind: KindNamespace, Namespace: "acme", Component: "button"}},
		{"@acme/forms/input", Descriptor{Kind: KindNamespace, Namespace: "acme", Component: "forms/input"}},
		{"github:broken", Descriptor{Kind: KindOfficial, Component: "github:broken"}},
		{"@bad ns/x", Descriptor{Kind: KindOfficial, Component: "@bad ns/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Parse(tt.input); got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyDistinguishesKinds(t *testing.T) {
	inputs := []string{"button", "config:button", "@acme/button", "./button.json", "https://x.dev/button.json", "github:a/b/button"}
	seen := map[string]string{}
	for _, in := range inputs {
		k := Key(Parse(in))
		if prev, ok := seen[k]; ok {
			t.Fatalf("inputs %q and %q share key %q", prev, in, k)
		}
		seen[k] = in
	}
}

func TestKeyIsStableForEquivalentInputs(t *testing.T) {
	pairs := [][2]string{
		{"github:acme/widgets/card", "github:acme/widgets/card@main"},
		{"./a/../badge.json", "./badge.json"},
		{" button ", "button"},
	}
	for _, p := range pairs {
		if a, b := Key(Parse(p[0])), Key(Parse(p[1])); a != b {
			t.Fatalf("expected %q and %q to share a key, got %q vs %q", p[0], p[1], a, b)
		}
	}
	if Key(Parse("github:acme/widgets/card@v1")) == Key(Parse("github:acme/widgets/card@v2")) {
		t.Fatalf("refs must produce distinct keys")
	}
}

func TestFormatRoundTripsThroughParse(t *testing.T) {
	for _, in := range []string{"button", "config:eslint", "github:acme/widgets/card@v2", "github:acme/widgets/card", "https://x.dev/r/a.json", "@acme/b", "./c.json"} {
		d := Parse(in)
		if got := Key(Parse(Format(d))); got != Key(d) {
			t.Fatalf("Format round trip for %q: key %q, want %q", in, got, Key(d))
		}
	}
	if got := Format(Parse("github:acme/widgets/card@main")); got != "github:acme/widgets/card" {
		t.Fatalf("default ref should be omitted, got %q", got)
	}
}
