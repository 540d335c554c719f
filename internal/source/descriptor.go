package source

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

type Kind string

const (
	KindOfficial  Kind = "official"
	KindConfig    Kind = "config"
	KindGitHub    Kind = "github"
	KindHTTP      Kind = "http"
	KindNamespace Kind = "namespace"
	KindLocal     Kind = "local"
)

const (
	DefaultRef       = "main"
	unknownComponent = "unknown"
	configPrefix     = "config:"
)

var (
	githubPattern    = regexp.MustCompile(`^github:([^/]+)/([^/]+)/(.+?)(?:@([^@]+))?$`)
	namespacePattern = regexp.MustCompile(`^@([a-zA-Z0-9_-]+)/(.+)$`)
)

// Descriptor is the parsed identity of a requested resource. Only the
// fields relevant to Kind are populated.
type Descriptor struct {
	Kind      Kind   `json:"kind"`
	Component string `json:"component"`
	Owner     string `json:"owner,omitempty"`
	Repo      string `json:"repo,omitempty"`
	Ref       string `json:"ref,omitempty"`
	URL       string `json:"url,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	FilePath  string `json:"filePath,omitempty"`
}

// Parse classifies a raw identifier. It never fails: unrecognised shapes
// are treated as official registry names.
func Parse(input string) Descriptor {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, configPrefix) {
		return Descriptor{Kind: KindConfig, Component: orUnknown(strings.TrimPrefix(input, configPrefix))}
	}
	if m := githubPattern.FindStringSubmatch(input); m != nil {
		ref := m[4]
		if ref == "" {
			ref = DefaultRef
		}
		return Descriptor{Kind: KindGitHub, Owner: m[1], Repo: m[2], Component: m[3], Ref: ref}
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return Descriptor{Kind: KindHTTP, URL: input, Component: componentFromURL(input)}
	}
	if strings.HasPrefix(input, "./") || strings.HasPrefix(input, "/") || strings.HasPrefix(input, "~/") {
		return Descriptor{Kind: KindLocal, FilePath: input, Component: lastSegment(input)}
	}
	if m := namespacePattern.FindStringSubmatch(input); m != nil {
		return Descriptor{Kind: KindNamespace, Namespace: m[1], Component: m[2]}
	}
	return Descriptor{Kind: KindOfficial, Component: input}
}

// Key is the dedup and cache identity of d. Keys are prefixed by kind so
// that equal component names from different sources never collide.
func Key(d Descriptor) string {
	switch d.Kind {
	case KindConfig:
		return "config:" + d.Component
	case KindGitHub:
		ref := d.Ref
		if ref == "" {
			ref = DefaultRef
		}
		return fmt.Sprintf("github:%s/%s/%s@%s", d.Owner, d.Repo, d.Component, ref)
	case KindHTTP:
		return "http:" + d.URL
	case KindNamespace:
		return "namespace:@" + d.Namespace + "/" + d.Component
	case KindLocal:
		return "local:" + path.Clean(d.FilePath)
	default:
		return "official:" + d.Component
	}
}

// Format renders d in the identifier grammar accepted by Parse. It is what
// the lockfile records as an entry's source.
func Format(d Descriptor) string {
	switch d.Kind {
	case KindConfig:
		return configPrefix + d.Component
	case KindGitHub:
		s := fmt.Sprintf("github:%s/%s/%s", d.Owner, d.Repo, d.Component)
		if d.Ref != "" && d.Ref != DefaultRef {
			s += "@" + d.Ref
		}
		return s
	case KindHTTP:
		return d.URL
	case KindNamespace:
		return "@" + d.Namespace + "/" + d.Component
	case KindLocal:
		return d.FilePath
	default:
		return d.Component
	}
}

func (d Descriptor) String() string { return Format(d) }

func componentFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return lastSegment(u.Path)
	}
	raw = strings.SplitN(raw, "?", 2)[0]
	return lastSegment(raw)
}

func lastSegment(p string) string {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return orUnknown(strings.TrimSuffix(parts[i], ".json"))
		}
	}
	return unknownComponent
}

func orUnknown(s string) string {
	if s == "" {
		return unknownComponent
	}
	return s
}
