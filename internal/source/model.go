package source

import (
	"context"
	"strings"

	"aster/internal/config"
)

const (
	TypeUI     = "registry:ui"
	TypeHook   = "registry:hook"
	TypeLib    = "registry:lib"
	TypeConfig = "registry:config"

	typePrefix = "registry:"
)

// Resource is one installable registry item.
type Resource struct {
	Name                 string      `json:"name"`
	Type                 string      `json:"type"`
	Description          string      `json:"description,omitempty"`
	Version              string      `json:"version,omitempty"`
	Files                []File      `json:"files"`
	Dependencies         []string    `json:"dependencies,omitempty"`
	DevDependencies      []string    `json:"devDependencies,omitempty"`
	RegistryDependencies []string    `json:"registryDependencies,omitempty"`
	Transforms           []Transform `json:"transforms,omitempty"`
	PostInstall          []string    `json:"postInstall,omitempty"`
}

type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Target  string `json:"target,omitempty"`
}

// Transform mutates an existing project file after a config bundle is
// written. Exactly one of Merge or Append is expected.
type Transform struct {
	File   string         `json:"file"`
	Merge  map[string]any `json:"merge,omitempty"`
	Append *AppendOp      `json:"append,omitempty"`
}

type AppendOp struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// IndexItem is one row of the official registry index.
type IndexItem struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Description          string   `json:"description,omitempty"`
	Dependencies         []string `json:"dependencies,omitempty"`
	RegistryDependencies []string `json:"registryDependencies,omitempty"`
}

// Request carries the per-invocation context every fetcher receives.
type Request struct {
	Style     string
	Framework string
	Project   *config.ProjectConfig
}

type Fetcher interface {
	Fetch(ctx context.Context, d Descriptor, req Request) (Resource, error)
}

// NormalizeType adds the "registry:" prefix to bare type names.
func NormalizeType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" || strings.HasPrefix(t, typePrefix) {
		return t
	}
	return typePrefix + t
}

// ShortType strips the "registry:" prefix.
func ShortType(t string) string {
	return strings.TrimPrefix(t, typePrefix)
}

func (r Resource) IsConfig() bool {
	return NormalizeType(r.Type) == TypeConfig
}

// normalize fills file types from the resource type and canonicalises
// type names. defaultType applies when the document declares none.
func (r Resource) normalize(fallbackName, defaultType string) Resource {
	if r.Name == "" {
		r.Name = fallbackName
	}
	r.Type = NormalizeType(r.Type)
	if r.Type == "" {
		r.Type = defaultType
	}
	for i := range r.Files {
		r.Files[i].Type = NormalizeType(r.Files[i].Type)
		if r.Files[i].Type == "" {
			r.Files[i].Type = r.Type
		}
	}
	return r
}
