package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type githubProvider struct {
	client       *http.Client
	rawBase      string
	defaultStyle string
	timeout      time.Duration
}

// githubRegistry is the registry.json document at the root of a repo.
type githubRegistry struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	Components  map[string]githubComponent `json:"components"`
}

type githubComponent struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Description          string   `json:"description,omitempty"`
	Files                []string `json:"files"`
	Dependencies         []string `json:"dependencies,omitempty"`
	DevDependencies      []string `json:"devDependencies,omitempty"`
	RegistryDependencies []string `json:"registryDependencies,omitempty"`
}

func (p *githubProvider) Fetch(ctx context.Context, d Descriptor, req Request) (Resource, error) {
	source := Format(d)
	ref := d.Ref
	if ref == "" {
		ref = DefaultRef
	}
	base := fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(p.rawBase, "/"), d.Owner, d.Repo, ref)
	reg, err := p.registry(ctx, base, source, ref)
	if err != nil {
		return Resource{}, err
	}
	comp, ok := reg.Components[d.Component]
	if !ok {
		names := make([]string, 0, len(reg.Components))
		for name := range reg.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		return Resource{}, newFetchError(ErrNotFound, source, fmt.Sprintf("component %q not in registry.json (available: %s)", d.Component, strings.Join(names, ", ")))
	}

	style := req.Style
	if style == "" {
		style = p.defaultStyle
	}
	fileType := NormalizeType(comp.Type)
	files := make([]File, len(comp.Files))
	g, gctx := errgroup.WithContext(ctx)
	for i, filePath := range comp.Files {
		g.Go(func() error {
			content, err := p.file(gctx, base, style, filePath, source)
			if err != nil {
				return err
			}
			files[i] = File{Path: filePath, Content: content, Type: fileType}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Resource{}, err
	}

	name := comp.Name
	if name == "" {
		name = d.Component
	}
	return Resource{
		Name:                 name,
		Type:                 fileType,
		Description:          comp.Description,
		Files:                files,
		Dependencies:         comp.Dependencies,
		DevDependencies:      comp.DevDependencies,
		RegistryDependencies: comp.RegistryDependencies,
	}, nil
}

func (p *githubProvider) registry(ctx context.Context, base, source, ref string) (githubRegistry, error) {
	status, body, err := get(ctx, p.client, base+"/registry.json", nil, p.timeout)
	if err != nil {
		return githubRegistry{}, &FetchError{Kind: ErrNetwork, Source: source, Err: err}
	}
	if status == http.StatusNotFound {
		return githubRegistry{}, &FetchError{Kind: ErrNotFound, Source: source, Status: status, Detail: "registry.json not found at ref " + ref}
	}
	if !isSuccess(status) {
		return githubRegistry{}, statusError(source, status, body)
	}
	var reg githubRegistry
	if err := json.Unmarshal(body, &reg); err != nil {
		return githubRegistry{}, &FetchError{Kind: ErrInvalidResource, Source: source, Detail: "registry.json", Err: err}
	}
	return reg, nil
}

// file fetches {style}/{path}, retrying once under the default style when
// a non-default style is missing the file.
func (p *githubProvider) file(ctx context.Context, base, style, filePath, source string) (string, error) {
	status, body, err := p.raw(ctx, base+"/"+style+"/"+filePath)
	if err != nil {
		return "", &FetchError{Kind: ErrNetwork, Source: source, Detail: filePath, Err: err}
	}
	if status == http.StatusNotFound && style != p.defaultStyle {
		status, body, err = p.raw(ctx, base+"/"+p.defaultStyle+"/"+filePath)
		if err != nil {
			return "", &FetchError{Kind: ErrNetwork, Source: source, Detail: filePath, Err: err}
		}
	}
	if status == http.StatusNotFound {
		return "", &FetchError{Kind: ErrNotFound, Source: source, Status: status, Detail: "file " + filePath + " not found"}
	}
	if !isSuccess(status) {
		return "", statusError(source, status, body)
	}
	return string(body), nil
}

func (p *githubProvider) raw(ctx context.Context, target string) (int, []byte, error) {
	return get(ctx, p.client, target, map[string]string{"Accept": "*/*"}, p.timeout)
}
