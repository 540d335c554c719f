package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type namespaceProvider struct {
	client    *http.Client
	timeout   time.Duration
	lookupEnv func(string) (string, bool)
}

func (p *namespaceProvider) Fetch(ctx context.Context, d Descriptor, req Request) (Resource, error) {
	source := Format(d)
	name := "@" + d.Namespace
	if req.Project == nil {
		return Resource{}, newFetchError(ErrConfig, source, "aster.json is required to resolve namespaced components")
	}
	entry, ok := req.Project.Registry(name)
	if !ok {
		hint := fmt.Sprintf(`registry %q is not configured; add "registries": {%q: "https://example.com/r/{name}.json"} to aster.json`, name, name)
		return Resource{}, newFetchError(ErrConfig, source, hint)
	}
	target, err := RegistryURL(entry.URL, d.Component, req.Style)
	if err != nil {
		return Resource{}, &FetchError{Kind: ErrConfig, Source: source, Detail: "invalid registry url for " + name, Err: err}
	}
	status, body, err := get(ctx, p.client, target, p.expandHeaders(entry.Headers), p.timeout)
	if err != nil {
		return Resource{}, &FetchError{Kind: ErrNetwork, Source: source, Err: err}
	}
	switch {
	case status == http.StatusUnauthorized:
		fe := statusError(source, status, body)
		fe.Detail = strings.TrimSpace("registry " + name + " rejected the configured credentials. " + fe.Detail)
		return Resource{}, fe
	case !isSuccess(status):
		return Resource{}, statusError(source, status, body)
	}
	return decodeResource(body, source, d.Component, TypeUI)
}

// RegistryURL builds the request URL for component from a namespace
// registry entry. A template containing {name} has its {name} and {style}
// tokens substituted; any other URL is a base to which "/<name>" is
// appended. The style query parameter is added when the template does not
// already place the style.
func RegistryURL(template, component, style string) (string, error) {
	if strings.Contains(template, "{name}") {
		out := strings.ReplaceAll(template, "{name}", component)
		if strings.Contains(out, "{style}") {
			return strings.ReplaceAll(out, "{style}", style), nil
		}
		if _, err := url.Parse(out); err != nil {
			return "", err
		}
		return withStyle(out, style), nil
	}
	hasStyle := strings.Contains(template, "{style}")
	u, err := url.Parse(strings.ReplaceAll(template, "{style}", style))
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + component
	if hasStyle {
		return u.String(), nil
	}
	return withStyle(u.String(), style), nil
}

func (p *namespaceProvider) expandHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = envRef.ReplaceAllStringFunc(v, func(ref string) string {
			val, _ := p.lookupEnv(envRef.FindStringSubmatch(ref)[1])
			return val
		})
	}
	return out
}
