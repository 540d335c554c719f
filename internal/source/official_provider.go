package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"aster/internal/config"
)

type officialProvider struct {
	client  *http.Client
	bases   []string
	retries int
	backoff time.Duration
	timeout time.Duration
	index   *gocache.Cache
}

func (p *officialProvider) Fetch(ctx context.Context, d Descriptor, req Request) (Resource, error) {
	typ, defaultType := "ui", TypeUI
	if d.Kind == KindConfig {
		typ, defaultType = "config", TypeConfig
	}
	source := Format(d)
	body, err := p.getWithRetry(ctx, source, "/"+escapeSegments(d.Component), p.query(req, typ))
	if err != nil {
		return Resource{}, err
	}
	return decodeResource(body, source, d.Component, defaultType)
}

// Index returns the registry listing for typ, memoized per query.
func (p *officialProvider) Index(ctx context.Context, req Request, typ string) ([]IndexItem, error) {
	if typ == "" {
		typ = "ui"
	}
	q := p.query(req, typ)
	key := q.Encode()
	if cached, ok := p.index.Get(key); ok {
		return append([]IndexItem(nil), cached.([]IndexItem)...), nil
	}
	body, err := p.getWithRetry(ctx, "registry index", "", q)
	if err != nil {
		return nil, err
	}
	var items []IndexItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &FetchError{Kind: ErrInvalidResource, Source: "registry index", Err: err}
	}
	for i := range items {
		items[i].Type = NormalizeType(items[i].Type)
	}
	p.index.Set(key, items, gocache.DefaultExpiration)
	return append([]IndexItem(nil), items...), nil
}

func (p *officialProvider) query(req Request, typ string) url.Values {
	framework := req.Framework
	if framework == "" && req.Project != nil {
		framework = req.Project.Framework
	}
	if framework == "" {
		framework = config.DefaultFramework
	}
	q := url.Values{}
	q.Set("framework", framework)
	q.Set("type", typ)
	if req.Style != "" {
		q.Set("style", req.Style)
	}
	return q
}

// getWithRetry walks the base URL list. Transport failures and 5xx answers
// are retried with linear backoff; 404 and 400 end the fetch immediately.
func (p *officialProvider) getWithRetry(ctx context.Context, source, suffix string, q url.Values) ([]byte, error) {
	var lastErr error
	for _, base := range p.bases {
		target := strings.TrimRight(base, "/") + suffix
		if enc := q.Encode(); enc != "" {
			target += "?" + enc
		}
		for attempt := 0; attempt < p.retries; attempt++ {
			status, body, err := get(ctx, p.client, target, nil, p.timeout)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return nil, &FetchError{Kind: ErrNetwork, Source: source, Err: ctx.Err()}
				}
				lastErr = &FetchError{Kind: ErrNetwork, Source: source, Detail: target, Err: err}
			case isSuccess(status):
				return body, nil
			case status == http.StatusNotFound:
				fe := statusError(source, status, body)
				if fe.Detail == "" {
					fe.Detail = "not found in official registry"
				}
				return nil, fe
			case status == http.StatusBadRequest:
				return nil, &FetchError{Kind: ErrConfig, Source: source, Status: status, Detail: remoteMessage(body)}
			default:
				lastErr = statusError(source, status, body)
			}
			if attempt < p.retries-1 {
				if err := sleep(ctx, p.backoff*time.Duration(attempt+1)); err != nil {
					return nil, &FetchError{Kind: ErrNetwork, Source: source, Err: err}
				}
			}
		}
	}
	if lastErr == nil {
		lastErr = newFetchError(ErrNetwork, source, "no registry url configured")
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func escapeSegments(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
