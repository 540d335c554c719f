package source

import (
	"context"
	"net/http"
	"time"
)

type httpProvider struct {
	client  *http.Client
	timeout time.Duration
}

func (p *httpProvider) Fetch(ctx context.Context, d Descriptor, req Request) (Resource, error) {
	source := Format(d)
	status, body, err := get(ctx, p.client, withStyle(d.URL, req.Style), nil, p.timeout)
	if err != nil {
		return Resource{}, &FetchError{Kind: ErrNetwork, Source: source, Err: err}
	}
	if !isSuccess(status) {
		return Resource{}, statusError(source, status, body)
	}
	return decodeResource(body, source, d.Component, TypeUI)
}
