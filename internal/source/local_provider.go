package source

import (
	"context"

	"github.com/spf13/afero"

	"aster/internal/workspace"
)

type localProvider struct {
	ws *workspace.Workspace
}

func (p *localProvider) Fetch(_ context.Context, d Descriptor, _ Request) (Resource, error) {
	if p.ws == nil {
		return Resource{}, newFetchError(ErrConfig, d.FilePath, "no workspace for local reads")
	}
	path := p.ws.Abs(d.FilePath)
	raw, err := afero.ReadFile(p.ws.Fs, path)
	if err != nil {
		return Resource{}, &FetchError{Kind: ErrLocalRead, Source: d.FilePath, Err: err}
	}
	res, err := decodeResource(raw, d.FilePath, d.Component, TypeUI)
	if err != nil {
		return Resource{}, &FetchError{Kind: ErrLocalRead, Source: d.FilePath, Detail: path, Err: err}
	}
	return res, nil
}
