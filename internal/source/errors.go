package source

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNetwork         = errors.New("network failure")
	ErrConfig          = errors.New("configuration missing")
	ErrAuth            = errors.New("authentication failed")
	ErrLocalRead       = errors.New("local read failed")
	ErrInvalidResource = errors.New("invalid resource")
)

var errorCodes = map[error]string{
	ErrNotFound:        "SRC_NOT_FOUND",
	ErrNetwork:         "SRC_NETWORK",
	ErrConfig:          "SRC_CONFIG",
	ErrAuth:            "SRC_AUTH",
	ErrLocalRead:       "SRC_LOCAL_READ",
	ErrInvalidResource: "SRC_INVALID_RESOURCE",
}

// FetchError describes a failed fetch. Kind is one of the Err* sentinels so
// callers can branch with errors.Is.
type FetchError struct {
	Kind   error
	Source string
	Status int
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	code, ok := errorCodes[e.Kind]
	if !ok {
		code = "SRC_FETCH"
	}
	b.WriteString(code)
	b.WriteString(": ")
	b.WriteString(e.Source)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Is(target error) bool { return target == e.Kind }

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(kind error, source, detail string) *FetchError {
	return &FetchError{Kind: kind, Source: source, Detail: detail}
}

// statusError maps a non-2xx HTTP status to the error taxonomy.
func statusError(source string, status int, body []byte) *FetchError {
	kind := ErrNetwork
	switch status {
	case 404:
		kind = ErrNotFound
	case 401:
		kind = ErrAuth
	}
	return &FetchError{Kind: kind, Source: source, Status: status, Detail: remoteMessage(body)}
}
