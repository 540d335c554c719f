package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent    = "aster-cli"
	maxBodyBytes = 8 << 20
)

// get performs a single GET bounded by timeout and returns the status and
// body. Transport failures (including timeouts) are returned as errors.
func get(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, timeout time.Duration) (int, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// withStyle injects the style query parameter unless one is present.
func withStyle(rawURL, style string) string {
	if style == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("style") {
		return rawURL
	}
	q.Set("style", style)
	u.RawQuery = q.Encode()
	return u.String()
}

// remoteMessage extracts {"error": "..."} or {"message": "..."} from a
// non-2xx body, falling back to short plain text.
func remoteMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" || len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

// decodeResource validates raw against the resource schema and decodes it.
func decodeResource(raw []byte, source, fallbackName, defaultType string) (Resource, error) {
	issues, err := ValidateResource(raw)
	if err != nil {
		return Resource{}, &FetchError{Kind: ErrInvalidResource, Source: source, Err: err}
	}
	if len(issues) > 0 {
		parts := make([]string, 0, len(issues))
		for _, is := range issues {
			parts = append(parts, is.String())
		}
		return Resource{}, newFetchError(ErrInvalidResource, source, strings.Join(parts, "; "))
	}
	var res Resource
	if err := json.Unmarshal(raw, &res); err != nil {
		return Resource{}, &FetchError{Kind: ErrInvalidResource, Source: source, Err: fmt.Errorf("decode: %w", err)}
	}
	return res.normalize(fallbackName, defaultType), nil
}
