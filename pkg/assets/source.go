// Package assets loads catalog images (preset backgrounds and border
// overlays) from a directory or an HTTP base URL and decodes them off the
// caller's goroutine.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when a source has no asset under the key.
var ErrNotFound = errors.New("asset not found")

// Source opens asset keys such as "images/border/blue-fb-wide.png".
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewSource returns an HTTP source for http(s) locations and a directory
// source otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location)
	}
	return Dir(location)
}

// Dir serves assets from a directory tree.
type Dir string

// Open opens key below the directory. Keys may not escape it.
func (d Dir) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean("/" + filepath.FromSlash(key))
	f, err := os.Open(filepath.Join(string(d), clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

// HTTPSource serves assets relative to a base URL.
type HTTPSource struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

// NewHTTPSource creates an HTTP source with a 30 second timeout.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "Image-Composer/1.0",
	}
}

// Open downloads key. Non-image responses are rejected.
func (s *HTTPSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	u, err := url.Parse(s.BaseURL + "/" + strings.TrimLeft(key, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid asset URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download %s: HTTP %s", key, resp.Status)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		resp.Body.Close()
		return nil, fmt.Errorf("%s is not an image (Content-Type: %s)", key, ct)
	}
	return resp.Body, nil
}
