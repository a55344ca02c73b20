// Package loader fetches the dashboard resources, turns them into a view.State
// and keeps the published state fresh.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned by a Source when a resource is absent
var ErrNotFound = errors.New("resource not found")

// maxResourceSize bounds a single resource body
const maxResourceSize = 32 << 20

// Source fetches named resources
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	String() string
}

// DirSource reads resources from a directory
type DirSource struct {
	Dir string
}

// Fetch reads one file below the directory
func (s DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.Dir, filepath.FromSlash(name))
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (s DirSource) String() string {
	return s.Dir
}

// HTTPSource fetches resources relative to a base URL
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// Fetch issues an uncached GET for the resource. Any non-2xx answer counts as
// absent.
func (s HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(name, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", name, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: HTTP %d: %w", name, resp.StatusCode, ErrNotFound)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, nil
}

func (s HTTPSource) String() string {
	return s.BaseURL
}

// NewSource returns an HTTPSource for http(s) URLs and a DirSource otherwise
func NewSource(location string, timeout time.Duration) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return HTTPSource{BaseURL: location, Client: &http.Client{Timeout: timeout}}
	}
	return DirSource{Dir: location}
}
