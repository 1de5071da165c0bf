// Package datasource runs the named HTTP fetches that template bindings
// read from. Each source is fetched and fails independently; the latest
// successful payload is cached in memory and never persisted.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
)

var ErrUnknownSource = errors.New("unknown data source")

// Definition describes one named endpoint.
type Definition struct {
	Name    string            `hcl:"name,label" json:"name"`
	URL     string            `hcl:"url" json:"url"`
	Method  string            `hcl:"method,optional" json:"method,omitempty"`
	Headers map[string]string `hcl:"headers,optional" json:"headers,omitempty"`
	Body    string            `hcl:"body,optional" json:"body,omitempty"`
	// Active defaults to true; inactive sources are skipped by RunAll.
	Active *bool `hcl:"active,optional" json:"active,omitempty"`
}

// IsActive reports whether RunAll should fetch the source.
func (d Definition) IsActive() bool {
	return d.Active == nil || *d.Active
}

// FetchError is a failed fetch of a single source.
type FetchError struct {
	Source     string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves the JSON payload of a source.
type Fetcher interface {
	Fetch(ctx context.Context, def Definition) (any, error)
}

// HTTPFetcher fetches sources over HTTP and parses the body as JSON.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
// A zero timeout means no client-side limit.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch issues the request described by def.
func (h *HTTPFetcher) Fetch(ctx context.Context, def Definition) (any, error) {
	method := strings.ToUpper(def.Method)
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if def.Body != "" {
		body = strings.NewReader(def.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, def.URL, body)
	if err != nil {
		return nil, &FetchError{Source: def.Name, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if def.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range def.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: def.Name, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: def.Name, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Source: def.Name, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	v, err := oj.Parse(data)
	if err != nil {
		return nil, &FetchError{Source: def.Name, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse json: %w", err)}
	}
	return v, nil
}
