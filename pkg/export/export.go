// Package export downloads spreadsheet exports: POST a filter payload,
// receive a binary body, and name the file from the Content-Disposition
// header with a configurable fallback.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const defaultTimeout = 30 * time.Second

// File is a downloaded export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Option customises the Exporter.
type Option func(*Exporter)

// WithClient injects a custom HTTP client.
func WithClient(client *http.Client) Option {
	return func(e *Exporter) {
		if client != nil {
			e.client = client
		}
	}
}

// WithToken supplies the bearer token source.
func WithToken(token func() string) Option {
	return func(e *Exporter) {
		e.token = token
	}
}

// WithFallbackName overrides the filename used when the response carries no
// usable Content-Disposition header.
func WithFallbackName(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.fallback = name
		}
	}
}

// WithTimeout overrides the bounded wait on each download.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Exporter) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// Exporter posts filter payloads to an export endpoint.
type Exporter struct {
	endpoint string
	client   *http.Client
	token    func() string
	fallback string
	timeout  time.Duration
}

// New constructs an Exporter for one endpoint.
func New(endpoint string, opts ...Option) *Exporter {
	e := &Exporter{
		endpoint: endpoint,
		fallback: "export.xlsx",
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.client == nil {
		e.client = &http.Client{}
	}
	return e
}

// Export posts the filter payload and returns the downloaded file.
func (e *Exporter) Export(ctx context.Context, filter map[string]any) (*File, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	encoded, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("export: encode filter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("export: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != nil {
		if token := e.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("export: read response: %w", err)
	}

	return &File{
		Name:        e.filename(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// filename extracts the attachment name from a Content-Disposition header,
// falling back to the configured default when the header is missing or
// malformed.
func (e *Exporter) filename(disposition string) string {
	if disposition == "" {
		return e.fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return e.fallback
	}
	if name := params["filename"]; name != "" {
		return name
	}
	return e.fallback
}
