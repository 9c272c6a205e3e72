package options

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formstate/pkg/rule"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPOption customises the HTTP provider.
type HTTPOption func(*HTTP)

// WithClient injects a custom HTTP client.
func WithClient(client *http.Client) HTTPOption {
	return func(p *HTTP) {
		if client != nil {
			p.client = client
		}
	}
}

// WithToken supplies the bearer token source.
func WithToken(token func() string) HTTPOption {
	return func(p *HTTP) {
		p.token = token
	}
}

// WithScope declares that a source's request must carry the named form
// values as query parameters, narrowing the list server-side.
func WithScope(source string, fields ...string) HTTPOption {
	return func(p *HTTP) {
		p.scopes[source] = fields
	}
}

// WithTimeout overrides the bounded wait on each lookup.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(p *HTTP) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// HTTP fetches option lists from a REST backend: GET {base}/{source} with
// scope values as query parameters, expecting a JSON array of
// {value, label} objects.
type HTTP struct {
	baseURL string
	client  *http.Client
	token   func() string
	scopes  map[string][]string
	timeout time.Duration
}

// Ensure the implementation satisfies the public interface.
var _ Provider = (*HTTP)(nil)

// NewHTTP constructs an HTTP provider rooted at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	p := &HTTP{
		baseURL: baseURL,
		scopes:  make(map[string][]string),
		timeout: defaultHTTPTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(p)
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	return p
}

// Options implements Provider.
func (p *HTTP) Options(ctx context.Context, source string, values map[string]any) ([]Option, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	target := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(source))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("options: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != nil {
		if token := p.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if scope := p.scopes[source]; len(scope) > 0 {
		query := req.URL.Query()
		for _, name := range scope {
			if v, ok := values[name]; ok && !rule.IsEmpty(v) {
				query.Set(name, rule.CoerceString(v))
			}
		}
		req.URL.RawQuery = query.Encode()
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("options: fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("options: fetch %s: unexpected status %d", source, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("options: read %s: %w", source, err)
	}
	var out []Option
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("options: decode %s: %w", source, err)
	}
	return out, nil
}
