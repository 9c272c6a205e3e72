// Package gateway performs the create/update network operation for a form:
// it serialises controller values to the backend's JSON shape, chooses POST
// or PUT by the presence of the identity field, applies a bounded timeout,
// and converts every failure mode into a typed, recoverable error.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/rule"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultIdentityField = "id"
)

// Sender is the contract the form controller submits through.
type Sender interface {
	Send(ctx context.Context, values map[string]any) (*Result, error)
}

// Result reports a successful submission. Payload is the decoded response
// body, typically the persisted record including server-assigned fields.
type Result struct {
	Created bool
	Payload map[string]any
}

// TokenProvider supplies the bearer token attached to every request.
type TokenProvider func() string

// Option customises the Gateway configuration.
type Option func(*Gateway)

// WithHTTPClient injects a custom HTTP client. The client's timeout is left
// untouched; pass one with a bound when overriding.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithTimeout overrides the bounded wait applied to each request. Expiry
// surfaces as *NetworkError rather than hanging indefinitely.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithTokenProvider supplies the bearer token source, typically reading the
// session token.
func WithTokenProvider(provider TokenProvider) Option {
	return func(g *Gateway) {
		g.token = provider
	}
}

// WithIdentityField overrides the field whose presence selects update over
// create. Defaults to "id".
func WithIdentityField(name string) Option {
	return func(g *Gateway) {
		if name != "" {
			g.identityField = name
		}
	}
}

// WithRename maps form field names to backend payload keys.
func WithRename(rename map[string]string) Option {
	return func(g *Gateway) {
		g.rename = rename
	}
}

// Gateway is the HTTP Sender implementation. Construct with New.
type Gateway struct {
	baseURL       string
	resource      string
	client        *http.Client
	timeout       time.Duration
	token         TokenProvider
	identityField string
	rename        map[string]string
	serializer    *Serializer
	reg           *field.Registry
}

// Ensure the implementation satisfies the public interface.
var _ Sender = (*Gateway)(nil)

// New constructs a Gateway for one backend resource, e.g.
// New(reg, "https://api.example.test", "obligation-requests").
func New(reg *field.Registry, baseURL, resource string, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:       baseURL,
		resource:      resource,
		timeout:       defaultTimeout,
		identityField: defaultIdentityField,
		reg:           reg,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(g)
	}
	if g.client == nil {
		g.client = &http.Client{}
	}
	g.serializer = NewSerializer(reg, g.rename)
	return g
}

// Serializer exposes the gateway's serializer so callers can map server
// error paths back to field names.
func (g *Gateway) Serializer() *Serializer { return g.serializer }

// Send creates or updates the record described by values. Presence of the
// identity field selects PUT against the record URL; otherwise POST against
// the collection. Create requests carry a client-generated X-Request-ID so a
// deduplicating backend can drop retries of the same attempt.
func (g *Gateway) Send(ctx context.Context, values map[string]any) (*Result, error) {
	payload := g.serializer.Payload(values)

	method := http.MethodPost
	target := g.collectionURL()
	create := true
	if id, ok := values[g.identityField]; ok && !rule.IsEmpty(id) {
		method = http.MethodPut
		target = g.recordURL(rule.CoerceString(id))
		create = false
	}

	body, err := g.do(ctx, method, target, payload, create)
	if err != nil {
		return nil, err
	}
	return &Result{Created: create, Payload: body}, nil
}

// Load fetches a record by id, the collaborator behind edit-form prefill and
// the submit round-trip.
func (g *Gateway) Load(ctx context.Context, id string) (map[string]any, error) {
	return g.do(ctx, http.MethodGet, g.recordURL(id), nil, false)
}

// Delete removes a record by id.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	_, err := g.do(ctx, http.MethodDelete, g.recordURL(id), nil, false)
	return err
}

func (g *Gateway) collectionURL() string {
	return fmt.Sprintf("%s/%s", g.baseURL, g.resource)
}

func (g *Gateway) recordURL(id string) string {
	return fmt.Sprintf("%s/%s/%s", g.baseURL, g.resource, url.PathEscape(id))
}

func (g *Gateway) do(ctx context.Context, method, target string, payload map[string]any, create bool) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode payload: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != nil {
		if token := g.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if create {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &ServerError{Status: resp.StatusCode, Message: errorMessage(raw)}
	case resp.StatusCode >= 400:
		message, fields := errorDetails(raw)
		return nil, &ValidationError{Status: resp.StatusCode, Message: message, Fields: fields}
	}

	if len(raw) == 0 {
		return nil, nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}
	return body, nil
}

// errorBody is the conventional backend error shape: a message plus optional
// per-field errors.
type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

const genericErrorMessage = "The request could not be completed"

// errorMessage extracts the message field from an error body, failing closed
// with a generic message when the body is not JSON.
func errorMessage(raw []byte) string {
	message, _ := errorDetails(raw)
	return message
}

func errorDetails(raw []byte) (string, map[string][]string) {
	if len(raw) == 0 {
		return genericErrorMessage, nil
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return genericErrorMessage, nil
	}
	if body.Message == "" {
		body.Message = genericErrorMessage
	}
	return body.Message, body.Errors
}

// IsRecoverable reports whether err is one of the gateway's typed failures,
// all of which preserve form state and surface to the user rather than
// aborting the form.
func IsRecoverable(err error) bool {
	var netErr *NetworkError
	var valErr *ValidationError
	var srvErr *ServerError
	return errors.As(err, &netErr) || errors.As(err, &valErr) || errors.As(err, &srvErr)
}
