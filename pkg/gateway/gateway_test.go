package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/gateway"
)

func testRegistry(t *testing.T) *field.Registry {
	t.Helper()
	reg, err := field.NewBuilder().MustRegister(
		field.Spec{Name: "id", Type: field.TypeText},
		field.Spec{Name: "payee", Type: field.TypeText},
		field.Spec{Name: "requestDate", Type: field.TypeDate},
		field.Spec{Name: "amount", Type: field.TypeNumber},
		field.Spec{Name: "particulars", Type: field.TypeTextarea},
	).Build()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read request body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return body
}

func TestSendCreatesWithPOST(t *testing.T) {
	var (
		gotMethod    string
		gotPath      string
		gotRequestID string
		gotAuth      string
		gotBody      map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		gotAuth = r.Header.Get("Authorization")
		gotBody = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"OR-2026-0001","payee":"Acme Supplies"}`)
	}))
	defer server.Close()

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests",
		gateway.WithTokenProvider(func() string { return "session-token" }),
		gateway.WithRename(map[string]string{"requestDate": "request_date"}))

	result, err := g.Send(context.Background(), map[string]any{
		"payee":       "Acme Supplies",
		"requestDate": "2026-03-15",
		"amount":      "1250.50",
		"particulars": "  Office supplies <script>alert(1)</script>  ",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Fatalf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/obligation-requests" {
		t.Fatalf("path = %s, want /obligation-requests", gotPath)
	}
	if gotRequestID == "" {
		t.Fatal("create request missing X-Request-ID")
	}
	if gotAuth != "Bearer session-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}

	wantBody := map[string]any{
		"payee":        "Acme Supplies",
		"request_date": "2026-03-15",
		"amount":       1250.5,
		"particulars":  "Office supplies",
	}
	if diff := cmp.Diff(wantBody, gotBody); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	if !result.Created {
		t.Fatal("result.Created = false, want true")
	}
	if got := result.Payload["id"]; got != "OR-2026-0001" {
		t.Fatalf("payload id = %v", got)
	}
}

func TestSendUpdatesWithPUT(t *testing.T) {
	var (
		gotMethod    string
		gotPath      string
		gotRequestID string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"OR-2026-0001"}`)
	}))
	defer server.Close()

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests")
	result, err := g.Send(context.Background(), map[string]any{
		"id":    "OR-2026-0001",
		"payee": "Acme Supplies",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/obligation-requests/OR-2026-0001" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotRequestID != "" {
		t.Fatal("update request carried a create X-Request-ID")
	}
	if result.Created {
		t.Fatal("result.Created = true for an update")
	}
}

func TestSendValidationErrorCarriesFieldMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"Request is invalid","errors":{"payee":["Payee is not accredited"]}}`)
	}))
	defer server.Close()

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests")
	_, err := g.Send(context.Background(), map[string]any{"payee": "Acme"})

	var valErr *gateway.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if valErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", valErr.Status)
	}
	if valErr.Message != "Request is invalid" {
		t.Fatalf("message = %q", valErr.Message)
	}
	want := map[string][]string{"payee": {"Payee is not accredited"}}
	if diff := cmp.Diff(want, valErr.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if !gateway.IsRecoverable(err) {
		t.Fatal("validation error reported as unrecoverable")
	}
}

func TestSendNonJSONErrorBodyFailsClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "<html>Bad Request</html>")
	}))
	defer server.Close()

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests")
	_, err := g.Send(context.Background(), map[string]any{"payee": "Acme"})

	var valErr *gateway.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if valErr.Message != "The request could not be completed" {
		t.Fatalf("message = %q, want generic fallback", valErr.Message)
	}
	if valErr.Fields != nil {
		t.Fatalf("fields = %v, want nil", valErr.Fields)
	}
}

func TestSendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests")
	_, err := g.Send(context.Background(), map[string]any{"payee": "Acme"})

	var srvErr *gateway.ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("err = %v, want ServerError", err)
	}
	if srvErr.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", srvErr.Status)
	}
	if !gateway.IsRecoverable(err) {
		t.Fatal("server error reported as unrecoverable")
	}
}

func TestSendTimeoutBecomesNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests",
		gateway.WithTimeout(50*time.Millisecond))
	_, err := g.Send(context.Background(), map[string]any{"payee": "Acme"})

	var netErr *gateway.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if !gateway.IsRecoverable(err) {
		t.Fatal("network error reported as unrecoverable")
	}
}

func TestSendThenLoadRoundTrips(t *testing.T) {
	var stored map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			stored = decodeBody(t, r)
			stored["id"] = "OR-2026-0042"
			json.NewEncoder(w).Encode(stored)
		case http.MethodGet:
			json.NewEncoder(w).Encode(stored)
		}
	}))
	defer server.Close()

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests")
	sent := map[string]any{
		"payee":       "Acme Supplies",
		"requestDate": "2026-03-15",
		"amount":      1250.5,
	}
	result, err := g.Send(context.Background(), sent)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	loaded, err := g.Load(context.Background(), "OR-2026-0042")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(result.Payload, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-sent +loaded):\n%s", diff)
	}
	for _, key := range []string{"payee", "requestDate", "amount"} {
		if loaded[key] != sent[key] {
			t.Fatalf("%s = %v, want %v", key, loaded[key], sent[key])
		}
	}
}

func TestLoadFetchesRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/obligation-requests/OR-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"OR-1","payee":"Acme Supplies"}`)
	}))
	defer server.Close()

	g := gateway.New(testRegistry(t), server.URL, "obligation-requests")
	record, err := g.Load(context.Background(), "OR-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := record["payee"]; got != "Acme Supplies" {
		t.Fatalf("payee = %v", got)
	}
}
