package aep

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresOrgID(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing org ID")
	}
	if _, err := NewClient(Config{OrgID: "org"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccessTokenExchangeAndCache(t *testing.T) {
	var exchanges atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.Form.Get("client_id"); got != "cid" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.Form.Get("client_secret"); got != "secret" {
			t.Errorf("client_secret = %q", got)
		}
		if got := r.Form.Get("scope"); !strings.Contains(got, "ent_platform_apis") {
			t.Errorf("scope = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "expires_in": 86399})
	}))
	defer tokenSrv.Close()

	client := newTestClient(t, Config{
		ClientID: "cid", ClientSecret: "secret", OrgID: "org", Sandbox: "prod",
		TokenURL: tokenSrv.URL,
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tok, err := client.AccessToken(ctx)
		if err != nil {
			t.Fatalf("AccessToken: %v", err)
		}
		if tok != "tok-123" {
			t.Fatalf("token = %q", tok)
		}
	}
	if got := exchanges.Load(); got != 1 {
		t.Fatalf("exchange count = %d, want 1 (cached thereafter)", got)
	}
}

func TestAccessTokenPreGenerated(t *testing.T) {
	client := newTestClient(t, Config{OrgID: "org", AuthToken: "static-token", TokenURL: "http://invalid.invalid"})
	tok, err := client.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if tok != "static-token" {
		t.Fatalf("token = %q, want pre-generated token without exchange", tok)
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotHeaders http.Header
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte(`{"ok": true}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, Config{
		ClientID: "cid", OrgID: "org", Sandbox: "dev", SandboxID: "sb-1",
		AuthToken: "tok", BaseURL: apiSrv.URL,
	})

	_, err := client.get(context.Background(), "/data/foundation/catalog/datasets?limit=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	checks := map[string]string{
		"Authorization":   "Bearer tok",
		"X-Api-Key":       "cid",
		"X-Gw-Ims-Org-Id": "org",
		"X-Sandbox-Name":  "dev",
	}
	for name, want := range checks {
		if got := gotHeaders.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	// Pre-generated tokens never send the sandbox ID header.
	if got := gotHeaders.Get("X-Sandbox-Id"); got != "" {
		t.Errorf("x-sandbox-id = %q, want unset with AuthToken", got)
	}
}

func TestRequestSandboxIDHeader(t *testing.T) {
	var gotSandboxID string
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "t"})
	}))
	defer tokenSrv.Close()
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSandboxID = r.Header.Get("x-sandbox-id")
		w.Write([]byte(`{}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, Config{
		ClientID: "cid", ClientSecret: "s", OrgID: "org", Sandbox: "dev", SandboxID: "sb-1",
		BaseURL: apiSrv.URL, TokenURL: tokenSrv.URL,
	})
	if _, err := client.get(context.Background(), "/x"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotSandboxID != "sb-1" {
		t.Fatalf("x-sandbox-id = %q, want sb-1 for non-prod sandbox", gotSandboxID)
	}
}

func TestRequestAPIError(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "insufficient permissions"}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, Config{OrgID: "org", AuthToken: "tok", BaseURL: apiSrv.URL})
	_, err := client.get(context.Background(), "/x")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T: %v", err, err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Body, "insufficient permissions") {
		t.Errorf("Body = %q", apiErr.Body)
	}
}

func TestRequestEmptyBody(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer apiSrv.Close()

	client := newTestClient(t, Config{OrgID: "org", AuthToken: "tok", BaseURL: apiSrv.URL})
	got, err := client.get(context.Background(), "/x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil for empty body", got)
	}
}

func TestCreateSegmentBody(t *testing.T) {
	var gotBody map[string]any
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/data/core/ups/segment/definitions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Write([]byte(`{"id": "seg-1"}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, Config{OrgID: "org", AuthToken: "tok", BaseURL: apiSrv.URL})
	_, err := client.CreateSegment(context.Background(), "High value", "spends a lot", "select x")
	if err != nil {
		t.Fatalf("CreateSegment: %v", err)
	}

	if gotBody["name"] != "High value" {
		t.Errorf("name = %v", gotBody["name"])
	}
	expr := gotBody["expression"].(map[string]any)
	if expr["type"] != "PQL" || expr["format"] != "pql/text" || expr["value"] != "select x" {
		t.Errorf("expression = %v", expr)
	}
	schema := gotBody["schema"].(map[string]any)
	if schema["name"] != "_xdm.context.profile" {
		t.Errorf("schema = %v", schema)
	}
}

func TestExecuteQueryScoping(t *testing.T) {
	var gotBody map[string]any
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id": "q-1"}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, Config{OrgID: "org", Sandbox: "dev", AuthToken: "tok", BaseURL: apiSrv.URL})
	if _, err := client.ExecuteQuery(context.Background(), "select 1"); err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if gotBody["dbName"] != "org:dev" {
		t.Errorf("dbName = %v", gotBody["dbName"])
	}
	if gotBody["sql"] != "select 1" {
		t.Errorf("sql = %v", gotBody["sql"])
	}
	if name, _ := gotBody["name"].(string); !strings.HasPrefix(name, "query_") {
		t.Errorf("name = %v", gotBody["name"])
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"datasets": {}}`))
	}))
	defer healthy.Close()

	client := newTestClient(t, Config{OrgID: "org", AuthToken: "tok", BaseURL: healthy.URL})
	got, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if got["status"] != "healthy" {
		t.Errorf("status = %v", got["status"])
	}

	down := newTestClient(t, Config{OrgID: "org", AuthToken: "tok", BaseURL: "http://127.0.0.1:1"})
	got, err = down.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck must not error: %v", err)
	}
	if got["status"] != "unhealthy" {
		t.Errorf("status = %v", got["status"])
	}
}

func TestSystemHealthSummaryPartialFailure(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "flowservice") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id": "x"}]`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, Config{OrgID: "org", AuthToken: "tok", BaseURL: apiSrv.URL})
	got, err := client.SystemHealthSummary(context.Background())
	if err != nil {
		t.Fatalf("SystemHealthSummary: %v", err)
	}
	if got["datasets"] == nil {
		t.Error("datasets missing from summary")
	}
	if got["flows"] != nil {
		t.Error("failed service should report nil, not fail the summary")
	}
}
