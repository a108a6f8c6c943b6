// Package aep is a client for the Adobe Experience Platform APIs. It handles
// the OAuth2 client-credentials exchange against IMS, in-memory token
// caching with an explicit expiry check, and the tenant/sandbox scoping
// headers every request carries.
package aep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL  = "https://platform.adobe.io"
	defaultTokenURL = "https://ims-na1.adobelogin.com/ims/token/v3"

	// tokenLifetime is how long an exchanged token is trusted before a
	// fresh exchange. IMS tokens last 24h; a margin avoids using one at
	// the edge of expiry.
	tokenLifetime = 23 * time.Hour

	tokenScope = "openid,AdobeID,read_organizations,additional_info.projectedProductContext," +
		"additional_info.job_function,https://ns.adobe.com/s/ent_platform_apis,acp.foundation.catalog"
)

// Config carries the platform credentials and tenant scoping for one client.
type Config struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	OrgID        string `json:"orgId"`
	Sandbox      string `json:"sandbox"`
	SandboxID    string `json:"sandboxId,omitempty"`
	// AuthToken is an optional pre-generated access token; when set the
	// client skips the client-credentials exchange entirely.
	AuthToken string `json:"authToken,omitempty"`

	// BaseURL and TokenURL default to the production endpoints.
	BaseURL  string `json:"baseUrl,omitempty"`
	TokenURL string `json:"tokenUrl,omitempty"`
}

// APIError is a non-2xx platform response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AEP API error: %d: %s", e.Status, e.Body)
}

// Client issues bearer-authenticated requests against the platform API. Each
// instance caches one access token; the cache is checked against an expiry
// timestamp on every access rather than cleared by a timer.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient validates the configuration and returns a client. No network
// activity happens until the first request.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.OrgID) == "" {
		return nil, errors.New("organization ID is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// AccessToken returns the cached token if fresh, else performs the
// client-credentials exchange. A pre-generated token short-circuits both.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cfg.AuthToken != "" {
		return c.cfg.AuthToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {tokenScope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed: %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(tokenLifetime)
	return c.accessToken, nil
}

type requestOptions struct {
	method string
	body   any
	accept string
}

// Request issues one platform API call and decodes the JSON response. A
// non-2xx status yields an *APIError carrying the leading bytes of the
// response body.
func (c *Client) Request(ctx context.Context, endpoint string, opts *requestOptions) (any, error) {
	if opts == nil {
		opts = &requestOptions{}
	}
	method := opts.method
	if method == "" {
		method = http.MethodGet
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if opts.body != nil {
		encoded, err := json.Marshal(opts.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.ClientID)
	req.Header.Set("x-gw-ims-org-id", c.cfg.OrgID)
	req.Header.Set("x-sandbox-name", c.cfg.Sandbox)
	if opts.accept != "" {
		req.Header.Set("Accept", opts.accept)
	}
	if c.cfg.AuthToken == "" && c.cfg.SandboxID != "" && c.cfg.Sandbox != "prod" {
		req.Header.Set("x-sandbox-id", c.cfg.SandboxID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (any, error) {
	return c.Request(ctx, endpoint, nil)
}

func (c *Client) getWithAccept(ctx context.Context, endpoint, accept string) (any, error) {
	return c.Request(ctx, endpoint, &requestOptions{accept: accept})
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (any, error) {
	return c.Request(ctx, endpoint, &requestOptions{method: http.MethodPost, body: body})
}
