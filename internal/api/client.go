// Package api is the HTTP/JSON client for the COVID counter API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sipico/covid-counter-client/internal/record"
)

const (
	// DefaultBaseURL is the API address used when none is configured.
	DefaultBaseURL = "http://localhost:8089"
)

// TokenSource supplies the current bearer credential. An empty token means
// requests are sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// Client is an HTTP client for the COVID counter API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing with mock server).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTokenSource attaches the credential provider.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// NewClient creates a new API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the configured API address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login submits credentials. The response carries either a token or an
// OTP challenge; telling them apart is the caller's job.
func (c *Client) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/login", nil, req)
	if err != nil {
		return nil, err
	}

	var resp LoginResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. Any success body is ignored.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/register", nil, req)
	return err
}

// VerifyOTP exchanges an emailed passcode for a token.
func (c *Client) VerifyOTP(ctx context.Context, req *VerifyOTPRequest) (*AuthResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/auth/verify-otp", nil, req)
	if err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout asks the server to expire its session cookie.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	return err
}

// ListRecords fetches a dataset collection. Empty query values are omitted.
func (c *Client) ListRecords(ctx context.Context, path string, query url.Values) ([]record.Record, error) {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	records, err := record.DecodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return records, nil
}

// UpdateRecord replaces the record addressed by key and returns the
// server's representation of it.
func (c *Client) UpdateRecord(ctx context.Context, path, key string, rec record.Record) (record.Record, error) {
	endpoint := strings.TrimRight(path, "/") + "/" + url.PathEscape(key)

	body, err := c.do(ctx, http.MethodPut, endpoint, nil, rec)
	if err != nil {
		return nil, err
	}

	updated, err := record.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return updated, nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	endpoint := c.baseURL + path
	if q := compactQuery(query); len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, body)
	}

	return body, nil
}

// compactQuery drops parameters whose values are all empty.
func compactQuery(query url.Values) url.Values {
	if len(query) == 0 {
		return nil
	}
	out := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				out.Add(k, v)
			}
		}
	}
	return out
}

// decodeJSON unmarshals body into v, treating an empty body as an empty object.
func decodeJSON(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
