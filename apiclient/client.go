// Package apiclient talks to the remote storefront API: sign in, token
// validation, logout notification, and the base transport business calls
// are sent on.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errs "github.com/jrsteele09/storefront-console/internal/errors"
	"github.com/jrsteele09/storefront-console/session/credentials"
	"github.com/jrsteele09/storefront-console/session/renewal"
)

// API paths
const (
	PathLogin          = "/login"
	PathValidateTokens = "/validate-tokens"
	PathLogout         = "/logout"
)

// LoginRequest is the request body for PathLogin
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse is the response from PathLogin
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ValidateRequest is the request body for PathValidateTokens
type ValidateRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ValidateResponse is the response from PathValidateTokens
type ValidateResponse struct {
	Valid       bool   `json:"valid"`
	AccessToken string `json:"access_token,omitempty"`
}

// LogoutRequest is the request body for PathLogout
type LogoutRequest struct {
	Token string `json:"token"`
}

// StatusError reports an API response with an unexpected HTTP status.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Path, e.StatusCode)
}

// Client is the remote API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls (timeouts, TLS, transport).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.Timeout = d
	}
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Transport returns the transport API calls are made on.
func (c *Client) Transport() http.RoundTripper {
	if c.httpClient.Transport != nil {
		return c.httpClient.Transport
	}
	return http.DefaultTransport
}

// Login exchanges a username and password for a token pair. A 400 or 401
// answer is ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username, password string, rememberMe bool) (credentials.Tokens, error) {
	resp, err := c.postJSON(ctx, PathLogin, LoginRequest{Username: username, Password: password, RememberMe: rememberMe})
	if err != nil {
		return credentials.Tokens{}, err
	}
	defer resp.Body.Close()

	if rejected(resp.StatusCode) {
		return credentials.Tokens{}, errs.ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return credentials.Tokens{}, &StatusError{Path: PathLogin, StatusCode: resp.StatusCode}
	}

	var body LoginResponse
	if err := decode(resp.Body, &body); err != nil {
		return credentials.Tokens{}, errs.Wrapf(err, "[apiclient Login]")
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return credentials.Tokens{}, fmt.Errorf("[apiclient Login] missing tokens: %w", errs.ErrUnexpectedResponse)
	}
	return credentials.Tokens{Access: body.AccessToken, Refresh: body.RefreshToken}, nil
}

// ValidateTokens asks the API whether the pair is still good. A 400 or 401
// answer is a rejection whatever the body says; any other failure is an error.
func (c *Client) ValidateTokens(ctx context.Context, tokens credentials.Tokens) (renewal.Result, error) {
	resp, err := c.postJSON(ctx, PathValidateTokens, ValidateRequest{AccessToken: tokens.Access, RefreshToken: tokens.Refresh})
	if err != nil {
		return renewal.Result{}, err
	}
	defer resp.Body.Close()

	if rejected(resp.StatusCode) {
		return renewal.Result{Valid: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return renewal.Result{}, &StatusError{Path: PathValidateTokens, StatusCode: resp.StatusCode}
	}

	var body ValidateResponse
	if err := decode(resp.Body, &body); err != nil {
		return renewal.Result{}, errs.Wrapf(err, "[apiclient ValidateTokens]")
	}
	return renewal.Result{Valid: body.Valid, AccessToken: body.AccessToken}, nil
}

// NotifyLogout asks the API to invalidate accessToken server side.
func (c *Client) NotifyLogout(ctx context.Context, accessToken string) error {
	resp, err := c.postJSON(ctx, PathLogout, LogoutRequest{Token: accessToken})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &StatusError{Path: PathLogout, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to api: %w", err)
	}
	return resp, nil
}

func rejected(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusBadRequest
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("invalid response from api: %w: %w", errs.ErrUnexpectedResponse, err)
	}
	return nil
}
