// Package apiclient talks to the interview backend on behalf of a browser.
//
// Every authorized request carries the browser's current access token. An
// expired or rejected token is refreshed transparently, with at most one
// refresh in flight per session and at most one retry per request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clevermock-web/internal/domain"
	"clevermock-web/internal/observability"
)

const refreshPath = "/api/v1/auth/refresh"

// Client performs calls against the backend for one token store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	refresher  *Refresher
	tokens     domain.TokenStore
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenStore sets the store consulted for bearer tokens.
func WithTokenStore(s domain.TokenStore) Option {
	return func(c *Client) {
		c.tokens = s
	}
}

// New creates a client for the backend rooted at baseURL. Requests have no
// client-side timeout; they end with their context or the transport.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		refresher:  NewRefresher(),
		tokens:     noTokens{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of c bound to another token store. The copy
// shares the HTTP client and the refresh lock.
func (c *Client) WithTokens(store domain.TokenStore) *Client {
	cp := *c
	cp.tokens = store
	return &cp
}

// GetValidAccessToken returns the stored access token, or refreshes it when
// it is missing or past its expiry. An empty string means the session is no
// longer valid.
func (c *Client) GetValidAccessToken(ctx context.Context) (string, error) {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load tokens: %w", err)
	}
	if tokens.AccessToken != "" && !tokenExpired(tokens.AccessToken, time.Now()) {
		return tokens.AccessToken, nil
	}
	return c.refresh(ctx, tokens)
}

// RefreshAccessToken exchanges the stored refresh token for a new pair. On a
// rejected refresh both tokens and the cookie are cleared and "" is returned.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load tokens: %w", err)
	}
	return c.refresh(ctx, tokens)
}

// refresh exchanges seen.RefreshToken unless the store has moved past the
// pair the caller read, in which case the stored access token is the answer.
func (c *Client) refresh(ctx context.Context, seen domain.Tokens) (string, error) {
	if seen.RefreshToken == "" {
		observability.TokenRefreshTotal.WithLabelValues("skipped").Inc()
		return "", nil
	}

	token, shared, err := c.refresher.Do(ctx, seen.RefreshToken, func(ctx context.Context) (string, error) {
		current, err := c.tokens.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load tokens: %w", err)
		}
		if current.RefreshToken != seen.RefreshToken {
			observability.TokenRefreshTotal.WithLabelValues("superseded").Inc()
			return current.AccessToken, nil
		}
		if current.AccessToken != seen.AccessToken && current.AccessToken != "" &&
			!tokenExpired(current.AccessToken, time.Now()) {
			observability.TokenRefreshTotal.WithLabelValues("superseded").Inc()
			return current.AccessToken, nil
		}
		return c.exchange(ctx, seen.RefreshToken)
	})
	if err != nil {
		return "", err
	}
	if shared {
		observability.FromContext(ctx).Debug("joined in-flight token refresh")
	}
	return token, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// exchange performs the refresh network call. It only returns an error when
// the token store itself fails.
func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	log := observability.FromContext(ctx)

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(refreshPath), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		observability.TokenRefreshTotal.WithLabelValues("error").Inc()
		log.Warn("token refresh request failed", slog.String("error", err.Error()))
		return "", nil
	}
	defer drain(resp)

	var out refreshResponse
	if isSuccess(resp.StatusCode) {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			log.Warn("invalid token refresh response", slog.String("error", err.Error()))
		}
	}

	if !isSuccess(resp.StatusCode) || out.AccessToken == "" {
		observability.TokenRefreshTotal.WithLabelValues("failure").Inc()

		// A pair saved by another refresh while this one was in flight
		// belongs to a live session and must survive the rejection.
		current, err := c.tokens.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load tokens: %w", err)
		}
		if current.RefreshToken != "" && current.RefreshToken != refreshToken {
			log.Info("stale refresh token rejected, keeping rotated session",
				slog.Int("status", resp.StatusCode))
			return current.AccessToken, nil
		}

		log.Info("token refresh rejected, clearing session",
			slog.Int("status", resp.StatusCode))
		if err := c.tokens.Clear(ctx); err != nil {
			return "", fmt.Errorf("failed to clear tokens: %w", err)
		}
		return "", nil
	}

	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	if err := c.tokens.Save(ctx, domain.Tokens{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}); err != nil {
		return "", fmt.Errorf("failed to save tokens: %w", err)
	}

	observability.TokenRefreshTotal.WithLabelValues("success").Inc()
	log.Debug("token refreshed")
	return out.AccessToken, nil
}

// RequestOptions describes an outbound request. Body is kept as bytes so the
// request can be replayed after a refresh.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// AuthenticatedFetch sends the request with the current bearer token. When
// the backend answers 401 or 403 and retryOnAuthError is set, the token is
// refreshed once and the request is sent again; the second response is
// returned whatever its status. If the refresh yields no token the original
// response is returned untouched.
func (c *Client) AuthenticatedFetch(ctx context.Context, url string, opts RequestOptions, retryOnAuthError bool) (*http.Response, error) {
	token, err := c.GetValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, url, opts, token)
	if err != nil {
		return nil, err
	}
	if !retryOnAuthError || !isAuthFailure(resp.StatusCode) {
		return resp, nil
	}

	fresh, err := c.RefreshAccessToken(ctx)
	if err != nil {
		drain(resp)
		return nil, err
	}
	if fresh == "" {
		return resp, nil
	}

	drain(resp)
	observability.FromContext(ctx).Debug("retrying request with refreshed token",
		slog.String("method", resp.Request.Method))
	return c.do(ctx, url, opts, fresh)
}

func (c *Client) do(ctx context.Context, url string, opts RequestOptions, token string) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.send(req)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	observability.BackendRequestDuration.WithLabelValues(req.Method, status).Observe(time.Since(start).Seconds())

	return resp, err
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// noTokens is the store of a client that never authenticates.
type noTokens struct{}

func (noTokens) Load(context.Context) (domain.Tokens, error) { return domain.Tokens{}, nil }
func (noTokens) Save(context.Context, domain.Tokens) error    { return nil }
func (noTokens) Clear(context.Context) error                  { return nil }
