package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clevermock-web/internal/domain"
)

// CookieSink receives the cookies a store wants sent to the browser.
type CookieSink interface {
	SetCookie(c *http.Cookie)
}

// ResponseSink writes cookies onto an HTTP response.
type ResponseSink struct {
	W http.ResponseWriter
}

func (s ResponseSink) SetCookie(c *http.Cookie) {
	http.SetCookie(s.W, c)
}

// HeaderSink collects cookies into a header, for responses written by
// someone else, such as a WebSocket upgrade.
type HeaderSink http.Header

func (s HeaderSink) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		http.Header(s).Add("Set-Cookie", v)
	}
}

// DiscardSink drops cookies, for stores read or seeded outside a request.
type DiscardSink struct{}

func (DiscardSink) SetCookie(*http.Cookie) {}

// TokenStore persists a client's token pair and mirrors the access token
// into the access_token cookie. It implements domain.TokenStore.
type TokenStore struct {
	backend Backend
	key     string
	sink    CookieSink
	secure  bool

	// wrote is set once Save or Clear has sent a cookie to the sink.
	wrote bool
}

func (s *TokenStore) Load(ctx context.Context) (domain.Tokens, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrMiss) {
		return domain.Tokens{}, nil
	}
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("failed to load tokens: %w", err)
	}

	var t domain.Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		// Unreadable pair is as good as none.
		return domain.Tokens{}, nil
	}
	return t, nil
}

func (s *TokenStore) Save(ctx context.Context, t domain.Tokens) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, data, tokensTTL); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	s.sink.SetCookie(s.accessCookie(t.AccessToken, accessCookieMaxAge))
	s.wrote = true
	return nil
}

func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.backend.Del(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	s.sink.SetCookie(s.accessCookie("", -1))
	s.wrote = true
	return nil
}

// SyncCookie brings the access_token cookie sent with r in line with token,
// the current access token of the store. It covers changes made where no
// response could carry the cookie, such as a refresh on an open WebSocket.
func (s *TokenStore) SyncCookie(r *http.Request, token string) {
	if s.wrote {
		return
	}
	var sent string
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		sent = c.Value
	}
	switch {
	case token == "" && sent != "":
		s.sink.SetCookie(s.accessCookie("", -1))
	case token != "" && token != sent:
		s.sink.SetCookie(s.accessCookie(token, accessCookieMaxAge))
	default:
		return
	}
	s.wrote = true
}

func (s *TokenStore) accessCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
