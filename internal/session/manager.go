package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Cookie names
const (
	ClientCookie      = "cm_client"
	TabCookie         = "cm_tab"
	AccessTokenCookie = "access_token"
)

// A page keeps its own tab id in sessionStorage and sends it with every API
// call as TabHeader, or as the TabParam query parameter where headers cannot
// be set, such as the WebSocket handshake. The TabCookie is shared by all tabs
// of a browser and is only a fallback for callers that send neither.
const (
	TabHeader = "X-Tab-ID"
	TabParam  = "tab"
)

const (
	clientCookieMaxAge = 365 * 24 * 60 * 60
	accessCookieMaxAge = 24 * 60 * 60

	tokensTTL  = 30 * 24 * time.Hour
	contextTTL = 24 * time.Hour
)

// Identity names the browser and the tab a request comes from.
type Identity struct {
	ClientID string
	TabID    string
}

type identityKey struct{}

// WithIdentity stores the request identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.ClientID != ""
}

// Manager issues identity cookies and hands out per-request stores.
type Manager struct {
	backend Backend
	secure  bool
}

// NewManager creates a manager. secure marks every cookie Secure, which
// should be set whenever the site is served over HTTPS.
func NewManager(backend Backend, secure bool) *Manager {
	return &Manager{backend: backend, secure: secure}
}

// Backend returns the underlying store.
func (m *Manager) Backend() Backend {
	return m.backend
}

// EnsureIdentity reads the client cookie and the tab id, issuing fresh
// cookies for whichever is missing.
func (m *Manager) EnsureIdentity(w http.ResponseWriter, r *http.Request) Identity {
	var id Identity

	if c, err := r.Cookie(ClientCookie); err == nil && c.Value != "" {
		id.ClientID = c.Value
	} else {
		id.ClientID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     ClientCookie,
			Value:    id.ClientID,
			Path:     "/",
			MaxAge:   clientCookieMaxAge,
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if tab, ok := requestTabID(r); ok {
		id.TabID = tab
	} else if c, err := r.Cookie(TabCookie); err == nil && c.Value != "" {
		id.TabID = c.Value
	} else {
		id.TabID = uuid.NewString()
		// No MaxAge: the cookie ends with the browser session.
		http.SetCookie(w, &http.Cookie{
			Name:     TabCookie,
			Value:    id.TabID,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteStrictMode,
		})
	}

	return id
}

// requestTabID returns the tab id sent by the page. Only UUIDs are taken, so
// the id is safe to embed in storage keys.
func requestTabID(r *http.Request) (string, bool) {
	v := r.Header.Get(TabHeader)
	if v == "" {
		v = r.URL.Query().Get(TabParam)
	}
	if v == "" {
		return "", false
	}
	u, err := uuid.Parse(v)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// Tokens returns the token store of a client. Cookie changes go to sink.
func (m *Manager) Tokens(clientID string, sink CookieSink) *TokenStore {
	return &TokenStore{
		backend: m.backend,
		key:     "tokens:" + clientID,
		sink:    sink,
		secure:  m.secure,
	}
}

// Context returns the conversation store of a tab.
func (m *Manager) Context(tabID string) *ContextStore {
	return &ContextStore{
		backend: m.backend,
		key:     "ctx:" + tabID,
	}
}
