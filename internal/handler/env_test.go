package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/domain"
	"clevermock-web/internal/session"
)

const (
	testClientID = "client-1"
	testTabID    = "tab-1"
)

// testEnv wires handlers to an in-memory session store and a scripted backend.
type testEnv struct {
	backend  *httptest.Server
	mux      *http.ServeMux
	sessions *session.Manager
	api      *apiclient.Client
	clients  *SessionClients
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mux := http.NewServeMux()
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	sessions := session.NewManager(session.NewMemoryBackend(), false)
	api := apiclient.New(backend.URL)

	return &testEnv{
		backend:  backend,
		mux:      mux,
		sessions: sessions,
		api:      api,
		clients:  NewSessionClients(sessions, api),
	}
}

// handle scripts one backend route, e.g. "POST /api/v1/auth/login".
func (e *testEnv) handle(pattern string, fn http.HandlerFunc) {
	e.mux.HandleFunc(pattern, fn)
}

// request stamps the browser cookies of the test client onto r.
func (e *testEnv) request(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: session.ClientCookie, Value: testClientID})
	r.AddCookie(&http.Cookie{Name: session.TabCookie, Value: testTabID})
	return r
}

func (e *testEnv) tokenStore() *session.TokenStore {
	return e.sessions.Tokens(testClientID, session.DiscardSink{})
}

func (e *testEnv) seedTokens(t *testing.T, access, refresh string) {
	t.Helper()
	err := e.tokenStore().Save(context.Background(), domain.Tokens{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		t.Fatalf("failed to seed tokens: %v", err)
	}
}

func (e *testEnv) tokens(t *testing.T) domain.Tokens {
	t.Helper()
	tokens, err := e.tokenStore().Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load tokens: %v", err)
	}
	return tokens
}

func (e *testEnv) seedContext(t *testing.T, conv domain.ConversationContext) {
	t.Helper()
	if err := e.sessions.Context(testTabID).Save(context.Background(), conv); err != nil {
		t.Fatalf("failed to seed context: %v", err)
	}
}

func (e *testEnv) context(t *testing.T) (domain.ConversationContext, error) {
	t.Helper()
	return e.sessions.Context(testTabID).Load(context.Background())
}
