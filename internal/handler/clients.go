package handler

import (
	"net/http"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/session"
)

// SessionClients binds the shared backend client to the browser making the
// request.
type SessionClients struct {
	sessions *session.Manager
	api      *apiclient.Client
}

func NewSessionClients(sessions *session.Manager, api *apiclient.Client) *SessionClients {
	return &SessionClients{sessions: sessions, api: api}
}

func (s *SessionClients) identity(w http.ResponseWriter, r *http.Request) session.Identity {
	if id, ok := session.IdentityFrom(r.Context()); ok {
		return id
	}
	return s.sessions.EnsureIdentity(w, r)
}

// Client returns a backend client whose token changes are written to w.
func (s *SessionClients) Client(w http.ResponseWriter, r *http.Request) *apiclient.Client {
	return s.api.WithTokens(s.Tokens(w, r))
}

// Tokens returns the token store of the requesting browser, writing cookie
// changes to w.
func (s *SessionClients) Tokens(w http.ResponseWriter, r *http.Request) *session.TokenStore {
	return s.sessions.Tokens(s.identity(w, r).ClientID, session.ResponseSink{W: w})
}

// Contexts returns the conversation store of the requesting tab.
func (s *SessionClients) Contexts(w http.ResponseWriter, r *http.Request) *session.ContextStore {
	return s.sessions.Context(s.identity(w, r).TabID)
}
