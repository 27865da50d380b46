package handler

import (
	"log/slog"
	"net/http"
	"time"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/observability"
)

// AuthHandler handles account endpoints on behalf of the browser
type AuthHandler struct {
	clients *SessionClients
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(clients *SessionClients) *AuthHandler {
	return &AuthHandler{clients: clients}
}

// UserResponse describes the signed-in user
type UserResponse struct {
	ID        string     `json:"id,omitempty"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
}

// Signup registers an account with the backend. The user logs in afterwards.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var form SignupForm
	if !decodeForm(w, r, &form) {
		return
	}

	created, err := h.clients.Client(w, r).Signup(r.Context(), apiclient.SignupRequest{
		Email:    form.Email,
		Password: form.Password,
		FullName: form.FullName,
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Login authenticates and stores the token pair for this browser
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if !decodeForm(w, r, &form) {
		return
	}

	resp, err := h.clients.Client(w, r).Login(r.Context(), apiclient.LoginRequest{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	user := userFromToken(resp.AccessToken)
	if user.Email == "" {
		user.Email = form.Email
	}

	observability.FromContext(r.Context()).Info("user logged in")
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, User: user})
}

// Logout forgets this browser's tokens
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.Client(w, r).Logout(r.Context()); err != nil {
		observability.FromContext(r.Context()).Error("failed to log out",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to logout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the user behind the current session, refreshing the access
// token when needed. The access_token cookie is resynced with the store, so
// a session changed over the interview socket reaches the browser here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	tokens := h.clients.Tokens(w, r)
	token, err := h.clients.api.WithTokens(tokens).GetValidAccessToken(r.Context())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	tokens.SyncCookie(r, token)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, userFromToken(token))
}

func userFromToken(token string) UserResponse {
	claims, err := apiclient.TokenClaims(token)
	if err != nil {
		return UserResponse{}
	}
	u := UserResponse{ID: claims.Subject, Email: claims.Email}
	if !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt.UTC()
		u.ExpiresAt = &exp
	}
	return u
}
