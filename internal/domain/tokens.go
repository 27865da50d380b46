package domain

import "context"

// Tokens is the credential pair issued by the backend on login and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsZero reports whether neither token is present.
func (t Tokens) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// TokenStore persists the token pair for one browser. Every mutation writes
// through to durable storage and to the access_token cookie.
type TokenStore interface {
	// Load returns the zero Tokens (and no error) when nothing is stored.
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}
