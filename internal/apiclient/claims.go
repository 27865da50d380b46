package apiclient

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of an access token the web tier cares about. They are
// read without signature verification: the backend remains the authority,
// the web tier only uses them for display and to refresh ahead of expiry.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// TokenClaims decodes the payload of a JWT access token.
func TokenClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	return c, nil
}

// tokenExpired reports whether a JWT is past its exp claim. Opaque tokens and
// tokens without exp are treated as valid until the backend rejects them.
func tokenExpired(token string, now time.Time) bool {
	c, err := TokenClaims(token)
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}
