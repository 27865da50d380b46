package middleware

import (
	"net/http"
	"strings"

	"clevermock-web/internal/session"
)

// Page prefixes that need a signed-in browser, and pages a signed-in browser
// is sent away from.
var (
	ProtectedPrefixes = []string{"/prepare", "/chat", "/interview"}
	AuthPrefixes      = []string{"/login", "/signup"}
)

// RouteGuard redirects page requests based on the presence of the access
// token cookie. Only presence is checked; an expired token is refreshed by
// the first API call the page makes.
func RouteGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signedIn := false
			if c, err := r.Cookie(session.AccessTokenCookie); err == nil && c.Value != "" {
				signedIn = true
			}

			switch {
			case !signedIn && matchesPrefix(r.URL.Path, ProtectedPrefixes):
				http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
				return
			case signedIn && matchesPrefix(r.URL.Path, AuthPrefixes):
				http.Redirect(w, r, "/prepare", http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchesPrefix matches whole path segments, so /chat matches /chat/x but
// not /chatter.
func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
