package middleware

import (
	"net/http"

	"clevermock-web/internal/observability"
	"clevermock-web/internal/session"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Identity makes sure every request carries the browser's client and tab
// ids, issuing cookies for missing ones, and tags the request logger.
func Identity(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sessions.EnsureIdentity(w, r)

			ctx := session.WithIdentity(r.Context(), id)
			ctx = observability.WithClientID(ctx, id.ClientID)
			if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
				ctx = observability.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
