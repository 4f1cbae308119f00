package middleware

import (
	"net/http"
	"strings"

	"carelock/internal/token"
	"carelock/pkg/requestcontext"
)

// Auth authenticates the bearer token and stores the resulting actor in the
// request context. Requests without a valid token are rejected with an
// opaque 401.
func Auth(verifier *token.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			actor, err := verifier.Actor(raw)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), actor)))
		})
	}
}
