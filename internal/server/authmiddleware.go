package server

import (
	"context"
	"net/http"

	"github.com/tjfontaine/chat-assistant/internal/auth"
)

type principalContextKey struct{}

// AuthMiddleware validates API keys and injects the authenticated
// principal into the request context. Requests without a valid key are
// rejected before any handler runs.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				http.Error(w, "Missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}

			principal, err := authenticator.ValidatePrincipal(apiKey)
			if err != nil {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal retrieves the authenticated principal from context.
// Returns an empty string if the request was not authenticated.
func GetPrincipal(ctx context.Context) string {
	if p, ok := ctx.Value(principalContextKey{}).(string); ok {
		return p
	}
	return ""
}
