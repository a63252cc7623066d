// ABOUTME: HTTP middleware for JWT authentication on operator endpoints
// ABOUTME: Extracts the bearer token and adds the operator subject to the request context

package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// WithOperator returns a context carrying the authenticated operator subject.
func WithOperator(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKey{}, subject)
}

// OperatorFromContext returns the authenticated operator subject, or "" when
// the request was not authenticated.
func OperatorFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(contextKey{}).(string)
	return subject
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// RequireOperator creates an HTTP middleware that rejects requests without a
// valid bearer token. A nil verifier disables auth entirely, for deployments
// that front the service with their own gateway.
func RequireOperator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				http.Error(w, `{"error":"`+errMsg+`"}`, http.StatusUnauthorized)
				return
			}

			subject, err := verifier.Verify(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), subject)))
		})
	}
}
