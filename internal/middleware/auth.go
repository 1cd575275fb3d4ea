// Package middleware provides HTTP middlewares for authentication,
// client version checks and request logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atinyakov/mottokeeper/internal/common"
)

type ctxKey string

const userKey ctxKey = "user"

// Authenticator resolves a bearer token to a username.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Authenticate is a middleware that requires an "Authorization: Bearer"
// header carrying a valid token.
//
// On success it stores the token's username in the request context, so it
// can be used downstream via GetUsernameFromContext.
func Authenticate(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				common.WriteMessage(w, http.StatusUnauthorized, "missing token")
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				common.WriteMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			username, err := gate.Authenticate(strings.TrimSpace(token))
			if err != nil {
				common.WriteMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsernameFromContext extracts the authenticated username from the
// request context. Returns an empty string if not found.
func GetUsernameFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// WithUsername returns a copy of ctx carrying username, as Authenticate does.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userKey, username)
}
