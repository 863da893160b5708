package auth

import (
	"context"
	"net/http"
)

// contextKey is unexported so only this package can read or write the
// user id stored in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// AccessCookie is the name of the HttpOnly cookie carrying the access JWT.
const AccessCookie = "access_token"

// RefreshCookie is the name of the HttpOnly cookie carrying the refresh token.
const RefreshCookie = "refresh_token"

// RequireAuth enforces authentication on protected routes. It reads the
// access-token cookie, validates the JWT, and stores the userID in the
// request context; a missing or invalid token stops the chain with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) when the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(AccessCookie)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
