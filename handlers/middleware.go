package handlers

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// AdminContextKey marks requests that carry a live admin session.
	AdminContextKey ContextKey = "isAdmin"
	// TokenContextKey holds the raw bearer token, if any.
	TokenContextKey ContextKey = "adminToken"
)

// SessionChecker reports whether a bearer token names a live admin session.
type SessionChecker interface {
	IsAdmin(ctx context.Context, token string) bool
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return websocketToken(r)
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// websocketToken reads the token browsers pass as the second websocket
// subprotocol ("bearer", "<token>"), since they cannot set headers on upgrades.
func websocketToken(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AdminSession resolves the optional bearer token once per request. Public
// endpoints use the result to decide whether hidden content is visible.
func AdminSession(sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			ctx := context.WithValue(r.Context(), TokenContextKey, token)
			ctx = context.WithValue(ctx, AdminContextKey, sessions.IsAdmin(ctx, token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAdmin reads the flag set by AdminSession.
func IsAdmin(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(AdminContextKey).(bool)
	return isAdmin
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenContextKey).(string)
	return token
}

// RequireAdmin rejects requests without an admin session. It must run after AdminSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
