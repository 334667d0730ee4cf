// Package authmw provides HTTP middleware for bearer token authentication
// and actor identity resolution. The core never sees sessions, only the
// opaque actor id this package stashes in the request context.
package authmw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type actorKey struct{}

// BearerToken returns middleware that validates the Authorization header
// contains a Bearer token matching the expected value. Comparison uses
// constant-time equality to prevent timing side-channel attacks.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			got := []byte(auth[len("Bearer "):])

			if subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Actor returns middleware that resolves the acting user id from the
// X-Actor-Id header into the request context. An absent header is not
// rejected here: operations that require an identity fail with their
// own auth error, read-only ones proceed anonymously.
func Actor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get("X-Actor-Id")); id != "" {
				r = r.WithContext(context.WithValue(r.Context(), actorKey{}, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorID returns the acting user id resolved for this request, or the
// empty string if the request is anonymous.
func ActorID(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok {
		return id
	}
	return ""
}
