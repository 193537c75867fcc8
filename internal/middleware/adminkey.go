package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

type contextKey string

const adminActorKey contextKey = "admin_actor"

// AdminKeyMiddleware authenticates administrative requests with a shared
// API key supplied in the X-Admin-Key header. The X-Admin-Actor header
// identifies the acting administrator for the audit trail.
type AdminKeyMiddleware struct {
	keys []string
}

// NewAdminKeyMiddleware creates a new admin key middleware.
func NewAdminKeyMiddleware(keys []string) *AdminKeyMiddleware {
	return &AdminKeyMiddleware{
		keys: keys,
	}
}

// Handler returns middleware that requires a valid admin key.
// If no keys are configured, all admin requests are rejected.
func (m *AdminKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get("X-Admin-Key")
		if presented == "" || !m.matches(presented) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "A valid admin key is required.",
			})
			return
		}

		actor := r.Header.Get("X-Admin-Actor")
		if actor == "" {
			actor = "admin"
		}

		ctx := context.WithValue(r.Context(), adminActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// matches checks the presented key against every configured key using
// constant-time comparison to prevent timing attacks.
func (m *AdminKeyMiddleware) matches(presented string) bool {
	ok := false
	for _, key := range m.keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

// AdminActor returns the acting administrator recorded by the admin key
// middleware, or empty string when the request was not authenticated.
func AdminActor(ctx context.Context) string {
	actor, _ := ctx.Value(adminActorKey).(string)
	return actor
}
