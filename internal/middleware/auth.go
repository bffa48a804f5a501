package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aulianza/mindsignal/internal/domain/viewer"
)

type contextKey string

const viewerKey contextKey = "viewer"

// APIKeyAuth resolves the Authorization header into a viewer context (role,
// subject, tenant). Resolution happens once per request; handlers only read
// the resolved context.
func APIKeyAuth(viewers map[string]viewer.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health/metrics probes
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// Constant-time comparison to prevent timing attacks
			var resolved *viewer.Context
			for key, vc := range viewers {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					v := vc
					resolved = &v
					break
				}
			}
			if resolved == nil {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), viewerKey, *resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetViewerFromContext extracts the resolved viewer from context
func GetViewerFromContext(ctx context.Context) (viewer.Context, bool) {
	vc, ok := ctx.Value(viewerKey).(viewer.Context)
	return vc, ok
}

// WithViewer stores a viewer in the context; used by tests and internal callers.
func WithViewer(ctx context.Context, vc viewer.Context) context.Context {
	return context.WithValue(ctx, viewerKey, vc)
}

// RequireTenantMatch ensures the URL tenant matches the authenticated
// viewer's tenant, so one school's key can never read another's data.
func RequireTenantMatch(urlTenant func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			vc, ok := GetViewerFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if t := urlTenant(r); t != "" && t != vc.TenantID {
				http.Error(w, "tenant mismatch", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
