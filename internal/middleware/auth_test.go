package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulianza/mindsignal/internal/domain/viewer"
)

func testViewers() map[string]viewer.Context {
	return map[string]viewer.Context{
		"student-key": {Role: viewer.RoleStudent, SubjectID: "s-1", TenantID: "sekolah-1"},
		"staff-key":   {Role: viewer.RoleProfessional, TenantID: "sekolah-1"},
	}
}

func TestAPIKeyAuth(t *testing.T) {
	var resolved viewer.Context
	var ok bool
	handler := APIKeyAuth(testViewers())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved, ok = GetViewerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"bearer key", "Bearer student-key", http.StatusOK},
		{"bare key", "staff-key", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"unknown key", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok = false
			req := httptest.NewRequest(http.MethodGet, "/v1/sekolah-1/triage", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				require.True(t, ok, "viewer must be resolved into the request context")
				assert.Equal(t, "sekolah-1", resolved.TenantID)
			}
		})
	}
}

func TestAPIKeyAuthSkipsProbes(t *testing.T) {
	handler := APIKeyAuth(testViewers())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/health/live", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "probe %s must not require a key", path)
	}
}

func TestRequireTenantMatch(t *testing.T) {
	mw := RequireTenantMatch(func(r *http.Request) string {
		return r.URL.Query().Get("tenant")
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	vc := viewer.Context{Role: viewer.RoleProfessional, TenantID: "sekolah-1"}

	req := httptest.NewRequest(http.MethodGet, "/?tenant=sekolah-1", nil)
	req = req.WithContext(WithViewer(req.Context(), vc))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/?tenant=sekolah-2", nil)
	req = req.WithContext(WithViewer(req.Context(), vc))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "one tenant's key must never read another's data")
}
