package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func protected(cfg Config) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return Middleware(cfg)(next)
}

func TestMiddlewareDisabledPassesEverything(t *testing.T) {
	h := protected(Config{Enabled: false})
	req := httptest.NewRequest("GET", "/api/v1/satellites", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMiddlewareTokenChecks(t *testing.T) {
	h := protected(Config{Enabled: true, Token: "s3cret"})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/api/v1/satellites", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/v1/satellites", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "/api/v1/satellites", "Bearer nope", http.StatusUnauthorized},
		{"empty bearer", "/api/v1/satellites", "Bearer ", http.StatusUnauthorized},
		{"valid token", "/api/v1/satellites", "Bearer s3cret", http.StatusNoContent},
		{"healthz public", "/healthz", "", http.StatusNoContent},
		{"readyz public", "/readyz", "", http.StatusNoContent},
		{"metrics public", "/metrics", "", http.StatusNoContent},
		{"metadata public", "/api/v1/tle/metadata", "", http.StatusNoContent},
		{"state reads public", "/api/v1/state/25544", "", http.StatusNoContent},
		{"fetch gated", "/api/v1/tle/fetch", "", http.StatusUnauthorized},
		{"keyframes gated", "/api/v1/keyframes/latest", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)

			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
			}
		})
	}
}
