package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy_Allowed(t *testing.T) {
	p := NewOriginPolicy([]string{"app://nodedesk", "https://UI.example:8443/"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://LOCALHOST", true},
		{"http://127.0.0.1:1750", true},
		{"http://[::1]:1750", true},
		{"app://nodedesk", true},
		{"https://ui.example:8443", true},
		{"https://evil.example", false},
		{"http://localhost.evil.example", false},
		{"https://ui.example", false},
		{"null", false},
		{"file://", false},
		{"ws://localhost", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allowed(tt.origin))
		})
	}

	var none *OriginPolicy
	assert.True(t, none.Allowed("http://127.0.0.1"))
	assert.False(t, none.Allowed("app://nodedesk"))
}

func TestOriginPolicy_Middleware(t *testing.T) {
	reached := false
	h := NewOriginPolicy(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/shutdown", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)

	req = httptest.NewRequest(http.MethodPost, "/api/shutdown", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}
