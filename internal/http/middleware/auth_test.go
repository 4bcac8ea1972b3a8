package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bantay/internal/http/middleware"
	"bantay/internal/infra"
	"bantay/internal/metrics"
)

type stubVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func newTestRouter(verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(verifier))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uid":     middleware.CallerUID(c),
			"role":    middleware.CallerRole(c),
			"canEdit": middleware.CanEdit(c),
		})
	})
	return r
}

type caller struct {
	UID     string `json:"uid"`
	Role    string `json:"role"`
	CanEdit bool   `json:"canEdit"`
}

func get(t *testing.T, r http.Handler, auth string) (int, caller) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out caller
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestAuth_Rejects(t *testing.T) {
	ok := &stubVerifier{token: &infra.FirebaseToken{UID: "user1"}}
	cases := []struct {
		name     string
		verifier infra.TokenVerifier
		header   string
	}{
		{"missing header", ok, ""},
		{"wrong scheme", ok, "Token sometoken"},
		{"empty token", ok, "Bearer   "},
		{"verifier error", &stubVerifier{err: errors.New("bad token")}, "Bearer invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := get(t, newTestRouter(tc.verifier), tc.header)
			assert.Equal(t, http.StatusUnauthorized, code)
		})
	}
}

func TestAuth_AdminCanEdit(t *testing.T) {
	token := &infra.FirebaseToken{UID: "lgu-admin", Claims: map[string]interface{}{"role": "admin"}}
	code, got := get(t, newTestRouter(&stubVerifier{token: token}), "Bearer validtoken")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, caller{UID: "lgu-admin", Role: "admin", CanEdit: true}, got)
}

func TestAuth_NoRoleClaim(t *testing.T) {
	token := &infra.FirebaseToken{UID: "resident", Claims: map[string]interface{}{}}
	code, got := get(t, newTestRouter(&stubVerifier{token: token}), "Bearer validtoken")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "resident", got.UID)
	assert.Empty(t, got.Role)
	assert.False(t, got.CanEdit)
}

func TestAuth_NonStringRoleIgnored(t *testing.T) {
	token := &infra.FirebaseToken{UID: "u", Claims: map[string]interface{}{"role": 7}}
	code, got := get(t, newTestRouter(&stubVerifier{token: token}), "Bearer validtoken")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, got.CanEdit)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(zerolog.Nop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestLogging_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(middleware.Logging(zerolog.Nop(), m))
	r.GET("/api/views/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/views/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `bantay_http_requests_total{method="GET",path="/api/views/:id",status="204"} 1`)
}
