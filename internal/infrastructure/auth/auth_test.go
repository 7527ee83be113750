package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(v *Validator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", v.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeySubject))
	})
	return r
}

func signed(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestMiddleware(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := Config{Enabled: true, Issuer: "https://auth.example/realms/jan", Audience: "helpdesk", ServiceKey: "s3cret"}
	v := NewValidatorWithKeyfunc(cfg, func(*jwt.Token) (any, error) { return &key.PublicKey, nil }, zerolog.Nop())
	r := newRouter(v)

	valid := jwt.MapClaims{
		"sub": "agent-7",
		"iss": cfg.Issuer,
		"aud": "helpdesk",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	wrongAudience := jwt.MapClaims{"sub": "x", "iss": cfg.Issuer, "aud": "billing", "exp": time.Now().Add(time.Hour).Unix()}
	expired := jwt.MapClaims{"sub": "x", "iss": cfg.Issuer, "aud": "helpdesk", "exp": time.Now().Add(-time.Hour).Unix()}

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		body    string
	}{
		{"no credentials", nil, http.StatusUnauthorized, ""},
		{"valid token", map[string]string{"Authorization": "Bearer " + signed(t, key, valid)}, http.StatusOK, "agent-7"},
		{"foreign signature", map[string]string{"Authorization": "Bearer " + signed(t, other, valid)}, http.StatusUnauthorized, ""},
		{"wrong audience", map[string]string{"Authorization": "Bearer " + signed(t, key, wrongAudience)}, http.StatusUnauthorized, ""},
		{"expired", map[string]string{"Authorization": "Bearer " + signed(t, key, expired)}, http.StatusUnauthorized, ""},
		{"service key", map[string]string{ServiceKeyHeader: "s3cret"}, http.StatusOK, "service"},
		{"wrong service key", map[string]string{ServiceKeyHeader: "guess"}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			for k, val := range tt.headers {
				req.Header.Set(k, val)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestMiddleware_DisabledPassesThrough(t *testing.T) {
	v := NewValidatorWithKeyfunc(Config{}, nil, zerolog.Nop())
	w := httptest.NewRecorder()
	newRouter(v).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, v.Ready())
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
}
