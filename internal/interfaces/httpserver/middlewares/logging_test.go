package middlewares

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID(), LoggingMiddleware(zerolog.New(buf).Level(zerolog.InfoLevel)), MetricsMiddleware())
	engine.POST("/webhook/telegram", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func TestLoggingMiddleware_OmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	engine := newTestEngine(&buf)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/telegram?token=secret", strings.NewReader("{}")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/webhook/telegram", line["route"])
	assert.Equal(t, "/webhook/telegram", line["path"])
	assert.Equal(t, w.Header().Get(requestIDHeader), line["request_id"])
	assert.NotContains(t, buf.String(), "secret")
}

func TestLoggingMiddleware_ProbesLogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	engine := newTestEngine(&buf)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, buf.String())
}

func TestRouteOf_Unmatched(t *testing.T) {
	var buf bytes.Buffer
	engine := newTestEngine(&buf)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, unmatchedRoute, line["route"])
	assert.Equal(t, "warn", line["level"])
}

func TestRequestID_ReplacesImplausibleHeader(t *testing.T) {
	var buf bytes.Buffer
	engine := newTestEngine(&buf)

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader("{}"))
	req.Header.Set(requestIDHeader, "trace-abc-123")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "trace-abc-123", w.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader("{}"))
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDBytes+1))
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}
