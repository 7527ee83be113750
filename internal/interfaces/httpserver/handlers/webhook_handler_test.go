package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/ingest"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/handlers"
)

type ingesterFunc func(ctx context.Context, upd update.Update) (*ingest.Result, error)

func (f ingesterFunc) Handle(ctx context.Context, upd update.Update) (*ingest.Result, error) {
	return f(ctx, upd)
}

func newWebhookRouter(ingester handlers.Ingester, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/webhook/telegram", handlers.NewWebhookHandler(ingester, secret, zerolog.Nop()).Handle)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWebhook_ReadyOnGet(t *testing.T) {
	called := false
	r := newWebhookRouter(ingesterFunc(func(ctx context.Context, upd update.Update) (*ingest.Result, error) {
		called = true
		return nil, nil
	}), "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook/telegram", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ok": true, "status": "ready"}, decode(t, w))
	assert.False(t, called)
}

func TestWebhook_ProcessesUpdate(t *testing.T) {
	var got update.Update
	r := newWebhookRouter(ingesterFunc(func(ctx context.Context, upd update.Update) (*ingest.Result, error) {
		got = upd
		return &ingest.Result{Status: ingest.StatusProcessed, Kind: upd.Kind(), MessageID: 12, Warnings: []string{"analysis dropped"}}, nil
	}), "")

	body := `{"update_id":5,"message":{"message_id":7,"chat":{"id":1,"type":"private"},"from":{"id":1,"first_name":"Ivan"},"text":"hi"}}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "processed", resp["status"])
	assert.Equal(t, int64(5), got.UpdateID)
	require.NotNil(t, got.Message)
	assert.Equal(t, "hi", got.Message.Text)
}

func TestWebhook_FailureStillAnswersOK(t *testing.T) {
	r := newWebhookRouter(ingesterFunc(func(ctx context.Context, upd update.Update) (*ingest.Result, error) {
		return &ingest.Result{Status: ingest.StatusFailed, Kind: upd.Kind()}, errors.New("database unavailable")
	}), "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(`{"update_id":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", decode(t, w)["status"])
}

func TestWebhook_MalformedBody(t *testing.T) {
	r := newWebhookRouter(ingesterFunc(func(ctx context.Context, upd update.Update) (*ingest.Result, error) {
		t.Fatal("ingester must not be called")
		return nil, nil
	}), "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(`{"update_id":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_SecretToken(t *testing.T) {
	r := newWebhookRouter(ingesterFunc(func(ctx context.Context, upd update.Update) (*ingest.Result, error) {
		return &ingest.Result{Status: ingest.StatusIgnored, Kind: upd.Kind()}, nil
	}), "hook-secret")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(`{"update_id":1}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(`{"update_id":1}`))
	req.Header.Set(handlers.SecretTokenHeader, "hook-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", decode(t, w)["status"])
}
