package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/infrastructure/cache"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

const testToken = "123:secret"

type botAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	bodies   map[string]map[string]any
	handlers map[string]func(body map[string]any) string
}

func newBotAPI(t *testing.T) (*botAPI, *httptest.Server) {
	t.Helper()
	api := &botAPI{calls: map[string]int{}, bodies: map[string]map[string]any{}, handlers: map[string]func(map[string]any) string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := "/bot" + testToken + "/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		method := strings.TrimPrefix(r.URL.Path, prefix)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		api.mu.Lock()
		api.calls[method]++
		api.bodies[method] = body
		handler := api.handlers[method]
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if handler == nil {
			_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
			return
		}
		_, _ = io.WriteString(w, handler(body))
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

func newTestClient(t *testing.T, baseURL string, files cache.Cache) *Client {
	t.Helper()
	c := NewClient(Config{Token: testToken, BaseURL: baseURL, Timeout: 2 * time.Second, FileURLTTL: time.Minute}, files, zerolog.Nop())
	c.retryWait = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestFileURL_ResolvesAndCaches(t *testing.T) {
	api, srv := newBotAPI(t)
	api.handlers["getFile"] = func(body map[string]any) string {
		return `{"ok":true,"result":{"file_id":"AgAD","file_path":"photos/file_1.jpg"}}`
	}
	files, err := cache.NewMemoryCache(16)
	require.NoError(t, err)
	c := newTestClient(t, srv.URL, files)

	for i := 0; i < 2; i++ {
		url, err := c.FileURL(context.Background(), "AgAD")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/file/bot"+testToken+"/photos/file_1.jpg", url)
	}
	assert.Equal(t, 1, api.calls["getFile"])
	assert.Equal(t, "AgAD", api.bodies["getFile"]["file_id"])
}

func TestFileURL_ErrorEnvelope(t *testing.T) {
	api, srv := newBotAPI(t)
	api.handlers["getFile"] = func(body map[string]any) string {
		return `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`
	}
	c := newTestClient(t, srv.URL, nil)

	_, err := c.FileURL(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
	assert.Contains(t, err.Error(), "invalid file_id")
	assert.NotContains(t, err.Error(), testToken)
}

func TestChatPhotoURL(t *testing.T) {
	api, srv := newBotAPI(t)
	api.handlers["getChat"] = func(body map[string]any) string {
		if body["chat_id"].(float64) == 1 {
			return `{"ok":true,"result":{"id":1}}`
		}
		return `{"ok":true,"result":{"id":2,"photo":{"small_file_id":"small","big_file_id":"big"}}}`
	}
	api.handlers["getFile"] = func(body map[string]any) string {
		return `{"ok":true,"result":{"file_id":"small","file_path":"profile_photos/p.jpg"}}`
	}
	c := newTestClient(t, srv.URL, nil)

	url, err := c.ChatPhotoURL(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = c.ChatPhotoURL(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/profile_photos/p.jpg"))
	assert.Equal(t, "small", api.bodies["getFile"]["file_id"])
}

func TestSendMessage_ReplyParameters(t *testing.T) {
	api, srv := newBotAPI(t)
	c := newTestClient(t, srv.URL, nil)

	require.NoError(t, c.SendMessage(context.Background(), -100, "Ticket #7 created", 42))
	body := api.bodies["sendMessage"]
	assert.Equal(t, float64(-100), body["chat_id"])
	assert.Equal(t, "Ticket #7 created", body["text"])
	reply, ok := body["reply_parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), reply["message_id"])
	assert.Equal(t, true, reply["allow_sending_without_reply"])

	require.NoError(t, c.SendMessage(context.Background(), -100, "hello", 0))
	_, hasReply := api.bodies["sendMessage"]["reply_parameters"]
	assert.False(t, hasReply)
}

func TestCall_RetriesOnceWhenThrottled(t *testing.T) {
	api, srv := newBotAPI(t)
	attempts := 0
	api.handlers["sendMessage"] = func(body map[string]any) string {
		attempts++
		if attempts == 1 {
			return `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`
		}
		return `{"ok":true,"result":{"message_id":5}}`
	}
	c := newTestClient(t, srv.URL, nil)
	var waited time.Duration
	c.retryWait = func(ctx context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	require.NoError(t, c.SendMessage(context.Background(), 1, "hi", 0))
	assert.Equal(t, 2, api.calls["sendMessage"])
	assert.Equal(t, 3*time.Second, waited)
}

func TestSetWebhook_SubscribesToReactions(t *testing.T) {
	api, srv := newBotAPI(t)
	c := newTestClient(t, srv.URL, nil)

	require.NoError(t, c.SetWebhook(context.Background(), "https://helpdesk.example/webhook/telegram", "s3cret", false))
	body := api.bodies["setWebhook"]
	assert.Equal(t, "https://helpdesk.example/webhook/telegram", body["url"])
	assert.Equal(t, "s3cret", body["secret_token"])
	assert.Contains(t, body["allowed_updates"], "message_reaction")
	assert.Contains(t, body["allowed_updates"], "my_chat_member")
}
