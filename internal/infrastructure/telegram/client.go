// Package telegram is a minimal Bot API client: file and chat photo lookup, sending
// replies and managing the webhook.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"jan-server/services/helpdesk-api/internal/domain/command"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/identity"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/infrastructure/cache"
	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

const (
	DefaultBaseURL = "https://api.telegram.org"

	fileCachePrefix = "tg:file:"
	maxRetryAfter   = 30 * time.Second
)

// AllowedUpdates are the update kinds the webhook subscribes to. message_reaction is
// only delivered when listed explicitly.
var AllowedUpdates = []string{
	string(update.KindMessage),
	string(update.KindEditedMessage),
	string(update.KindChannelPost),
	string(update.KindEditedChannelPost),
	string(update.KindReaction),
	string(update.KindMembership),
}

type Config struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	SendRPS    float64
	FileURLTTL time.Duration
}

type Client struct {
	http       *resty.Client
	token      string
	baseURL    string
	limiter    *rate.Limiter
	files      cache.Cache
	fileURLTTL time.Duration
	log        zerolog.Logger

	// retryWait sleeps before retrying a throttled call.
	retryWait func(ctx context.Context, d time.Duration) error
}

var (
	_ content.MediaResolver = (*Client)(nil)
	_ identity.PhotoFetcher = (*Client)(nil)
	_ command.ReplySender   = (*Client)(nil)
)

// NewClient builds the client. files may be nil to disable file URL caching.
func NewClient(cfg Config, files cache.Cache, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.SendRPS > 0 {
		limit = rate.Limit(cfg.SendRPS)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.Timeout),
		token:      cfg.Token,
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, 1),
		files:      files,
		fileURLTTL: cfg.FileURLTTL,
		log:        log.With().Str("component", "telegram-client").Logger(),
		retryWait:  sleepContext,
	}
}

// ===============================================
// Bot API envelope
// ===============================================

type apiResponse struct {
	OK          bool               `json:"ok"`
	Result      json.RawMessage    `json:"result"`
	Description string             `json:"description"`
	ErrorCode   int                `json:"error_code"`
	Parameters  *responseParameter `json:"parameters"`
}

type responseParameter struct {
	RetryAfter int `json:"retry_after"`
}

type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	FilePath string `json:"file_path"`
}

type chatInfo struct {
	ID    int64 `json:"id"`
	Photo *struct {
		SmallFileID string `json:"small_file_id"`
		BigFileID   string `json:"big_file_id"`
	} `json:"photo"`
}

type WebhookInfo struct {
	URL                  string   `json:"url" yaml:"url"`
	PendingUpdateCount   int      `json:"pending_update_count" yaml:"pending_update_count"`
	LastErrorDate        int64    `json:"last_error_date,omitempty" yaml:"last_error_date,omitempty"`
	LastErrorMessage     string   `json:"last_error_message,omitempty" yaml:"last_error_message,omitempty"`
	MaxConnections       int      `json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
	AllowedUpdates       []string `json:"allowed_updates,omitempty" yaml:"allowed_updates,omitempty"`
	HasCustomCertificate bool     `json:"has_custom_certificate" yaml:"has_custom_certificate"`
}

type replyParameters struct {
	MessageID                int64 `json:"message_id"`
	AllowSendingWithoutReply bool  `json:"allow_sending_without_reply"`
}

type sendMessageRequest struct {
	ChatID          int64            `json:"chat_id"`
	Text            string           `json:"text"`
	ReplyParameters *replyParameters `json:"reply_parameters,omitempty"`
}

// ===============================================
// Operations
// ===============================================

// FileURL resolves a file id through getFile. Resolved URLs are cached for the
// configured TTL since Telegram keeps them valid for about an hour.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation, "file id is empty", nil, "6f1c0b2e-7d3a-4e58-9b46-0a2c8e4d6f01")
	}
	if c.files != nil {
		if url, ok, err := c.files.Get(ctx, fileCachePrefix+fileID); err != nil {
			c.log.Warn().Err(err).Msg("file url cache read failed")
		} else if ok {
			return url, nil
		}
	}

	var f File
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &f); err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "getFile returned no file path", nil, "6f1c0b2e-7d3a-4e58-9b46-0a2c8e4d6f02")
	}
	url := c.baseURL + "/file/bot" + c.token + "/" + f.FilePath

	if c.files != nil {
		if err := c.files.Set(ctx, fileCachePrefix+fileID, url, c.fileURLTTL); err != nil {
			c.log.Warn().Err(err).Msg("file url cache write failed")
		}
	}
	return url, nil
}

// ChatPhotoURL returns "" without error when the chat has no photo.
func (c *Client) ChatPhotoURL(ctx context.Context, chatID int64) (string, error) {
	var chat chatInfo
	if err := c.call(ctx, "getChat", map[string]any{"chat_id": chatID}, &chat); err != nil {
		return "", err
	}
	if chat.Photo == nil || chat.Photo.SmallFileID == "" {
		return "", nil
	}
	return c.FileURL(ctx, chat.Photo.SmallFileID)
}

// SendMessage posts text to chatID, as a reply when replyTo is set. Sends are
// throttled to the configured rate.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "send throttle interrupted", err, "6f1c0b2e-7d3a-4e58-9b46-0a2c8e4d6f03")
	}
	req := sendMessageRequest{ChatID: chatID, Text: text}
	if replyTo > 0 {
		req.ReplyParameters = &replyParameters{MessageID: replyTo, AllowSendingWithoutReply: true}
	}
	return c.call(ctx, "sendMessage", req, nil)
}

func (c *Client) SetWebhook(ctx context.Context, url, secret string, dropPending bool) error {
	body := map[string]any{
		"url":                  url,
		"allowed_updates":      AllowedUpdates,
		"drop_pending_updates": dropPending,
	}
	if secret != "" {
		body["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", body, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": dropPending}, nil)
}

func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", map[string]any{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// call posts one Bot API method and decodes result into out. A 429 is retried once
// after the advertised delay.
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		env, err := c.post(ctx, method, body)
		metrics.RecordExternalCall("telegram", method, err == nil && env.OK, time.Since(start).Seconds())
		if err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "telegram "+method+" request failed", c.redact(err), "6f1c0b2e-7d3a-4e58-9b46-0a2c8e4d6f04")
		}
		if env.OK {
			if out == nil || len(env.Result) == 0 {
				return nil
			}
			if err := json.Unmarshal(env.Result, out); err != nil {
				return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "telegram "+method+" returned malformed result", err, "6f1c0b2e-7d3a-4e58-9b46-0a2c8e4d6f05")
			}
			return nil
		}

		if env.ErrorCode == 429 && attempt == 0 && env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			wait := time.Duration(env.Parameters.RetryAfter) * time.Second
			if wait > maxRetryAfter {
				wait = maxRetryAfter
			}
			c.log.Warn().Str("method", method).Dur("retry_after", wait).Msg("telegram throttled request")
			if err := c.retryWait(ctx, wait); err != nil {
				return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "telegram retry interrupted", err, "6f1c0b2e-7d3a-4e58-9b46-0a2c8e4d6f06")
			}
			continue
		}

		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("telegram %s failed: %d %s", method, env.ErrorCode, env.Description), nil, "6f1c0b2e-7d3a-4e58-9b46-0a2c8e4d6f07").
			WithField("error_code", env.ErrorCode)
	}
}

func (c *Client) post(ctx context.Context, method string, body any) (*apiResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/bot" + c.token + "/" + method)
	if err != nil {
		return nil, err
	}
	var env apiResponse
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode %s response (http %d): %w", method, resp.StatusCode(), err)
	}
	return &env, nil
}

// redact strips the bot token, which is part of every request URL, from transport
// errors.
func (c *Client) redact(err error) error {
	if c.token == "" || !strings.Contains(err.Error(), c.token) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), c.token, "<token>"))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
