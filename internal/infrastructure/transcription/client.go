// Package transcription turns voice and audio messages into text with an
// OpenAI-compatible speech-to-text endpoint.
package transcription

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

const (
	DefaultModel    = openai.Whisper1
	defaultMaxSize  = 25 << 20
	defaultFileName = "voice.ogg"
)

type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	MaxBytes int64
}

// Client downloads the audio and uploads it to the transcription API.
type Client struct {
	openai   *openai.Client
	download *resty.Client
	model    string
	maxBytes int64
	log      zerolog.Logger
}

var _ content.Transcriber = (*Client)(nil)

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oaCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		openai:   openai.NewClientWithConfig(oaCfg),
		download: resty.New().SetTimeout(cfg.Timeout),
		model:    cfg.Model,
		maxBytes: cfg.MaxBytes,
		log:      log.With().Str("component", "transcription").Logger(),
	}
}

func (c *Client) Transcribe(ctx context.Context, audioURL, fileName string) (string, error) {
	start := time.Now()
	text, err := c.transcribe(ctx, audioURL, fileName)
	metrics.RecordExternalCall("transcription", "transcribe", err == nil, time.Since(start).Seconds())
	return text, err
}

func (c *Client) transcribe(ctx context.Context, audioURL, fileName string) (string, error) {
	audio, err := c.fetch(ctx, audioURL)
	if err != nil {
		return "", err
	}
	if fileName == "" {
		fileName = audioFileName(audioURL, audio)
	}

	resp, err := c.openai.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: fileName,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "transcription request failed", err, "91b4d2e6-5a7c-4f03-8e1d-6c9a2b4f7e11")
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) fetch(ctx context.Context, audioURL string) ([]byte, error) {
	resp, err := c.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(audioURL)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "audio download failed", err, "91b4d2e6-5a7c-4f03-8e1d-6c9a2b4f7e12")
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "audio download returned "+resp.Status(), nil, "91b4d2e6-5a7c-4f03-8e1d-6c9a2b4f7e13")
	}
	data, err := io.ReadAll(io.LimitReader(body, c.maxBytes+1))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "audio download interrupted", err, "91b4d2e6-5a7c-4f03-8e1d-6c9a2b4f7e14")
	}
	if int64(len(data)) > c.maxBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation, "audio exceeds transcription size limit", nil, "91b4d2e6-5a7c-4f03-8e1d-6c9a2b4f7e15").
			WithField("max_bytes", c.maxBytes)
	}
	return data, nil
}

// audioFileName picks the upload name. The API detects the audio format from its
// extension, so a URL without one falls back to sniffing the content.
func audioFileName(u string, audio []byte) string {
	if name := fileNameFromURL(u); name != "" {
		return name
	}
	detected := mimetype.Detect(audio)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || strings.HasPrefix(m.String(), "video/") {
			return "voice" + detected.Extension()
		}
	}
	return defaultFileName
}

func fileNameFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	name := path.Base(u)
	if name == "" || name == "." || name == "/" || !strings.Contains(name, ".") {
		return ""
	}
	return name
}
