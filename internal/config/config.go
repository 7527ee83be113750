package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v10"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all environment backed configuration for helpdesk-api.
type Config struct {
	// HTTP Server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8090"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Storage
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DBReadURL    string `env:"DB_READ_URL"`
	DBMaxIdle    int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpen    int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	CreateDBIfNA bool   `env:"DB_CREATE_IF_MISSING" envDefault:"false"`

	// Telegram
	TelegramBotToken      string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramBotUsername   string        `env:"TELEGRAM_BOT_USERNAME"`
	TelegramAPIBaseURL    string        `env:"TELEGRAM_API_BASE_URL" envDefault:"https://api.telegram.org"`
	TelegramWebhookSecret string        `env:"TELEGRAM_WEBHOOK_SECRET"`
	TelegramWebhookURL    string        `env:"TELEGRAM_WEBHOOK_URL"`
	TelegramTimeout       time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"10s"`
	TelegramSendRPS       float64       `env:"TELEGRAM_SEND_RPS" envDefault:"25"`
	FileURLCacheTTL       time.Duration `env:"FILE_URL_CACHE_TTL" envDefault:"50m"`
	FileURLCacheSize      int           `env:"FILE_URL_CACHE_SIZE" envDefault:"2048"`

	// Identity directory
	StaffTelegramIDs []int64  `env:"STAFF_TELEGRAM_IDS" envSeparator:","`
	StaffUsernames   []string `env:"STAFF_USERNAMES" envSeparator:","`
	PartnerUsernames []string `env:"PARTNER_USERNAMES" envSeparator:","`

	// Commitments
	Timezone string `env:"HELPDESK_TIMEZONE" envDefault:"Europe/Moscow"`

	// Transcription
	TranscriptionEnabled bool          `env:"TRANSCRIPTION_ENABLED" envDefault:"false"`
	TranscriptionBaseURL string        `env:"TRANSCRIPTION_BASE_URL" envDefault:"https://api.openai.com/v1"`
	TranscriptionAPIKey  string        `env:"TRANSCRIPTION_API_KEY"`
	TranscriptionModel   string        `env:"TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	TranscriptionTimeout time.Duration `env:"TRANSCRIPTION_TIMEOUT" envDefault:"30s"`
	TranscriptionMaxSize int64         `env:"TRANSCRIPTION_MAX_BYTES" envDefault:"26214400"`

	// AI analysis collaborator
	AnalysisURL     string        `env:"ANALYSIS_URL"`
	AnalysisAPIKey  string        `env:"ANALYSIS_API_KEY"`
	AnalysisTimeout time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"20s"`

	// Background workers
	WorkerCount       int           `env:"WORKER_COUNT" envDefault:"4"`
	WorkerQueueSize   int           `env:"WORKER_QUEUE_SIZE" envDefault:"256"`
	WorkerTaskTimeout time.Duration `env:"WORKER_TASK_TIMEOUT" envDefault:"30s"`
	GaugeRefreshCron  string        `env:"GAUGE_REFRESH_CRON" envDefault:"* * * * *"`

	// Cache
	RedisURL string `env:"REDIS_URL"`

	// Internal API auth
	AuthEnabled        bool          `env:"AUTH_ENABLED" envDefault:"false"`
	JWKSURL            string        `env:"JWKS_URL"`
	Issuer             string        `env:"ISSUER"`
	Audience           string        `env:"AUDIENCE"`
	JWKSRefresh        time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"5m"`
	InternalServiceKey string        `env:"INTERNAL_SERVICE_KEY"`

	// Observability / Logging
	OTLPEndpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	TraceSampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1"`
	ServiceName      string  `env:"SERVICE_NAME" envDefault:"helpdesk-api"`
	ServiceNamespace string  `env:"SERVICE_NAMESPACE" envDefault:"jan"`
	Environment      string  `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string  `env:"LOG_FORMAT" envDefault:"console"`
	LogPIILevel      string  `env:"LOG_PII_LEVEL" envDefault:"hashed"`
	LogPIISalt       string  `env:"LOG_PII_SALT"`

	location *time.Location
}

// Load parses environment variables into Config and validates cross-field requirements.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	if c.AuthEnabled {
		if c.JWKSURL == "" {
			return errors.New("JWKS_URL is required when AUTH_ENABLED=true")
		}
		if _, err := url.ParseRequestURI(c.JWKSURL); err != nil {
			return fmt.Errorf("invalid JWKS_URL: %w", err)
		}
	}
	if c.TranscriptionEnabled && c.TranscriptionAPIKey == "" {
		return errors.New("TRANSCRIPTION_API_KEY is required when TRANSCRIPTION_ENABLED=true")
	}
	if c.AnalysisURL != "" {
		if _, err := url.ParseRequestURI(c.AnalysisURL); err != nil {
			return fmt.Errorf("invalid ANALYSIS_URL: %w", err)
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid HELPDESK_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	c.TelegramBotUsername = strings.TrimPrefix(strings.TrimSpace(c.TelegramBotUsername), "@")
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)

	defaultDuration(&c.TelegramTimeout, 10*time.Second)
	defaultDuration(&c.TranscriptionTimeout, 30*time.Second)
	defaultDuration(&c.AnalysisTimeout, 20*time.Second)
	defaultDuration(&c.WorkerTaskTimeout, 30*time.Second)
	defaultDuration(&c.ShutdownTimeout, 15*time.Second)
	defaultDuration(&c.FileURLCacheTTL, 50*time.Minute)
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.WorkerQueueSize <= 0 {
		c.WorkerQueueSize = 64
	}
	if c.TraceSampleRatio <= 0 || c.TraceSampleRatio > 1 {
		c.TraceSampleRatio = 1
	}
	return nil
}

func defaultDuration(d *time.Duration, fallback time.Duration) {
	if *d <= 0 {
		*d = fallback
	}
}

// Location is the time zone commitment deadlines are computed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// TelegramEnabled reports whether outbound Telegram calls can be made.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}
