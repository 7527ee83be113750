package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/helpdesk-api/internal/config"
	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/command"
	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/identity"
	"jan-server/services/helpdesk-api/internal/domain/ingest"
	"jan-server/services/helpdesk-api/internal/domain/lexicon"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/reaction"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/infrastructure/analysis"
	"jan-server/services/helpdesk-api/internal/infrastructure/auth"
	"jan-server/services/helpdesk-api/internal/infrastructure/cache"
	"jan-server/services/helpdesk-api/internal/infrastructure/crontab"
	"jan-server/services/helpdesk-api/internal/infrastructure/database"
	"jan-server/services/helpdesk-api/internal/infrastructure/telegram"
	"jan-server/services/helpdesk-api/internal/infrastructure/transcription"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver"
	"jan-server/services/helpdesk-api/internal/utils/sanitize"
	"jan-server/services/helpdesk-api/internal/worker"
)

// The constructors below are shared by CreateApplication and the wire injector.
// Optional collaborators are returned as nil interfaces when not configured, never as
// typed nil pointers.

func newGormDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(database.Config{
		DatabaseURL:     cfg.DatabaseURL,
		ReadReplicaURL:  cfg.DBReadURL,
		MaxIdle:         cfg.DBMaxIdle,
		MaxOpen:         cfg.DBMaxOpen,
		CreateIfMissing: cfg.CreateDBIfNA,
		LogLevel:        gormlogger.Warn,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return db, nil
}

func newDatabaseReadiness(db *gorm.DB) httpserver.ReadinessCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func newFileCache(cfg *config.Config) (cache.Cache, error) {
	c, err := cache.New(cfg.RedisURL, "helpdesk:", cfg.FileURLCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return c, nil
}

func newWorkerPool(cfg *config.Config, log zerolog.Logger) *worker.Pool {
	return worker.NewPool(worker.Config{
		WorkerCount: cfg.WorkerCount,
		QueueSize:   cfg.WorkerQueueSize,
		TaskTimeout: cfg.WorkerTaskTimeout,
	}, log)
}

// newTelegramClient returns nil without a bot token.
func newTelegramClient(ctx context.Context, cfg *config.Config, files cache.Cache, log zerolog.Logger) *telegram.Client {
	if !cfg.TelegramEnabled() {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, media links, chat photos and command replies are disabled")
		return nil
	}
	tg := telegram.NewClient(telegram.Config{
		Token:      cfg.TelegramBotToken,
		BaseURL:    cfg.TelegramAPIBaseURL,
		Timeout:    cfg.TelegramTimeout,
		SendRPS:    cfg.TelegramSendRPS,
		FileURLTTL: cfg.FileURLCacheTTL,
	}, files, log)
	registerWebhook(ctx, cfg, tg, log)
	return tg
}

func newMediaResolver(tg *telegram.Client) content.MediaResolver {
	if tg == nil {
		return nil
	}
	return tg
}

func newPhotoFetcher(tg *telegram.Client) identity.PhotoFetcher {
	if tg == nil {
		return nil
	}
	return tg
}

func newReplySender(tg *telegram.Client) command.ReplySender {
	if tg == nil {
		return nil
	}
	return tg
}

func newTranscriber(cfg *config.Config, log zerolog.Logger) content.Transcriber {
	if !cfg.TranscriptionEnabled {
		return nil
	}
	return transcription.NewClient(transcription.Config{
		BaseURL:  cfg.TranscriptionBaseURL,
		APIKey:   cfg.TranscriptionAPIKey,
		Model:    cfg.TranscriptionModel,
		Timeout:  cfg.TranscriptionTimeout,
		MaxBytes: cfg.TranscriptionMaxSize,
	}, log)
}

func newAnalyzer(cfg *config.Config) ingest.Analyzer {
	if cfg.AnalysisURL == "" {
		return nil
	}
	return analysis.NewClient(analysis.Config{
		URL:     cfg.AnalysisURL,
		APIKey:  cfg.AnalysisAPIKey,
		Timeout: cfg.AnalysisTimeout,
	})
}

func newDetector(cfg *config.Config, lex *lexicon.Lexicon) (*commitment.Detector, error) {
	d, err := commitment.NewDetector(lex, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("init commitment detector: %w", err)
	}
	return d, nil
}

func newTicketService(cases ticket.Repository, lex *lexicon.Lexicon, log zerolog.Logger) *ticket.TicketService {
	return ticket.NewTicketService(cases, lex.ResolutionKeywords(), log)
}

func newCommitmentService(repo commitment.Repository, detector *commitment.Detector, cases ticket.Repository, log zerolog.Logger) *commitment.CommitmentService {
	return commitment.NewCommitmentService(repo, detector, cases, log)
}

func newCommandHandler(
	cfg *config.Config,
	messages *message.MessageService,
	store message.Repository,
	tickets *ticket.TicketService,
	classifier *content.Classifier,
	replies command.ReplySender,
	lex *lexicon.Lexicon,
	log zerolog.Logger,
) *command.Handler {
	return command.NewHandler(messages, store, tickets, classifier, replies, cfg.TelegramBotUsername, lex.TicketCommands(), log)
}

func newIngestService(
	cfg *config.Config,
	channels channel.Repository,
	users participant.Repository,
	store message.Repository,
	photos identity.PhotoFetcher,
	classifier *content.Classifier,
	messages *message.MessageService,
	tickets *ticket.TicketService,
	commitments *commitment.CommitmentService,
	commands *command.Handler,
	analyzer ingest.Analyzer,
	pool *worker.Pool,
	log zerolog.Logger,
) *ingest.IngestService {
	return ingest.NewIngestService(ingest.Dependencies{
		Roles: identity.NewDirectoryClassifier(users, identity.Directory{
			StaffIDs:         cfg.StaffTelegramIDs,
			StaffUsernames:   cfg.StaffUsernames,
			PartnerUsernames: cfg.PartnerUsernames,
		}),
		Resolver:    identity.NewResolver(channels, users, photos, pool, log),
		Content:     classifier,
		Messages:    messages,
		Store:       store,
		Tickets:     tickets,
		Commitments: commitments,
		Reactions:   reaction.NewReactionService(channels, store, log),
		Commands:    commands,
		Analyzer:    analyzer,
		Tasks:       pool,
		Sanitizer:   sanitize.NewSanitizer(sanitize.ParseLevel(cfg.LogPIILevel), cfg.LogPIISalt),
	}, log)
}

// newAuthValidator protects the internal API with JWTs, the service key, or both.
func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	v, err := auth.NewValidator(ctx, auth.Config{
		Enabled:         cfg.AuthEnabled || cfg.InternalServiceKey != "",
		JWKSURL:         cfg.JWKSURL,
		Issuer:          cfg.Issuer,
		Audience:        cfg.Audience,
		RefreshInterval: cfg.JWKSRefresh,
		ServiceKey:      cfg.InternalServiceKey,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init auth validator: %w", err)
	}
	return v, nil
}

func newCrontab(cfg *config.Config, tickets *ticket.TicketService, commitments *commitment.CommitmentService, log zerolog.Logger) *crontab.Crontab {
	return crontab.NewCrontab(cfg.GaugeRefreshCron, tickets, commitments, log)
}

// registerWebhook points Telegram at TELEGRAM_WEBHOOK_URL. Failure is logged; the CLI
// can retry it.
func registerWebhook(ctx context.Context, cfg *config.Config, tg *telegram.Client, log zerolog.Logger) {
	if cfg.TelegramWebhookURL == "" {
		return
	}
	if err := tg.SetWebhook(ctx, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret, false); err != nil {
		log.Warn().Err(err).Msg("failed to register telegram webhook")
		return
	}
	log.Info().Msg("telegram webhook registered")
}
