package main

import (
	"context"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/config"
	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/lexicon"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/infrastructure/auth"
	"jan-server/services/helpdesk-api/internal/infrastructure/cache"
	"jan-server/services/helpdesk-api/internal/infrastructure/crontab"
	"jan-server/services/helpdesk-api/internal/infrastructure/database"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/caserepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/channelrepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/commitmentrepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/messagerepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/userrepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/transaction"
	"jan-server/services/helpdesk-api/internal/infrastructure/repository/memory"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/routes"
	"jan-server/services/helpdesk-api/internal/worker"
)

// stores is the repository set of one storage backend.
type stores struct {
	channels    channel.Repository
	users       participant.Repository
	messages    message.Repository
	cases       ticket.Repository
	commitments commitment.Repository
	ready       httpserver.ReadinessCheck
	close       func() error
}

func newApplication(
	cfg *config.Config,
	httpServer *httpserver.HTTPServer,
	cron *crontab.Crontab,
	pool *worker.Pool,
	authValidator *auth.Validator,
	files cache.Cache,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer: httpServer,
		crontab:    cron,
		pool:       pool,
		cfg:        cfg,
		log:        log,
		cleanup: func() {
			authValidator.Close()
			if err := files.Close(); err != nil {
				log.Warn().Err(err).Msg("close cache")
			}
		},
	}
}

// CreateApplication wires every component from cfg, on Postgres or on the in-memory
// store depending on STORE_DRIVER.
func CreateApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	st, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app, err := assemble(ctx, cfg, st, log)
	if err != nil {
		_ = st.close()
		return nil, err
	}
	cleanup := app.cleanup
	app.cleanup = func() {
		cleanup()
		if err := st.close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}
	return app, nil
}

func assemble(ctx context.Context, cfg *config.Config, st *stores, log zerolog.Logger) (*Application, error) {
	files, err := newFileCache(cfg)
	if err != nil {
		return nil, err
	}
	pool := newWorkerPool(cfg, log)
	tg := newTelegramClient(ctx, cfg, files, log)

	lex := lexicon.Default()
	detector, err := newDetector(cfg, lex)
	if err != nil {
		return nil, err
	}

	classifier := content.NewClassifier(newMediaResolver(tg), newTranscriber(cfg, log), log)
	messages := message.NewMessageService(st.messages, st.channels, log)
	tickets := newTicketService(st.cases, lex, log)
	commitments := newCommitmentService(st.commitments, detector, st.cases, log)
	commands := newCommandHandler(cfg, messages, st.messages, tickets, classifier, newReplySender(tg), lex, log)
	ingestService := newIngestService(cfg, st.channels, st.users, st.messages, newPhotoFetcher(tg),
		classifier, messages, tickets, commitments, commands, newAnalyzer(cfg), pool, log)

	authValidator, err := newAuthValidator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	handlerProvider := handlers.NewProvider(cfg, ingestService, tickets, commands, messages, log)
	httpServer := httpserver.NewHTTPServer(cfg, log, routes.NewProvider(handlerProvider), authValidator, st.ready)

	return newApplication(cfg, httpServer, newCrontab(cfg, tickets, commitments, log), pool, authValidator, files, log), nil
}

func newStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		mem := memory.NewStore()
		return &stores{
			channels:    mem.Channels(),
			users:       mem.Users(),
			messages:    mem.Messages(),
			cases:       mem.Cases(),
			commitments: mem.Commitments(),
			close:       func() error { return nil },
		}, nil
	}

	db, err := newGormDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	tx := transaction.NewDatabase(db)
	return &stores{
		channels:    channelrepo.NewChannelGormRepository(tx),
		users:       userrepo.NewUserGormRepository(tx),
		messages:    messagerepo.NewMessageGormRepository(tx),
		cases:       caserepo.NewCaseGormRepository(tx),
		commitments: commitmentrepo.NewCommitmentGormRepository(tx),
		ready:       newDatabaseReadiness(db),
		close:       func() error { return database.Close(db) },
	}, nil
}
