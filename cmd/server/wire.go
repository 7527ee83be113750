//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/config"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/lexicon"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/routes"
)

var infrastructureSet = wire.NewSet(
	newGormDB,
	newDatabaseReadiness,
	repository.RepositoryProvider,
	newFileCache,
	newWorkerPool,
	newTelegramClient,
	newMediaResolver,
	newPhotoFetcher,
	newReplySender,
	newTranscriber,
	newAnalyzer,
	newAuthValidator,
	newCrontab,
)

var domainSet = wire.NewSet(
	lexicon.Default,
	newDetector,
	content.NewClassifier,
	message.NewMessageService,
	newTicketService,
	newCommitmentService,
	newCommandHandler,
	newIngestService,
)

// BuildApplication assembles the Postgres-backed service with Wire.
func BuildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	wire.Build(
		infrastructureSet,
		domainSet,
		handlers.HandlerProvider,
		routes.RouteProvider,
		httpserver.NewHTTPServer,
		newApplication,
	)
	return nil, nil
}
