package handlers

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/config"
	"jan-server/services/helpdesk-api/internal/domain/command"
	"jan-server/services/helpdesk-api/internal/domain/ingest"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Webhook *WebhookHandler
	Case    *CaseHandler
	Message *MessageHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	cfg *config.Config,
	ingestService *ingest.IngestService,
	tickets *ticket.TicketService,
	commands *command.Handler,
	messages *message.MessageService,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Webhook: NewWebhookHandler(ingestService, cfg.TelegramWebhookSecret, log),
		Case:    NewCaseHandler(tickets, commands, log),
		Message: NewMessageHandler(messages, log),
	}
}

var HandlerProvider = wire.NewSet(NewProvider)
