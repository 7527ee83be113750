package repository

import (
	"github.com/google/wire"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/caserepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/channelrepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/commitmentrepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/messagerepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/repository/userrepo"
	"jan-server/services/helpdesk-api/internal/infrastructure/database/transaction"
)

var RepositoryProvider = wire.NewSet(
	transaction.NewDatabase,
	channelrepo.NewChannelGormRepository,
	wire.Bind(new(channel.Repository), new(*channelrepo.ChannelGormRepository)),
	userrepo.NewUserGormRepository,
	wire.Bind(new(participant.Repository), new(*userrepo.UserGormRepository)),
	messagerepo.NewMessageGormRepository,
	wire.Bind(new(message.Repository), new(*messagerepo.MessageGormRepository)),
	caserepo.NewCaseGormRepository,
	wire.Bind(new(ticket.Repository), new(*caserepo.CaseGormRepository)),
	commitmentrepo.NewCommitmentGormRepository,
	wire.Bind(new(commitment.Repository), new(*commitmentrepo.CommitmentGormRepository)),
)
