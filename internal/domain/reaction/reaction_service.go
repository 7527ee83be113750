package reaction

import (
	"context"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// ReactionService folds reaction updates into stored messages.
type ReactionService struct {
	channels channel.Repository
	messages message.Repository
	log      zerolog.Logger
}

func NewReactionService(channels channel.Repository, messages message.Repository, log zerolog.Logger) *ReactionService {
	return &ReactionService{
		channels: channels,
		messages: messages,
		log:      log.With().Str("component", "reaction-service").Logger(),
	}
}

// Apply merges the change into the target message. It returns false without error when
// the channel or message is unknown.
func (s *ReactionService) Apply(ctx context.Context, r *update.MessageReactionUpdated) (bool, error) {
	ch, err := s.channels.FindByExternalID(ctx, r.Chat.ID)
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load channel for reaction")
	}
	if ch == nil {
		s.log.Debug().Int64("chat_id", r.Chat.ID).Msg("reaction for unknown channel ignored")
		return false, nil
	}

	msg, err := s.messages.FindByExternalID(ctx, ch.ID, r.MessageID)
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load message for reaction")
	}
	if msg == nil {
		s.log.Debug().Int64("chat_id", r.Chat.ID).Int64("message_id", r.MessageID).Msg("reaction for unknown message ignored")
		return false, nil
	}

	merged := Merge(msg.Reactions, r.OldReaction, r.NewReaction, r.ActorName())
	if err := s.messages.UpdateReactions(ctx, msg.ID, merged); err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to store reactions")
	}
	return true, nil
}
