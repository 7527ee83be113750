package reaction_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/reaction"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/infrastructure/repository/memory"
)

func thumbs() []update.ReactionType {
	return []update.ReactionType{{Type: update.ReactionTypeEmoji, Emoji: "👍"}}
}

func TestApply_MergesIntoStoredMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ch, _, err := store.Channels().CreateIfAbsent(ctx, &channel.Channel{ExternalChatID: -42, Name: "Group"})
	require.NoError(t, err)
	msg := &message.Message{ChannelID: ch.ID, ExternalID: 9, Reactions: message.Reactions{}}
	_, err = store.Messages().Insert(ctx, msg)
	require.NoError(t, err)

	svc := reaction.NewReactionService(store.Channels(), store.Messages(), zerolog.Nop())
	applied, err := svc.Apply(ctx, &update.MessageReactionUpdated{
		Chat:        update.Chat{ID: -42},
		MessageID:   9,
		User:        &update.User{ID: 5, FirstName: "Ivan"},
		NewReaction: thumbs(),
	})
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err := store.Messages().FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, message.Reactions{"👍": {"Ivan"}}, stored.Reactions)

	applied, err = svc.Apply(ctx, &update.MessageReactionUpdated{
		Chat:        update.Chat{ID: -42},
		MessageID:   9,
		User:        &update.User{ID: 5, FirstName: "Ivan"},
		OldReaction: thumbs(),
	})
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err = store.Messages().FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Reactions)
}

func TestApply_UnknownTargetIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := reaction.NewReactionService(store.Channels(), store.Messages(), zerolog.Nop())

	applied, err := svc.Apply(ctx, &update.MessageReactionUpdated{Chat: update.Chat{ID: 1}, MessageID: 1, NewReaction: thumbs()})
	require.NoError(t, err)
	assert.False(t, applied)

	_, _, err = store.Channels().CreateIfAbsent(ctx, &channel.Channel{ExternalChatID: 1})
	require.NoError(t, err)
	applied, err = svc.Apply(ctx, &update.MessageReactionUpdated{Chat: update.Chat{ID: 1}, MessageID: 404, NewReaction: thumbs()})
	require.NoError(t, err)
	assert.False(t, applied)
}
