package command_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/command"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/lexicon"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/infrastructure/repository/memory"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

type sentMessage struct {
	chatID  int64
	text    string
	replyTo int64
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *recordingSender) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text, replyTo: replyTo})
	return nil
}

type env struct {
	store   *memory.Store
	channel *channel.Channel
	tickets *ticket.TicketService
	sender  *recordingSender
	handler *command.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	ch, _, err := store.Channels().CreateIfAbsent(ctx, &channel.Channel{ExternalChatID: -2001, Name: "Acme support", Type: channel.TypePartner})
	require.NoError(t, err)

	log := zerolog.Nop()
	lex := lexicon.Default()
	messages := message.NewMessageService(store.Messages(), store.Channels(), log)
	tickets := ticket.NewTicketService(store.Cases(), lex.ResolutionKeywords(), log)
	sender := &recordingSender{}
	handler := command.NewHandler(messages, store.Messages(), tickets, content.NewClassifier(nil, nil, log), sender, "helpdesk_bot", lex.TicketCommands(), log)
	return &env{store: store, channel: ch, tickets: tickets, sender: sender, handler: handler}
}

func commandMessage(id int64, text string, quoted *update.Message) *update.Message {
	return &update.Message{
		MessageID:      id,
		From:           &update.User{ID: 77, FirstName: "Anna"},
		Chat:           &update.Chat{ID: -2001, Type: update.ChatTypeSupergroup},
		Text:           text,
		ReplyToMessage: quoted,
	}
}

func quotedMessage(id int64, text string) *update.Message {
	return &update.Message{
		MessageID: id,
		From:      &update.User{ID: 501, FirstName: "Ivan", LastName: "Petrov"},
		Chat:      &update.Chat{ID: -2001, Type: update.ChatTypeSupergroup},
		Date:      1767000000,
		Text:      text,
	}
}

func TestHandle_CreatesCaseFromQuotedMessage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	// An earlier case makes the next ticket number observable.
	previous, err := e.tickets.Create(ctx, ticket.CreateParams{ChannelID: e.channel.ID, Title: "earlier"})
	require.NoError(t, err)

	issuer := uint(3)
	msg := commandMessage(11, "создать тикет", quotedMessage(10, "The payment page returns error 500 when I click pay"))
	require.True(t, e.handler.Recognizes(msg))

	out, err := e.handler.Handle(ctx, command.Request{Channel: e.channel, Message: msg, IssuerID: &issuer, IssuerName: "Anna"})
	require.NoError(t, err)
	require.Equal(t, command.ActionCreated, out.Action)
	require.NotNil(t, out.Case)
	assert.Equal(t, previous.TicketNumber+1, out.Case.TicketNumber)
	assert.Equal(t, ticket.StatusDetected, out.Case.Status)
	assert.Equal(t, ticket.PriorityMedium, out.Case.Priority)
	assert.Equal(t, "The payment page returns error 500 when I click pay", out.Case.Title)

	source, err := e.store.Messages().FindByExternalID(ctx, e.channel.ID, 10)
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.True(t, source.IsFromClient)
	assert.Equal(t, participant.RoleClient, source.SenderRole)
	assert.Equal(t, "Ivan Petrov", source.SenderName)
	require.NotNil(t, source.CaseID)
	assert.Equal(t, out.Case.ID, *source.CaseID)
	require.NotNil(t, out.Case.SourceMessageID)
	assert.Equal(t, source.ID, *out.Case.SourceMessageID)

	activities, err := e.tickets.ListActivities(ctx, out.Case.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, ticket.ActivityCreatedByCommand, activities[0].Type)

	require.Len(t, e.sender.sent, 1)
	assert.Equal(t, int64(-2001), e.sender.sent[0].chatID)
	assert.Equal(t, int64(11), e.sender.sent[0].replyTo)
	assert.Contains(t, e.sender.sent[0].text, fmt.Sprintf("#%d", out.Case.TicketNumber))

	// Quoted message persistence does not count as channel activity.
	stored, err := e.store.Channels().FindByID(ctx, e.channel.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCount)
}

func TestHandle_RejectsSecondCaseForSameMessage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	quoted := quotedMessage(20, "VPN is down")

	first, err := e.handler.Handle(ctx, command.Request{Channel: e.channel, Message: commandMessage(21, "/ticket", quoted)})
	require.NoError(t, err)
	require.Equal(t, command.ActionCreated, first.Action)

	second, err := e.handler.Handle(ctx, command.Request{Channel: e.channel, Message: commandMessage(22, "/ticket", quoted)})
	require.NoError(t, err)
	assert.Equal(t, command.ActionRejected, second.Action)
	assert.Equal(t, first.Case.ID, second.Case.ID)
	assert.Contains(t, second.Reply, fmt.Sprintf("#%d", first.Case.TicketNumber))

	cases, err := e.tickets.ListByChannel(ctx, e.channel.ID)
	require.NoError(t, err)
	assert.Len(t, cases, 1)
	assert.Equal(t, 1, e.store.Messages().Count())
}

func TestHandle_UsesUrgencyOfStoredMessage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	msg := &message.Message{ChannelID: e.channel.ID, ExternalID: 30, Text: "Everything is down", IsFromClient: true, Reactions: message.Reactions{}}
	_, err := e.store.Messages().Insert(ctx, msg)
	require.NoError(t, err)
	urgency := 5
	require.NoError(t, e.store.Messages().SetAnalysis(ctx, msg.ID, message.Analysis{Urgency: &urgency}))

	out, err := e.handler.Handle(ctx, command.Request{Channel: e.channel, Message: commandMessage(31, "@helpdesk_bot ticket", quotedMessage(30, "ignored"))})
	require.NoError(t, err)
	require.Equal(t, command.ActionCreated, out.Action)
	assert.Equal(t, ticket.PriorityUrgent, out.Case.Priority)
	assert.Equal(t, "Everything is down", out.Case.Title)
}

func TestHandle_WithoutQuoteRepliesUsage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	out, err := e.handler.Handle(ctx, command.Request{Channel: e.channel, Message: commandMessage(40, "/ticket", nil)})
	require.NoError(t, err)
	assert.Equal(t, command.ActionUsage, out.Action)
	assert.Nil(t, out.Case)
	require.Len(t, e.sender.sent, 1)
	assert.Equal(t, out.Reply, e.sender.sent[0].text)

	cases, err := e.tickets.ListByChannel(ctx, e.channel.ID)
	require.NoError(t, err)
	assert.Empty(t, cases)
	assert.Equal(t, 0, e.store.Messages().Count())
}

func TestHandle_MediaWithoutTextUsesPlaceholderTitle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	quoted := quotedMessage(50, "")
	quoted.Photo = []update.PhotoSize{{FileID: "AgAD", Width: 800, Height: 600}}

	out, err := e.handler.Handle(ctx, command.Request{Channel: e.channel, Message: commandMessage(51, "тикет", quoted)})
	require.NoError(t, err)
	require.Equal(t, command.ActionCreated, out.Action)
	assert.Equal(t, "[photo]", out.Case.Title)

	source, err := e.store.Messages().FindByExternalID(ctx, e.channel.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, content.TypePhoto, source.ContentType)
	assert.Equal(t, content.FallbackReference("AgAD"), source.MediaURL)
}

func TestOpenCase_ForStoredMessage(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	msg := &message.Message{ChannelID: e.channel.ID, ExternalID: 60, Text: "Refund has not arrived", IsFromClient: true, Reactions: message.Reactions{}}
	_, err := e.store.Messages().Insert(ctx, msg)
	require.NoError(t, err)

	c, created, err := e.handler.OpenCase(ctx, command.CaseRequest{MessageID: msg.ID, Category: "billing", Priority: ticket.PriorityHigh, ActorName: "analysis"})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "Refund has not arrived", c.Title)
	assert.Equal(t, "billing", c.Category)
	assert.Equal(t, ticket.PriorityHigh, c.Priority)
	assert.Equal(t, e.channel.ID, c.ChannelID)

	again, created, err := e.handler.OpenCase(ctx, command.CaseRequest{MessageID: msg.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, again.ID)

	stored, err := e.store.Messages().FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CaseID)
	assert.Equal(t, c.ID, *stored.CaseID)

	// Nothing is sent for API-created cases.
	assert.Empty(t, e.sender.sent)

	_, _, err = e.handler.OpenCase(ctx, command.CaseRequest{MessageID: 9999})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}
