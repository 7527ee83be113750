// Package command turns an explicit "create a ticket" reply into a case.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/identity"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
	"jan-server/services/helpdesk-api/internal/utils/stringutils"
)

// TitleRunes bounds a case title taken from the quoted message.
const TitleRunes = 80

const (
	usageReply    = "Reply to the client's message with /ticket to create a ticket from it."
	createdReply  = "Ticket #%d created: %s"
	rejectedReply = "This message already has ticket #%d."
)

// ReplySender posts a message to a chat, optionally as a reply.
type ReplySender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error
}

type Action string

const (
	ActionCreated  Action = "created"
	ActionRejected Action = "rejected"
	ActionUsage    Action = "usage"
)

// Outcome describes what a command did. Case is the new or the existing case.
type Outcome struct {
	Action Action       `json:"action"`
	Case   *ticket.Case `json:"case,omitempty"`
	Reply  string       `json:"reply"`
}

// Request is a recognized command message in an already resolved channel.
type Request struct {
	Channel    *channel.Channel
	Message    *update.Message
	IssuerID   *uint
	IssuerName string
}

type Handler struct {
	messages    *message.MessageService
	store       message.Repository
	tickets     *ticket.TicketService
	content     *content.Classifier
	replies     ReplySender
	botUsername string
	phrases     []string
	log         zerolog.Logger
}

// NewHandler builds the command handler. replies may be nil, in which case outcomes
// are computed but never sent.
func NewHandler(
	messages *message.MessageService,
	store message.Repository,
	tickets *ticket.TicketService,
	classifier *content.Classifier,
	replies ReplySender,
	botUsername string,
	phrases []string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		messages:    messages,
		store:       store,
		tickets:     tickets,
		content:     classifier,
		replies:     replies,
		botUsername: botUsername,
		phrases:     phrases,
		log:         log.With().Str("component", "ticket-command").Logger(),
	}
}

// Recognizes reports whether msg is a ticket command addressed to this bot.
func (h *Handler) Recognizes(msg *update.Message) bool {
	return Matches(msg.Text, h.botUsername, h.phrases)
}

// Handle executes the command. Without a quoted target it only replies with usage.
func (h *Handler) Handle(ctx context.Context, req Request) (*Outcome, error) {
	quoted := req.Message.ReplyToMessage
	if quoted == nil {
		out := &Outcome{Action: ActionUsage, Reply: usageReply}
		h.reply(ctx, req, out.Reply)
		return out, nil
	}

	source, err := h.sourceMessage(ctx, req.Channel, quoted)
	if err != nil {
		return nil, err
	}

	c, created, err := h.openCase(ctx, source, caseFields{
		Fallback:  fmt.Sprintf("Message %d from %s", source.ExternalID, req.Channel.Name),
		ActorID:   req.IssuerID,
		ActorName: req.IssuerName,
		Via:       ticket.ActivityCreatedByCommand,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return h.reject(ctx, req, c), nil
	}

	out := &Outcome{Action: ActionCreated, Case: c, Reply: fmt.Sprintf(createdReply, c.TicketNumber, c.Title)}
	h.reply(ctx, req, out.Reply)
	return out, nil
}

// CaseRequest opens a case for a message that is already stored. Empty fields are
// derived from the message.
type CaseRequest struct {
	MessageID uint
	Title     string
	Category  string
	Priority  ticket.Priority
	ActorID   *uint
	ActorName string
}

// OpenCase creates the case for a stored message. When the message already has a case
// that case is returned with created set to false.
func (h *Handler) OpenCase(ctx context.Context, req CaseRequest) (c *ticket.Case, created bool, err error) {
	source, err := h.store.FindByID(ctx, req.MessageID)
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load message")
	}
	if source == nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "message not found", nil, "0b9a8c7d-6e5f-4d3c-b2a1-908f7e6d5c01").
			WithField("message_id", req.MessageID)
	}
	return h.openCase(ctx, source, caseFields{
		Title:     req.Title,
		Category:  req.Category,
		Priority:  req.Priority,
		Fallback:  fmt.Sprintf("Message %d", source.ExternalID),
		ActorID:   req.ActorID,
		ActorName: req.ActorName,
		Via:       ticket.ActivityCreated,
	})
}

type caseFields struct {
	Title     string
	Category  string
	Priority  ticket.Priority
	Fallback  string
	ActorID   *uint
	ActorName string
	Via       ticket.ActivityType
}

func (h *Handler) openCase(ctx context.Context, source *message.Message, f caseFields) (*ticket.Case, bool, error) {
	existing, err := h.tickets.FindBySourceMessage(ctx, source.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	title := f.Title
	if title == "" {
		title = stringutils.GenerateTitle(source.Text, TitleRunes)
	}
	if title == "" {
		title = source.ContentType.Placeholder()
	}
	if title == "" {
		title = f.Fallback
	}
	priority := f.Priority
	if priority == "" {
		priority = ticket.PriorityFromUrgency(source.Urgency)
	}
	sourceID := source.ID
	c, err := h.tickets.Create(ctx, ticket.CreateParams{
		ChannelID:       source.ChannelID,
		SourceMessageID: &sourceID,
		Title:           title,
		Description:     source.Text,
		Category:        f.Category,
		Priority:        priority,
		ActorID:         f.ActorID,
		ActorName:       f.ActorName,
		Via:             f.Via,
	})
	if err != nil {
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, false, err
		}
		// Lost a race with another creator for the same message.
		existing, findErr := h.tickets.FindBySourceMessage(ctx, source.ID)
		if findErr != nil || existing == nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if err := h.store.SetCase(ctx, source.ID, c.ID); err != nil {
		h.log.Warn().Err(err).Uint("message_id", source.ID).Uint("case_id", c.ID).Msg("failed to link message to case")
	} else {
		id := c.ID
		source.CaseID = &id
	}
	return c, true, nil
}

func (h *Handler) reject(ctx context.Context, req Request, existing *ticket.Case) *Outcome {
	out := &Outcome{Action: ActionRejected, Case: existing, Reply: fmt.Sprintf(rejectedReply, existing.TicketNumber)}
	h.reply(ctx, req, out.Reply)
	return out
}

// sourceMessage finds the quoted message or stores it as a client message.
func (h *Handler) sourceMessage(ctx context.Context, ch *channel.Channel, quoted *update.Message) (*message.Message, error) {
	found, err := h.store.FindByExternalID(ctx, ch.ID, quoted.MessageID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up quoted message")
	}
	if found != nil {
		return found, nil
	}

	sender, _ := identity.SenderFromMessage(quoted)
	var threadID *int64
	if quoted.MessageThreadID != 0 {
		id := quoted.MessageThreadID
		threadID = &id
	}
	var sentAt time.Time
	if quoted.Date > 0 {
		sentAt = time.Unix(quoted.Date, 0).UTC()
	}
	return h.messages.Record(ctx, message.PersistParams{
		Channel:    ch,
		ExternalID: quoted.MessageID,
		ThreadID:   threadID,
		SenderName: sender.Name,
		Role:       participant.RoleClient,
		Content:    h.content.Classify(ctx, quoted),
		SentAt:     sentAt,
	})
}

func (h *Handler) reply(ctx context.Context, req Request, text string) {
	if h.replies == nil {
		return
	}
	if err := h.replies.SendMessage(ctx, req.Channel.ExternalChatID, text, req.Message.MessageID); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", req.Channel.ExternalChatID).Msg("failed to send command reply")
	}
}
