package message

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
	"jan-server/services/helpdesk-api/internal/utils/stringutils"
)

// PreviewRunes bounds channel previews.
const PreviewRunes = 100

// Preview renders the channel preview for a piece of content.
func Preview(c content.Content) string {
	return stringutils.Truncate(stringutils.CollapseWhitespace(c.Preview()), PreviewRunes)
}

// PersistParams describes one incoming message after identity and content resolution.
type PersistParams struct {
	Channel           *channel.Channel
	ExternalID        int64
	ThreadID          *int64
	Sender            *participant.User
	SenderName        string
	Role              participant.Role
	Content           content.Content
	ReplyToExternalID *int64
	SentAt            time.Time
}

// MessageService stores messages and keeps channel stats in step with them.
type MessageService struct {
	repo     Repository
	channels channel.Repository
	now      func() time.Time
	log      zerolog.Logger
}

func NewMessageService(repo Repository, channels channel.Repository, log zerolog.Logger) *MessageService {
	return &MessageService{
		repo:     repo,
		channels: channels,
		now:      time.Now,
		log:      log.With().Str("component", "message-service").Logger(),
	}
}

// WithClock replaces the time source; used by tests.
func (s *MessageService) WithClock(now func() time.Time) *MessageService {
	s.now = now
	return s
}

// Persist inserts the message idempotently and, only when it was new, updates the
// channel stats. A failed stats update is logged and does not undo the insert.
func (s *MessageService) Persist(ctx context.Context, p PersistParams) (*Message, bool, error) {
	now := s.now()
	msg := s.build(p)

	// Every client message after the last team message is a response sample.
	var sample *int64
	if msg.IsFromClient && p.Channel.LastAgentMessageAt != nil {
		ms := now.Sub(*p.Channel.LastAgentMessageAt).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		sample = &ms
		msg.ResponseTimeMs = sample
	}

	inserted, err := s.repo.Insert(ctx, msg)
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist message")
	}
	if !inserted {
		return nil, false, nil
	}

	preview := Preview(p.Content)
	if msg.IsFromClient {
		err = s.channels.RecordClientActivity(ctx, p.Channel.ID, channel.ClientActivity{
			At:               now,
			SenderName:       msg.SenderName,
			Preview:          preview,
			ResponseSampleMs: sample,
		})
	} else {
		err = s.channels.RecordTeamActivity(ctx, p.Channel.ID, channel.TeamActivity{
			At:         now,
			SenderName: msg.SenderName,
			Preview:    preview,
		})
		if err == nil {
			err = s.repo.MarkClientMessagesRead(ctx, p.Channel.ID)
		}
	}
	if err != nil {
		s.log.Warn().Err(err).Uint("channel_id", p.Channel.ID).Uint("message_id", msg.ID).Msg("channel stats update failed")
	}

	return msg, true, nil
}

// Record inserts the message without touching channel stats and returns the stored
// row, whether it was new or already present.
func (s *MessageService) Record(ctx context.Context, p PersistParams) (*Message, error) {
	msg := s.build(p)
	inserted, err := s.repo.Insert(ctx, msg)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record message")
	}
	if inserted {
		return msg, nil
	}

	existing, err := s.repo.FindByExternalID(ctx, p.Channel.ID, p.ExternalID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load message")
	}
	if existing == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"message vanished after conflicting insert", nil, "5a0f1c62-3e0b-4d7e-9f57-2b8f6f3f5f11")
	}
	return existing, nil
}

func (s *MessageService) build(p PersistParams) *Message {
	sentAt := p.SentAt
	if sentAt.IsZero() {
		sentAt = s.now()
	}
	msg := &Message{
		ChannelID:         p.Channel.ID,
		ExternalID:        p.ExternalID,
		ThreadID:          p.ThreadID,
		SenderName:        p.SenderName,
		SenderRole:        p.Role,
		IsFromClient:      !p.Role.IsStaff(),
		ContentType:       p.Content.Type,
		Text:              p.Content.Text,
		MediaURL:          p.Content.MediaURL,
		ThumbnailURL:      p.Content.ThumbnailURL,
		FileName:          p.Content.FileName,
		MimeType:          p.Content.MimeType,
		FileSize:          p.Content.FileSize,
		Transcribed:       p.Content.Transcribed,
		ReplyToExternalID: p.ReplyToExternalID,
		Reactions:         Reactions{},
		SentAt:            sentAt,
	}
	if p.Sender != nil {
		id := p.Sender.ID
		msg.SenderID = &id
		if msg.SenderName == "" {
			msg.SenderName = p.Sender.Name
		}
	}
	// Team messages are read by definition.
	msg.IsRead = !msg.IsFromClient
	return msg
}

// ApplyAnalysis stores urgency and sentiment for a message. Urgency must be 1..5.
func (s *MessageService) ApplyAnalysis(ctx context.Context, id uint, a Analysis) (*Message, error) {
	if a.Urgency != nil && (*a.Urgency < 1 || *a.Urgency > 5) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "urgency must be between 1 and 5", nil, "7e6d5c4b-3a29-4f18-8e07-d6c5b4a39201")
	}
	if a.Urgency == nil && a.Sentiment == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "analysis is empty", nil, "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c02")
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load message")
	}
	if m == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "message not found", nil, "5d4c3b2a-1908-4e7f-a6b5-c4d3e2f1a003")
	}
	if err := s.repo.SetAnalysis(ctx, id, a); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to store analysis")
	}
	if a.Urgency != nil {
		m.Urgency = a.Urgency
	}
	if a.Sentiment != "" {
		m.Sentiment = a.Sentiment
	}
	return m, nil
}
