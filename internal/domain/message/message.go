package message

import (
	"context"
	"time"

	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/participant"
)

// ===============================================
// Message Types
// ===============================================

// Reactions maps a reaction key (emoji) to the display names of the actors who set it.
type Reactions map[string][]string

// Clone returns a deep copy so callers can merge without touching stored state.
func (r Reactions) Clone() Reactions {
	out := make(Reactions, len(r))
	for k, actors := range r {
		out[k] = append([]string(nil), actors...)
	}
	return out
}

// Analysis is written back by the AI-analysis collaborator.
type Analysis struct {
	Urgency   *int   `json:"urgency,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
}

// Message is unique per (ChannelID, ExternalID).
type Message struct {
	ID                uint             `json:"id"`
	ChannelID         uint             `json:"channel_id"`
	ExternalID        int64            `json:"external_message_id"`
	ThreadID          *int64           `json:"thread_id,omitempty"`
	SenderID          *uint            `json:"sender_id,omitempty"`
	SenderName        string           `json:"sender_name"`
	SenderRole        participant.Role `json:"sender_role"`
	IsFromClient      bool             `json:"is_from_client"`
	ContentType       content.Type     `json:"content_type"`
	Text              string           `json:"text,omitempty"`
	MediaURL          string           `json:"media_url,omitempty"`
	ThumbnailURL      string           `json:"thumbnail_url,omitempty"`
	FileName          string           `json:"file_name,omitempty"`
	MimeType          string           `json:"mime_type,omitempty"`
	FileSize          int64            `json:"file_size,omitempty"`
	Transcribed       bool             `json:"transcribed"`
	ReplyToExternalID *int64           `json:"reply_to_external_id,omitempty"`
	CaseID            *uint            `json:"case_id,omitempty"`
	Reactions         Reactions        `json:"reactions"`
	ResponseTimeMs    *int64           `json:"response_time_ms,omitempty"`
	IsRead            bool             `json:"is_read"`
	Urgency           *int             `json:"urgency,omitempty"`
	Sentiment         string           `json:"sentiment,omitempty"`
	SentAt            time.Time        `json:"sent_at"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ===============================================
// Message Repository
// ===============================================

type Repository interface {
	// Insert stores m unless (ChannelID, ExternalID) already exists. inserted is false
	// for duplicates, in which case m is left untouched.
	Insert(ctx context.Context, m *Message) (inserted bool, err error)
	FindByID(ctx context.Context, id uint) (*Message, error)
	FindByExternalID(ctx context.Context, channelID uint, externalID int64) (*Message, error)
	MarkClientMessagesRead(ctx context.Context, channelID uint) error
	UpdateReactions(ctx context.Context, id uint, reactions Reactions) error
	SetCase(ctx context.Context, id uint, caseID uint) error
	SetAnalysis(ctx context.Context, id uint, analysis Analysis) error
}
