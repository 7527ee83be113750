package dbschema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
)

type Message struct {
	ID                uint           `gorm:"column:id;primaryKey"`
	ChannelID         uint           `gorm:"column:channel_id;not null;uniqueIndex:uq_messages_channel_external"`
	ExternalMessageID int64          `gorm:"column:external_message_id;not null;uniqueIndex:uq_messages_channel_external"`
	ThreadID          *int64         `gorm:"column:thread_id"`
	SenderID          *uint          `gorm:"column:sender_id"`
	SenderName        string         `gorm:"column:sender_name;size:255;not null"`
	SenderRole        string         `gorm:"column:sender_role;size:16;not null"`
	IsFromClient      bool           `gorm:"column:is_from_client;not null"`
	ContentType       string         `gorm:"column:content_type;size:16;not null"`
	Text              string         `gorm:"column:text;type:text;not null"`
	MediaURL          string         `gorm:"column:media_url;type:text;not null"`
	ThumbnailURL      string         `gorm:"column:thumbnail_url;type:text;not null"`
	FileName          string         `gorm:"column:file_name;size:255;not null"`
	MimeType          string         `gorm:"column:mime_type;size:128;not null"`
	FileSize          int64          `gorm:"column:file_size;not null"`
	Transcribed       bool           `gorm:"column:transcribed;not null"`
	ReplyToExternalID *int64         `gorm:"column:reply_to_external_id"`
	CaseID            *uint          `gorm:"column:case_id"`
	Reactions         datatypes.JSON `gorm:"column:reactions;type:jsonb;not null"`
	ResponseTimeMs    *int64         `gorm:"column:response_time_ms"`
	IsRead            bool           `gorm:"column:is_read;not null"`
	Urgency           *int           `gorm:"column:urgency;type:smallint"`
	Sentiment         string         `gorm:"column:sentiment;size:32;not null"`
	SentAt            time.Time      `gorm:"column:sent_at;not null"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null"`
}

func (Message) TableName() string {
	return "helpdesk.messages"
}

func (m *Message) ToDomain() *message.Message {
	reactions := message.Reactions{}
	if len(m.Reactions) > 0 {
		// A malformed blob is treated as no reactions; the next merge rewrites it.
		_ = json.Unmarshal(m.Reactions, &reactions)
	}
	return &message.Message{
		ID:                m.ID,
		ChannelID:         m.ChannelID,
		ExternalID:        m.ExternalMessageID,
		ThreadID:          m.ThreadID,
		SenderID:          m.SenderID,
		SenderName:        m.SenderName,
		SenderRole:        participant.Role(m.SenderRole),
		IsFromClient:      m.IsFromClient,
		ContentType:       content.Type(m.ContentType),
		Text:              m.Text,
		MediaURL:          m.MediaURL,
		ThumbnailURL:      m.ThumbnailURL,
		FileName:          m.FileName,
		MimeType:          m.MimeType,
		FileSize:          m.FileSize,
		Transcribed:       m.Transcribed,
		ReplyToExternalID: m.ReplyToExternalID,
		CaseID:            m.CaseID,
		Reactions:         reactions,
		ResponseTimeMs:    m.ResponseTimeMs,
		IsRead:            m.IsRead,
		Urgency:           m.Urgency,
		Sentiment:         m.Sentiment,
		SentAt:            m.SentAt,
		CreatedAt:         m.CreatedAt,
	}
}

func NewSchemaMessage(m *message.Message) (*Message, error) {
	reactions, err := MarshalReactions(m.Reactions)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:                m.ID,
		ChannelID:         m.ChannelID,
		ExternalMessageID: m.ExternalID,
		ThreadID:          m.ThreadID,
		SenderID:          m.SenderID,
		SenderName:        m.SenderName,
		SenderRole:        string(m.SenderRole),
		IsFromClient:      m.IsFromClient,
		ContentType:       string(m.ContentType),
		Text:              m.Text,
		MediaURL:          m.MediaURL,
		ThumbnailURL:      m.ThumbnailURL,
		FileName:          m.FileName,
		MimeType:          m.MimeType,
		FileSize:          m.FileSize,
		Transcribed:       m.Transcribed,
		ReplyToExternalID: m.ReplyToExternalID,
		CaseID:            m.CaseID,
		Reactions:         reactions,
		ResponseTimeMs:    m.ResponseTimeMs,
		IsRead:            m.IsRead,
		Urgency:           m.Urgency,
		Sentiment:         m.Sentiment,
		SentAt:            m.SentAt,
		CreatedAt:         m.CreatedAt,
	}, nil
}

// MarshalReactions encodes reactions for the jsonb column; nil becomes {}.
func MarshalReactions(r message.Reactions) (datatypes.JSON, error) {
	if r == nil {
		r = message.Reactions{}
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
