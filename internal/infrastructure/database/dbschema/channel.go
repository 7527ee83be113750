package dbschema

import (
	"time"

	"jan-server/services/helpdesk-api/internal/domain/channel"
)

type Channel struct {
	ID                  uint       `gorm:"column:id;primaryKey"`
	ExternalChatID      int64      `gorm:"column:external_chat_id;not null;uniqueIndex"`
	Name                string     `gorm:"column:name;size:255;not null"`
	Type                string     `gorm:"column:type;size:16;not null"`
	IsForum             bool       `gorm:"column:is_forum;not null"`
	PhotoURL            string     `gorm:"column:photo_url;type:text;not null"`
	LastMessageAt       *time.Time `gorm:"column:last_message_at"`
	LastSenderName      string     `gorm:"column:last_sender_name;size:255;not null"`
	LastMessagePreview  string     `gorm:"column:last_message_preview;type:text;not null"`
	LastClientMessageAt *time.Time `gorm:"column:last_client_message_at"`
	LastAgentMessageAt  *time.Time `gorm:"column:last_agent_message_at"`
	LastTeamMessageAt   *time.Time `gorm:"column:last_team_message_at"`
	AwaitingReply       bool       `gorm:"column:awaiting_reply;not null"`
	UnreadCount         int        `gorm:"column:unread_count;not null"`
	ClientAvgResponseMs float64    `gorm:"column:client_avg_response_ms;not null"`
	ClientResponseCount int        `gorm:"column:client_response_count;not null"`
	IsActive            bool       `gorm:"column:is_active;not null"`
	CreatedAt           time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;not null"`
}

func (Channel) TableName() string {
	return "helpdesk.channels"
}

func (c *Channel) ToDomain() *channel.Channel {
	return &channel.Channel{
		ID:                  c.ID,
		ExternalChatID:      c.ExternalChatID,
		Name:                c.Name,
		Type:                channel.Type(c.Type),
		IsForum:             c.IsForum,
		PhotoURL:            c.PhotoURL,
		LastMessageAt:       c.LastMessageAt,
		LastSenderName:      c.LastSenderName,
		LastMessagePreview:  c.LastMessagePreview,
		LastClientMessageAt: c.LastClientMessageAt,
		LastAgentMessageAt:  c.LastAgentMessageAt,
		LastTeamMessageAt:   c.LastTeamMessageAt,
		AwaitingReply:       c.AwaitingReply,
		UnreadCount:         c.UnreadCount,
		ClientAvgResponseMs: c.ClientAvgResponseMs,
		ClientResponseCount: c.ClientResponseCount,
		IsActive:            c.IsActive,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func NewSchemaChannel(c *channel.Channel) *Channel {
	return &Channel{
		ID:                  c.ID,
		ExternalChatID:      c.ExternalChatID,
		Name:                c.Name,
		Type:                string(c.Type),
		IsForum:             c.IsForum,
		PhotoURL:            c.PhotoURL,
		LastMessageAt:       c.LastMessageAt,
		LastSenderName:      c.LastSenderName,
		LastMessagePreview:  c.LastMessagePreview,
		LastClientMessageAt: c.LastClientMessageAt,
		LastAgentMessageAt:  c.LastAgentMessageAt,
		LastTeamMessageAt:   c.LastTeamMessageAt,
		AwaitingReply:       c.AwaitingReply,
		UnreadCount:         c.UnreadCount,
		ClientAvgResponseMs: c.ClientAvgResponseMs,
		ClientResponseCount: c.ClientResponseCount,
		IsActive:            c.IsActive,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}
