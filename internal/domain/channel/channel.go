package channel

import (
	"context"
	"time"
)

// ===============================================
// Channel Types
// ===============================================

type Type string

const (
	TypeClient  Type = "client"
	TypePartner Type = "partner"
)

// TypeForChat maps a Telegram chat type onto a channel type: private chats are client
// channels, groups and broadcast channels are partner channels.
func TypeForChat(private bool) Type {
	if private {
		return TypeClient
	}
	return TypePartner
}

// Channel is the single row per external chat. Stats are maintained by the message
// persistence step; nothing else writes them.
type Channel struct {
	ID                  uint       `json:"id"`
	ExternalChatID      int64      `json:"external_chat_id"`
	Name                string     `json:"name"`
	Type                Type       `json:"type"`
	IsForum             bool       `json:"is_forum"`
	PhotoURL            string     `json:"photo_url,omitempty"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
	LastSenderName      string     `json:"last_sender_name,omitempty"`
	LastMessagePreview  string     `json:"last_message_preview,omitempty"`
	LastClientMessageAt *time.Time `json:"last_client_message_at,omitempty"`
	LastAgentMessageAt  *time.Time `json:"last_agent_message_at,omitempty"`
	LastTeamMessageAt   *time.Time `json:"last_team_message_at,omitempty"`
	AwaitingReply       bool       `json:"awaiting_reply"`
	UnreadCount         int        `json:"unread_count"`
	ClientAvgResponseMs float64    `json:"client_avg_response_ms"`
	ClientResponseCount int        `json:"client_response_count"`
	IsActive            bool       `json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ClientActivity is applied for every newly inserted non-staff message.
type ClientActivity struct {
	At         time.Time
	SenderName string
	Preview    string

	// ResponseSampleMs is set when the channel has a team message to measure from; it is folded
	// into the running average.
	ResponseSampleMs *int64
}

// TeamActivity is applied for every newly inserted staff message.
type TeamActivity struct {
	At         time.Time
	SenderName string
	Preview    string
}

// NextAverage folds a sample into a running mean.
func NextAverage(avg float64, count int, sample int64) float64 {
	return (avg*float64(count) + float64(sample)) / float64(count+1)
}

// ===============================================
// Channel Repository
// ===============================================

type Repository interface {
	FindByID(ctx context.Context, id uint) (*Channel, error)
	FindByExternalID(ctx context.Context, externalChatID int64) (*Channel, error)
	// CreateIfAbsent inserts ch unless a row for its external chat id exists and returns
	// the stored row. created is false when another writer got there first.
	CreateIfAbsent(ctx context.Context, ch *Channel) (stored *Channel, created bool, err error)
	// RecordClientActivity increments unread_count, sets awaiting_reply and the last
	// message fields, and folds the response sample in a single statement.
	RecordClientActivity(ctx context.Context, id uint, a ClientActivity) error
	// RecordTeamActivity clears awaiting_reply and unread_count and stamps the last
	// agent and team message times.
	RecordTeamActivity(ctx context.Context, id uint, a TeamActivity) error
	// SetActive flips is_active. Channels are deactivated, never deleted.
	SetActive(ctx context.Context, id uint, active bool, at time.Time) error
	SetPhotoURL(ctx context.Context, id uint, url string) error
}
