package commitment

import (
	"context"
	"time"

	"jan-server/services/helpdesk-api/internal/domain/participant"
)

// ===============================================
// Commitment Types
// ===============================================

// Type is the detection tier that produced a commitment.
type Type string

const (
	TypeTime   Type = "time"
	TypeAction Type = "action"
	TypeVague  Type = "vague"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Commitment is a promise found in a chat message, with its deadline and reminder.
// ReminderSent is flipped by whatever dispatches the reminder.
type Commitment struct {
	ID           uint             `json:"id"`
	ChannelID    uint             `json:"channel_id"`
	MessageID    uint             `json:"message_id"`
	CaseID       *uint            `json:"case_id,omitempty"`
	AgentID      *uint            `json:"agent_id,omitempty"`
	AgentName    string           `json:"agent_name"`
	SenderRole   participant.Role `json:"sender_role"`
	Text         string           `json:"text"`
	MatchedSpan  string           `json:"matched_span"`
	Type         Type             `json:"type"`
	IsVague      bool             `json:"is_vague"`
	DueDate      time.Time        `json:"due_date"`
	ReminderAt   time.Time        `json:"reminder_at"`
	ReminderSent bool             `json:"reminder_sent"`
	Priority     Priority         `json:"priority"`
	Status       Status           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ===============================================
// Commitment Repository
// ===============================================

type Repository interface {
	Create(ctx context.Context, c *Commitment) error
	ListByChannel(ctx context.Context, channelID uint) ([]*Commitment, error)
	// CountOverdue counts pending commitments whose due date is before now.
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
}
