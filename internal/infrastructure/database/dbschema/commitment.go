package dbschema

import (
	"time"

	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/participant"
)

type Commitment struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	ChannelID    uint      `gorm:"column:channel_id;not null;index"`
	MessageID    uint      `gorm:"column:message_id;not null"`
	CaseID       *uint     `gorm:"column:case_id"`
	AgentID      *uint     `gorm:"column:agent_id"`
	AgentName    string    `gorm:"column:agent_name;size:255;not null"`
	SenderRole   string    `gorm:"column:sender_role;size:16;not null"`
	Text         string    `gorm:"column:text;type:text;not null"`
	MatchedSpan  string    `gorm:"column:matched_span;type:text;not null"`
	Type         string    `gorm:"column:type;size:16;not null"`
	IsVague      bool      `gorm:"column:is_vague;not null"`
	DueDate      time.Time `gorm:"column:due_date;not null"`
	ReminderAt   time.Time `gorm:"column:reminder_at;not null"`
	ReminderSent bool      `gorm:"column:reminder_sent;not null"`
	Priority     string    `gorm:"column:priority;size:16;not null"`
	Status       string    `gorm:"column:status;size:16;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (Commitment) TableName() string {
	return "helpdesk.commitments"
}

func (c *Commitment) ToDomain() *commitment.Commitment {
	return &commitment.Commitment{
		ID:           c.ID,
		ChannelID:    c.ChannelID,
		MessageID:    c.MessageID,
		CaseID:       c.CaseID,
		AgentID:      c.AgentID,
		AgentName:    c.AgentName,
		SenderRole:   participant.Role(c.SenderRole),
		Text:         c.Text,
		MatchedSpan:  c.MatchedSpan,
		Type:         commitment.Type(c.Type),
		IsVague:      c.IsVague,
		DueDate:      c.DueDate,
		ReminderAt:   c.ReminderAt,
		ReminderSent: c.ReminderSent,
		Priority:     commitment.Priority(c.Priority),
		Status:       commitment.Status(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func NewSchemaCommitment(c *commitment.Commitment) *Commitment {
	return &Commitment{
		ID:           c.ID,
		ChannelID:    c.ChannelID,
		MessageID:    c.MessageID,
		CaseID:       c.CaseID,
		AgentID:      c.AgentID,
		AgentName:    c.AgentName,
		SenderRole:   string(c.SenderRole),
		Text:         c.Text,
		MatchedSpan:  c.MatchedSpan,
		Type:         string(c.Type),
		IsVague:      c.IsVague,
		DueDate:      c.DueDate,
		ReminderAt:   c.ReminderAt,
		ReminderSent: c.ReminderSent,
		Priority:     string(c.Priority),
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
