package dbschema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"jan-server/services/helpdesk-api/internal/domain/ticket"
)

type Case struct {
	ID              uint       `gorm:"column:id;primaryKey"`
	TicketNumber    int64      `gorm:"column:ticket_number;not null;uniqueIndex"`
	ChannelID       uint       `gorm:"column:channel_id;not null;index"`
	SourceMessageID *uint      `gorm:"column:source_message_id;uniqueIndex"`
	Title           string     `gorm:"column:title;size:255;not null"`
	Description     string     `gorm:"column:description;type:text;not null"`
	Category        string     `gorm:"column:category;size:64;not null"`
	Status          string     `gorm:"column:status;size:16;not null"`
	Priority        string     `gorm:"column:priority;size:16;not null"`
	AssignedTo      *uint      `gorm:"column:assigned_to"`
	FirstResponseAt *time.Time `gorm:"column:first_response_at"`
	ResolvedAt      *time.Time `gorm:"column:resolved_at"`
	CreatedBy       string     `gorm:"column:created_by;size:255;not null"`
	UpdatedBy       string     `gorm:"column:updated_by;size:255;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null"`
}

func (Case) TableName() string {
	return "helpdesk.cases"
}

func (c *Case) ToDomain() *ticket.Case {
	return &ticket.Case{
		ID:              c.ID,
		TicketNumber:    c.TicketNumber,
		ChannelID:       c.ChannelID,
		SourceMessageID: c.SourceMessageID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Status:          ticket.Status(c.Status),
		Priority:        ticket.Priority(c.Priority),
		AssignedTo:      c.AssignedTo,
		FirstResponseAt: c.FirstResponseAt,
		ResolvedAt:      c.ResolvedAt,
		CreatedBy:       c.CreatedBy,
		UpdatedBy:       c.UpdatedBy,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func NewSchemaCase(c *ticket.Case) *Case {
	return &Case{
		ID:              c.ID,
		TicketNumber:    c.TicketNumber,
		ChannelID:       c.ChannelID,
		SourceMessageID: c.SourceMessageID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Status:          string(c.Status),
		Priority:        string(c.Priority),
		AssignedTo:      c.AssignedTo,
		FirstResponseAt: c.FirstResponseAt,
		ResolvedAt:      c.ResolvedAt,
		CreatedBy:       c.CreatedBy,
		UpdatedBy:       c.UpdatedBy,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

type CaseActivity struct {
	ID        uint           `gorm:"column:id;primaryKey"`
	CaseID    uint           `gorm:"column:case_id;not null;index"`
	Type      string         `gorm:"column:type;size:32;not null"`
	ActorID   *uint          `gorm:"column:actor_id"`
	ActorName string         `gorm:"column:actor_name;size:255;not null"`
	Details   datatypes.JSON `gorm:"column:details;type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
}

func (CaseActivity) TableName() string {
	return "helpdesk.case_activities"
}

func (a *CaseActivity) ToDomain() *ticket.Activity {
	var details ticket.ActivityDetails
	if len(a.Details) > 0 {
		_ = json.Unmarshal(a.Details, &details)
	}
	return &ticket.Activity{
		ID:        a.ID,
		CaseID:    a.CaseID,
		Type:      ticket.ActivityType(a.Type),
		ActorID:   a.ActorID,
		ActorName: a.ActorName,
		Details:   details,
		CreatedAt: a.CreatedAt,
	}
}

func NewSchemaCaseActivity(a *ticket.Activity) (*CaseActivity, error) {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return nil, err
	}
	return &CaseActivity{
		ID:        a.ID,
		CaseID:    a.CaseID,
		Type:      string(a.Type),
		ActorID:   a.ActorID,
		ActorName: a.ActorName,
		Details:   datatypes.JSON(details),
		CreatedAt: a.CreatedAt,
	}, nil
}
