package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ===============================================
// Case Types
// ===============================================

// Case is a support request. TicketNumber is assigned by the store and unique across
// all cases. At most one case exists per SourceMessageID.
type Case struct {
	ID              uint       `json:"id"`
	TicketNumber    int64      `json:"ticket_number"`
	ChannelID       uint       `json:"channel_id"`
	SourceMessageID *uint      `json:"source_message_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category,omitempty"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority"`
	AssignedTo      *uint      `json:"assigned_to,omitempty"`
	FirstResponseAt *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedBy       string     `json:"created_by,omitempty"`
	UpdatedBy       string     `json:"updated_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ===============================================
// Activity Types
// ===============================================

type ActivityType string

const (
	ActivityReplied          ActivityType = "replied"
	ActivityResolved         ActivityType = "resolved"
	ActivityCreatedByCommand ActivityType = "created_via_command"
	ActivityCreated          ActivityType = "created"
	ActivityStatusChange     ActivityType = "status_change"
)

// ActivityDetails holds the known detail keys; anything else round-trips through Extra.
type ActivityDetails struct {
	PreviousStatus Status         `json:"previous_status,omitempty"`
	NewStatus      Status         `json:"new_status,omitempty"`
	MessageID      uint           `json:"message_id,omitempty"`
	TicketNumber   int64          `json:"ticket_number,omitempty"`
	MatchedKeyword string         `json:"matched_keyword,omitempty"`
	Extra          map[string]any `json:"-"`
}

type activityDetailsAlias ActivityDetails

func (d ActivityDetails) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(activityDetailsAlias(d))
	if err != nil || len(d.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]any, len(d.Extra)+5)
	for k, v := range d.Extra {
		merged[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (d *ActivityDetails) UnmarshalJSON(data []byte) error {
	var known activityDetailsAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range []string{"previous_status", "new_status", "message_id", "ticket_number", "matched_keyword"} {
		delete(all, k)
	}
	*d = ActivityDetails(known)
	if len(all) > 0 {
		d.Extra = all
	}
	return nil
}

// Activity is an append-only audit row for a case.
type Activity struct {
	ID        uint            `json:"id"`
	CaseID    uint            `json:"case_id"`
	Type      ActivityType    `json:"type"`
	ActorID   *uint           `json:"actor_id,omitempty"`
	ActorName string          `json:"actor_name"`
	Details   ActivityDetails `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}

// ===============================================
// Case Repository
// ===============================================

// ErrDuplicateCase is returned by Repository.Create when the source message already
// has a case.
var ErrDuplicateCase = errors.New("case already exists for source message")

type Repository interface {
	// Create assigns ID and TicketNumber, and stores the optional activity in the same
	// transaction with its CaseID filled in.
	Create(ctx context.Context, c *Case, activity *Activity) error
	FindByID(ctx context.Context, id uint) (*Case, error)
	FindBySourceMessageID(ctx context.Context, messageID uint) (*Case, error)
	// ListOpenByChannel returns open cases, oldest first.
	ListOpenByChannel(ctx context.Context, channelID uint) ([]*Case, error)
	ListByChannel(ctx context.Context, channelID uint) ([]*Case, error)
	// SaveTransition persists the case's mutable fields and appends the activity atomically.
	SaveTransition(ctx context.Context, c *Case, activity *Activity) error
	ListActivities(ctx context.Context, caseID uint) ([]*Activity, error)
	CountOpen(ctx context.Context) (int64, error)
}
