package ingest

import (
	"context"

	"jan-server/services/helpdesk-api/internal/domain/command"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/domain/update"
)

// Status is the outcome class of one update.
type Status string

const (
	StatusProcessed  Status = "processed"
	StatusDuplicate  Status = "duplicate"
	StatusIgnored    Status = "ignored"
	StatusReaction   Status = "reaction"
	StatusCommand    Status = "command"
	StatusMembership Status = "membership"
	StatusFailed     Status = "failed"
)

// Result is reported back to the webhook caller and recorded in metrics.
type Result struct {
	Status       Status              `json:"status"`
	Kind         update.Kind         `json:"kind"`
	Reason       string              `json:"reason,omitempty"`
	ChannelID    uint                `json:"channel_id,omitempty"`
	MessageID    uint                `json:"message_id,omitempty"`
	Role         participant.Role    `json:"role,omitempty"`
	ContentType  content.Type        `json:"content_type,omitempty"`
	Transitions  []ticket.Transition `json:"transitions,omitempty"`
	CommitmentID uint                `json:"commitment_id,omitempty"`
	Command      *command.Outcome    `json:"command,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AnalysisRequest is the payload handed to the AI-analysis collaborator.
type AnalysisRequest struct {
	MessageID   uint             `json:"message_id"`
	ChannelID   uint             `json:"channel_id"`
	Text        string           `json:"text"`
	ContentType content.Type     `json:"content_type"`
	SenderRole  participant.Role `json:"sender_role"`
}

// Analyzer scores a stored message. A nil analysis means the collaborator will write
// its result back later.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*message.Analysis, error)
}
