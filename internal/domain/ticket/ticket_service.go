package ticket

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// TicketService drives the case lifecycle.
type TicketService struct {
	repo    Repository
	matcher *KeywordMatcher
	now     func() time.Time
	log     zerolog.Logger
}

func NewTicketService(repo Repository, resolutionKeywords []string, log zerolog.Logger) *TicketService {
	return &TicketService{
		repo:    repo,
		matcher: NewKeywordMatcher(resolutionKeywords),
		now:     time.Now,
		log:     log.With().Str("component", "ticket-service").Logger(),
	}
}

// WithClock replaces the time source; used by tests.
func (s *TicketService) WithClock(now func() time.Time) *TicketService {
	s.now = now
	return s
}

// TeamReply is a newly persisted staff message.
type TeamReply struct {
	ChannelID uint
	MessageID uint
	AgentID   *uint
	AgentName string
	Text      string
}

// Transition describes one applied status change.
type Transition struct {
	CaseID       uint   `json:"case_id"`
	TicketNumber int64  `json:"ticket_number"`
	From         Status `json:"from"`
	To           Status `json:"to"`
}

// ===============================================
// Automatic transitions
// ===============================================

// OnTeamReply advances every open case of the channel by at most one step. A failure on
// one case does not stop the others; the applied transitions are returned together
// with the joined errors.
func (s *TicketService) OnTeamReply(ctx context.Context, r TeamReply) ([]Transition, error) {
	cases, err := s.repo.ListOpenByChannel(ctx, r.ChannelID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list open cases")
	}

	keyword, resolves := s.matcher.Match(r.Text)

	var (
		applied []Transition
		errs    []error
	)
	for _, c := range cases {
		next, activityType := nextStatus(c.Status, resolves)
		if next == "" {
			continue
		}

		from := c.Status
		now := s.now()
		s.apply(c, next, r.AgentID, r.AgentName, now)

		details := ActivityDetails{PreviousStatus: from, NewStatus: next, MessageID: r.MessageID}
		if activityType == ActivityResolved {
			details.MatchedKeyword = keyword
		}
		activity := &Activity{
			CaseID:    c.ID,
			Type:      activityType,
			ActorID:   r.AgentID,
			ActorName: r.AgentName,
			Details:   details,
			CreatedAt: now,
		}

		if err := s.repo.SaveTransition(ctx, c, activity); err != nil {
			errs = append(errs, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save case transition"))
			continue
		}
		applied = append(applied, Transition{CaseID: c.ID, TicketNumber: c.TicketNumber, From: from, To: next})
	}

	return applied, errors.Join(errs...)
}

// nextStatus returns the single step a team reply causes, or "" for none. A detected
// case is picked up first and can only resolve on a later reply. Waiting cases resolve
// on a keyword just like in_progress ones.
func nextStatus(current Status, resolves bool) (Status, ActivityType) {
	switch current {
	case StatusDetected:
		return StatusInProgress, ActivityReplied
	case StatusInProgress, StatusWaiting:
		if resolves {
			return StatusResolved, ActivityResolved
		}
	}
	return "", ""
}

func (s *TicketService) apply(c *Case, next Status, agentID *uint, agentName string, now time.Time) {
	c.Status = next
	if c.AssignedTo == nil && agentID != nil {
		id := *agentID
		c.AssignedTo = &id
	}
	if c.FirstResponseAt == nil {
		c.FirstResponseAt = &now
	}
	if next == StatusResolved {
		c.ResolvedAt = &now
	}
	if agentName != "" {
		c.UpdatedBy = agentName
	}
	c.UpdatedAt = now
}

// ===============================================
// Creation and manual changes
// ===============================================

const maxTitleRunes = 200

type CreateParams struct {
	ChannelID       uint
	SourceMessageID *uint
	Title           string
	Description     string
	Category        string
	Priority        Priority
	ActorID         *uint
	ActorName       string

	// Via is the activity recorded for the creation; defaults to ActivityCreated.
	Via ActivityType
}

// Create opens a case in the detected state. A second case for the same source message
// fails with a CONFLICT error wrapping ErrDuplicateCase.
func (s *TicketService) Create(ctx context.Context, p CreateParams) (*Case, error) {
	title := strings.TrimSpace(p.Title)
	if p.ChannelID == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "channel is required", nil, "c81f4a43-9a2d-4a8e-b5f6-2f1e6f0d7a01")
	}
	if title == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "title is required", nil, "4e5b8d0a-2c6f-4b8e-8f0c-7d4a1b2c3e02")
	}
	if len([]rune(title)) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	priority := p.Priority
	if !priority.Valid() {
		priority = PriorityMedium
	}
	via := p.Via
	if via == "" {
		via = ActivityCreated
	}

	now := s.now()
	c := &Case{
		ChannelID:       p.ChannelID,
		SourceMessageID: p.SourceMessageID,
		Title:           title,
		Description:     p.Description,
		Category:        p.Category,
		Status:          StatusDetected,
		Priority:        priority,
		CreatedBy:       p.ActorName,
		UpdatedBy:       p.ActorName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	details := ActivityDetails{NewStatus: StatusDetected}
	if p.SourceMessageID != nil {
		details.MessageID = *p.SourceMessageID
	}
	activity := &Activity{
		Type:      via,
		ActorID:   p.ActorID,
		ActorName: p.ActorName,
		Details:   details,
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, c, activity); err != nil {
		if errors.Is(err, ErrDuplicateCase) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "a case already exists for this message", err, "9d3c2b1a-6e5f-4a7b-8c9d-0e1f2a3b4c03")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create case")
	}

	s.log.Info().Uint("case_id", c.ID).Int64("ticket_number", c.TicketNumber).Str("via", string(via)).Msg("case created")
	return c, nil
}

// UpdateStatus applies a manual status change, enforcing ValidTransitions.
func (s *TicketService) UpdateStatus(ctx context.Context, caseID uint, target Status, actorID *uint, actorName string) (*Case, error) {
	if !target.Valid() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "unknown status", nil, "1f2e3d4c-5b6a-4978-8695-a4b3c2d1e004")
	}
	c, err := s.repo.FindByID(ctx, caseID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load case")
	}
	if c == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "case not found", nil, "6a7b8c9d-0e1f-4a2b-9c3d-4e5f6a7b8c05")
	}
	if !c.Status.CanTransitionTo(target) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "transition not allowed", nil, "2b3c4d5e-6f7a-4b8c-9d0e-1f2a3b4c5d06").
			WithField("from", c.Status).WithField("to", target)
	}

	from := c.Status
	now := s.now()
	s.apply(c, target, actorID, actorName, now)
	activity := &Activity{
		CaseID:    c.ID,
		Type:      ActivityStatusChange,
		ActorID:   actorID,
		ActorName: actorName,
		Details:   ActivityDetails{PreviousStatus: from, NewStatus: target},
		CreatedAt: now,
	}
	if err := s.repo.SaveTransition(ctx, c, activity); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save case status")
	}
	return c, nil
}

func (s *TicketService) FindBySourceMessage(ctx context.Context, messageID uint) (*Case, error) {
	c, err := s.repo.FindBySourceMessageID(ctx, messageID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load case by source message")
	}
	return c, nil
}

func (s *TicketService) ListByChannel(ctx context.Context, channelID uint) ([]*Case, error) {
	cases, err := s.repo.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list cases")
	}
	return cases, nil
}

func (s *TicketService) ListActivities(ctx context.Context, caseID uint) ([]*Activity, error) {
	activities, err := s.repo.ListActivities(ctx, caseID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list case activity")
	}
	return activities, nil
}

// CountOpen returns the number of cases that are not closed.
func (s *TicketService) CountOpen(ctx context.Context) (int64, error) {
	n, err := s.repo.CountOpen(ctx)
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count open cases")
	}
	return n, nil
}

// FindByID returns the case or a NOT_FOUND error.
func (s *TicketService) FindByID(ctx context.Context, caseID uint) (*Case, error) {
	c, err := s.repo.FindByID(ctx, caseID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load case")
	}
	if c == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "case not found", nil, "c4d5e6f7-8a9b-4c0d-9e1f-2a3b4c5d6e07")
	}
	return c, nil
}
