package commitment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// OpenCaseLister is the slice of the case store needed to link commitments.
type OpenCaseLister interface {
	ListOpenByChannel(ctx context.Context, channelID uint) ([]*ticket.Case, error)
}

// CommitmentService persists commitments detected in messages.
type CommitmentService struct {
	repo     Repository
	detector *Detector
	cases    OpenCaseLister
	now      func() time.Time
	log      zerolog.Logger
}

func NewCommitmentService(repo Repository, detector *Detector, cases OpenCaseLister, log zerolog.Logger) *CommitmentService {
	return &CommitmentService{
		repo:     repo,
		detector: detector,
		cases:    cases,
		now:      time.Now,
		log:      log.With().Str("component", "commitment-service").Logger(),
	}
}

// WithClock replaces the time source; used by tests.
func (s *CommitmentService) WithClock(now func() time.Time) *CommitmentService {
	s.now = now
	return s
}

type CaptureParams struct {
	ChannelID  uint
	MessageID  uint
	AgentID    *uint
	AgentName  string
	SenderRole participant.Role
	Text       string
}

// Capture stores a commitment when the text contains one and returns (nil, nil)
// otherwise. The first open case of the channel, if any, is linked.
func (s *CommitmentService) Capture(ctx context.Context, p CaptureParams) (*Commitment, error) {
	now := s.now()
	det := s.detector.Detect(p.Text, now)
	if !det.HasCommitment {
		return nil, nil
	}

	c := &Commitment{
		ChannelID:   p.ChannelID,
		MessageID:   p.MessageID,
		AgentID:     p.AgentID,
		AgentName:   p.AgentName,
		SenderRole:  p.SenderRole,
		Text:        p.Text,
		MatchedSpan: det.MatchedSpan,
		Type:        det.Type,
		IsVague:     det.IsVague,
		DueDate:     det.Deadline,
		ReminderAt:  det.ReminderAt(),
		Priority:    det.PriorityAt(now),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.cases != nil {
		open, err := s.cases.ListOpenByChannel(ctx, p.ChannelID)
		if err != nil {
			s.log.Warn().Err(err).Uint("channel_id", p.ChannelID).Msg("open case lookup failed, storing commitment unlinked")
		} else if len(open) > 0 {
			id := open[0].ID
			c.CaseID = &id
		}
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to store commitment")
	}
	return c, nil
}

func (s *CommitmentService) ListByChannel(ctx context.Context, channelID uint) ([]*Commitment, error) {
	items, err := s.repo.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list commitments")
	}
	return items, nil
}

// CountOverdue counts pending commitments whose due date has passed.
func (s *CommitmentService) CountOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.CountOverdue(ctx, s.now())
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count overdue commitments")
	}
	return n, nil
}
