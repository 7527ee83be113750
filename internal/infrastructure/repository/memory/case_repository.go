package memory

import (
	"context"
	"sort"
	"time"

	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
)

type CaseRepository struct {
	s *Store
}

var _ ticket.Repository = (*CaseRepository)(nil)

func copyCase(c *ticket.Case) *ticket.Case {
	out := *c
	out.SourceMessageID = copyUintPtr(c.SourceMessageID)
	out.AssignedTo = copyUintPtr(c.AssignedTo)
	out.FirstResponseAt = copyTime(c.FirstResponseAt)
	out.ResolvedAt = copyTime(c.ResolvedAt)
	return &out
}

func copyActivity(a *ticket.Activity) *ticket.Activity {
	out := *a
	out.ActorID = copyUintPtr(a.ActorID)
	return &out
}

func (r *CaseRepository) Create(ctx context.Context, c *ticket.Case, activity *ticket.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.SourceMessageID != nil {
		if _, exists := r.s.caseSources[*c.SourceMessageID]; exists {
			return ticket.ErrDuplicateCase
		}
	}
	r.s.ticketNumber++
	c.ID = r.s.nextID()
	c.TicketNumber = r.s.ticketNumber
	r.s.cases[c.ID] = copyCase(c)
	if c.SourceMessageID != nil {
		r.s.caseSources[*c.SourceMessageID] = c.ID
	}
	if activity != nil {
		activity.CaseID = c.ID
		activity.Details.TicketNumber = c.TicketNumber
		activity.ID = r.s.nextID()
		r.s.activities = append(r.s.activities, copyActivity(activity))
	}
	return nil
}

func (r *CaseRepository) FindByID(ctx context.Context, id uint) (*ticket.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c, ok := r.s.cases[id]; ok {
		return copyCase(c), nil
	}
	return nil, nil
}

func (r *CaseRepository) FindBySourceMessageID(ctx context.Context, messageID uint) (*ticket.Case, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if id, ok := r.s.caseSources[messageID]; ok {
		return copyCase(r.s.cases[id]), nil
	}
	return nil, nil
}

func (r *CaseRepository) ListOpenByChannel(ctx context.Context, channelID uint) ([]*ticket.Case, error) {
	return r.list(func(c *ticket.Case) bool { return c.ChannelID == channelID && c.Status.IsOpen() }), nil
}

func (r *CaseRepository) ListByChannel(ctx context.Context, channelID uint) ([]*ticket.Case, error) {
	return r.list(func(c *ticket.Case) bool { return c.ChannelID == channelID }), nil
}

func (r *CaseRepository) list(match func(c *ticket.Case) bool) []*ticket.Case {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*ticket.Case
	for _, c := range r.s.cases {
		if match(c) {
			out = append(out, copyCase(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *CaseRepository) SaveTransition(ctx context.Context, c *ticket.Case, activity *ticket.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cases[c.ID]; !ok {
		return nil
	}
	r.s.cases[c.ID] = copyCase(c)
	if activity != nil {
		activity.CaseID = c.ID
		activity.ID = r.s.nextID()
		r.s.activities = append(r.s.activities, copyActivity(activity))
	}
	return nil
}

func (r *CaseRepository) ListActivities(ctx context.Context, caseID uint) ([]*ticket.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*ticket.Activity
	for _, a := range r.s.activities {
		if a.CaseID == caseID {
			out = append(out, copyActivity(a))
		}
	}
	return out, nil
}

func (r *CaseRepository) CountOpen(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, c := range r.s.cases {
		if c.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

type CommitmentRepository struct {
	s *Store
}

var _ commitment.Repository = (*CommitmentRepository)(nil)

func copyCommitment(c *commitment.Commitment) *commitment.Commitment {
	out := *c
	out.CaseID = copyUintPtr(c.CaseID)
	out.AgentID = copyUintPtr(c.AgentID)
	return &out
}

func (r *CommitmentRepository) Create(ctx context.Context, c *commitment.Commitment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID()
	r.s.commitments[c.ID] = copyCommitment(c)
	return nil
}

func (r *CommitmentRepository) ListByChannel(ctx context.Context, channelID uint) ([]*commitment.Commitment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*commitment.Commitment
	for _, c := range r.s.commitments {
		if c.ChannelID == channelID {
			out = append(out, copyCommitment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CommitmentRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, c := range r.s.commitments {
		if c.Status == commitment.StatusPending && c.DueDate.Before(now) {
			n++
		}
	}
	return n, nil
}
