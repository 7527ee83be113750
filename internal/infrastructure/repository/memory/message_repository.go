package memory

import (
	"context"

	"jan-server/services/helpdesk-api/internal/domain/message"
)

type MessageRepository struct {
	s *Store
}

var _ message.Repository = (*MessageRepository)(nil)

func copyMessage(m *message.Message) *message.Message {
	out := *m
	out.ThreadID = copyInt64Ptr(m.ThreadID)
	out.SenderID = copyUintPtr(m.SenderID)
	out.ReplyToExternalID = copyInt64Ptr(m.ReplyToExternalID)
	out.CaseID = copyUintPtr(m.CaseID)
	out.ResponseTimeMs = copyInt64Ptr(m.ResponseTimeMs)
	out.Reactions = m.Reactions.Clone()
	if m.Urgency != nil {
		v := *m.Urgency
		out.Urgency = &v
	}
	return &out
}

func (r *MessageRepository) Insert(ctx context.Context, m *message.Message) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := messageKey{channelID: m.ChannelID, externalID: m.ExternalID}
	if _, exists := r.s.messageKeys[key]; exists {
		return false, nil
	}
	m.ID = r.s.nextID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.SentAt
	}
	r.s.messages[m.ID] = copyMessage(m)
	r.s.messageKeys[key] = m.ID
	return true, nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id uint) (*message.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if m, ok := r.s.messages[id]; ok {
		return copyMessage(m), nil
	}
	return nil, nil
}

func (r *MessageRepository) FindByExternalID(ctx context.Context, channelID uint, externalID int64) (*message.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if id, ok := r.s.messageKeys[messageKey{channelID: channelID, externalID: externalID}]; ok {
		return copyMessage(r.s.messages[id]), nil
	}
	return nil, nil
}

func (r *MessageRepository) MarkClientMessagesRead(ctx context.Context, channelID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.ChannelID == channelID && m.IsFromClient {
			m.IsRead = true
		}
	}
	return nil
}

func (r *MessageRepository) UpdateReactions(ctx context.Context, id uint, reactions message.Reactions) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.messages[id]; ok {
		m.Reactions = reactions.Clone()
	}
	return nil
}

func (r *MessageRepository) SetCase(ctx context.Context, id uint, caseID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.messages[id]; ok {
		v := caseID
		m.CaseID = &v
	}
	return nil
}

func (r *MessageRepository) SetAnalysis(ctx context.Context, id uint, analysis message.Analysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil
	}
	if analysis.Urgency != nil {
		v := *analysis.Urgency
		m.Urgency = &v
	}
	if analysis.Sentiment != "" {
		m.Sentiment = analysis.Sentiment
	}
	return nil
}

// Count returns the number of stored messages.
func (r *MessageRepository) Count() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.messages)
}
