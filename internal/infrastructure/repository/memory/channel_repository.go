package memory

import (
	"context"
	"time"

	"jan-server/services/helpdesk-api/internal/domain/channel"
)

type ChannelRepository struct {
	s *Store
}

var _ channel.Repository = (*ChannelRepository)(nil)

func copyChannel(ch *channel.Channel) *channel.Channel {
	out := *ch
	out.LastMessageAt = copyTime(ch.LastMessageAt)
	out.LastClientMessageAt = copyTime(ch.LastClientMessageAt)
	out.LastAgentMessageAt = copyTime(ch.LastAgentMessageAt)
	out.LastTeamMessageAt = copyTime(ch.LastTeamMessageAt)
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (r *ChannelRepository) FindByID(ctx context.Context, id uint) (*channel.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if ch, ok := r.s.channels[id]; ok {
		return copyChannel(ch), nil
	}
	return nil, nil
}

func (r *ChannelRepository) FindByExternalID(ctx context.Context, externalChatID int64) (*channel.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if id, ok := r.s.channelIDs[externalChatID]; ok {
		return copyChannel(r.s.channels[id]), nil
	}
	return nil, nil
}

func (r *ChannelRepository) CreateIfAbsent(ctx context.Context, ch *channel.Channel) (*channel.Channel, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id, ok := r.s.channelIDs[ch.ExternalChatID]; ok {
		return copyChannel(r.s.channels[id]), false, nil
	}
	stored := copyChannel(ch)
	stored.ID = r.s.nextID()
	r.s.channels[stored.ID] = stored
	r.s.channelIDs[stored.ExternalChatID] = stored.ID
	return copyChannel(stored), true, nil
}

func (r *ChannelRepository) RecordClientActivity(ctx context.Context, id uint, a channel.ClientActivity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ch, ok := r.s.channels[id]
	if !ok {
		return nil
	}
	at := a.At
	ch.UnreadCount++
	ch.AwaitingReply = true
	ch.IsActive = true
	ch.LastClientMessageAt = &at
	ch.LastMessageAt = copyTime(&at)
	ch.LastSenderName = a.SenderName
	ch.LastMessagePreview = a.Preview
	if a.ResponseSampleMs != nil {
		ch.ClientAvgResponseMs = channel.NextAverage(ch.ClientAvgResponseMs, ch.ClientResponseCount, *a.ResponseSampleMs)
		ch.ClientResponseCount++
	}
	ch.UpdatedAt = at
	return nil
}

func (r *ChannelRepository) RecordTeamActivity(ctx context.Context, id uint, a channel.TeamActivity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ch, ok := r.s.channels[id]
	if !ok {
		return nil
	}
	at := a.At
	ch.AwaitingReply = false
	ch.UnreadCount = 0
	ch.LastAgentMessageAt = &at
	ch.LastTeamMessageAt = copyTime(&at)
	ch.IsActive = true
	ch.LastMessageAt = copyTime(&at)
	ch.LastSenderName = a.SenderName
	ch.LastMessagePreview = a.Preview
	ch.UpdatedAt = at
	return nil
}

func (r *ChannelRepository) SetPhotoURL(ctx context.Context, id uint, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ch, ok := r.s.channels[id]; ok {
		ch.PhotoURL = url
	}
	return nil
}

func (r *ChannelRepository) SetActive(ctx context.Context, id uint, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ch, ok := r.s.channels[id]; ok {
		ch.IsActive = active
		ch.UpdatedAt = at
	}
	return nil
}
