package memory

import (
	"context"
	"sort"

	"jan-server/services/helpdesk-api/internal/domain/participant"
)

type UserRepository struct {
	s *Store
}

var _ participant.Repository = (*UserRepository)(nil)

func copyUser(u *participant.User) *participant.User {
	out := *u
	out.ExternalID = copyInt64Ptr(u.ExternalID)
	out.ChannelIDs = append([]uint(nil), u.ChannelIDs...)
	return &out
}

// Seed stores a directory user as-is, e.g. a staff member known only by username.
func (r *UserRepository) Seed(u participant.User) *participant.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := copyUser(&u)
	stored.ID = r.s.nextID()
	r.s.users[stored.ID] = stored
	if stored.ExternalID != nil {
		r.s.userIDs[*stored.ExternalID] = stored.ID
	}
	return copyUser(stored)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*participant.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID int64) (*participant.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if id, ok := r.s.userIDs[externalID]; ok {
		return copyUser(r.s.users[id]), nil
	}
	return nil, nil
}

func (r *UserRepository) FindUnboundByUsername(ctx context.Context, username string) (*participant.User, error) {
	username = participant.NormalizeUsername(username)
	return r.findUnbound(func(u *participant.User) bool { return u.Username == username }), nil
}

func (r *UserRepository) FindUnboundByName(ctx context.Context, name string) (*participant.User, error) {
	return r.findUnbound(func(u *participant.User) bool { return u.Name == name }), nil
}

// findUnbound returns the oldest unbound user matching, like ORDER BY id LIMIT 1.
func (r *UserRepository) findUnbound(match func(u *participant.User) bool) *participant.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uint
	for id, u := range r.s.users {
		if u.ExternalID == nil && match(u) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return copyUser(r.s.users[ids[0]])
}

func (r *UserRepository) CreateIfAbsent(ctx context.Context, u *participant.User) (*participant.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ExternalID != nil {
		if id, ok := r.s.userIDs[*u.ExternalID]; ok {
			return copyUser(r.s.users[id]), nil
		}
	}
	stored := copyUser(u)
	stored.ID = r.s.nextID()
	r.s.users[stored.ID] = stored
	if stored.ExternalID != nil {
		r.s.userIDs[*stored.ExternalID] = stored.ID
	}
	return copyUser(stored), nil
}

func (r *UserRepository) RecordSighting(ctx context.Context, id uint, s participant.Sighting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.Touch(s)
	}
	return nil
}

func (r *UserRepository) BindExternalID(ctx context.Context, id uint, externalID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.ExternalID != nil {
		return nil
	}
	if _, taken := r.s.userIDs[externalID]; taken {
		return nil
	}
	v := externalID
	u.ExternalID = &v
	r.s.userIDs[externalID] = id
	return nil
}
