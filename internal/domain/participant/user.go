package participant

import (
	"context"
	"strings"
	"time"
)

// ===============================================
// Role
// ===============================================

// Role is fixed at first creation; later sightings never change it.
type Role string

const (
	RoleClient   Role = "client"
	RoleEmployee Role = "employee"
	RolePartner  Role = "partner"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleEmployee, RolePartner:
		return true
	}
	return false
}

// IsStaff reports whether messages from this role count as team replies.
func (r Role) IsStaff() bool {
	return r == RoleEmployee
}

// ===============================================
// User Types
// ===============================================

// User is a chat participant. ExternalID is nil for users only known by username or
// display name (channel posts, directory entries that never wrote to the bot).
type User struct {
	ID          uint      `json:"id"`
	ExternalID  *int64    `json:"external_id,omitempty"`
	Name        string    `json:"name"`
	Username    string    `json:"username,omitempty"`
	Role        Role      `json:"role"`
	ChannelIDs  []uint    `json:"channel_ids"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

func (u *User) HasChannel(channelID uint) bool {
	for _, id := range u.ChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}

// Touch applies a sighting to the in-memory copy, mirroring Repository.RecordSighting.
func (u *User) Touch(s Sighting) {
	if s.Name != "" {
		u.Name = s.Name
	}
	if s.Username != "" {
		u.Username = s.Username
	}
	if s.ChannelID != 0 && !u.HasChannel(s.ChannelID) {
		u.ChannelIDs = append(u.ChannelIDs, s.ChannelID)
	}
	if s.At.After(u.LastSeenAt) {
		u.LastSeenAt = s.At
	}
}

// Sighting is what one incoming message tells us about its sender.
type Sighting struct {
	Name      string
	Username  string
	ChannelID uint
	At        time.Time
}

// NormalizeUsername strips the leading @ and lowercases, the form usernames are stored in.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// ===============================================
// User Repository
// ===============================================

// Repository lookups return (nil, nil) when nothing matches.
type Repository interface {
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByExternalID(ctx context.Context, externalID int64) (*User, error)
	// FindUnboundByUsername matches users that have no external id yet.
	FindUnboundByUsername(ctx context.Context, username string) (*User, error)
	FindUnboundByName(ctx context.Context, name string) (*User, error)
	// CreateIfAbsent inserts u unless a user with the same external id exists, and
	// returns the stored row either way.
	CreateIfAbsent(ctx context.Context, u *User) (*User, error)
	RecordSighting(ctx context.Context, id uint, s Sighting) error
	BindExternalID(ctx context.Context, id uint, externalID int64) error
}
