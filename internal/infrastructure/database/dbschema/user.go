package dbschema

import (
	"time"

	"github.com/lib/pq"

	"jan-server/services/helpdesk-api/internal/domain/participant"
)

type User struct {
	ID          uint          `gorm:"column:id;primaryKey"`
	ExternalID  *int64        `gorm:"column:external_id;uniqueIndex"`
	Name        string        `gorm:"column:name;size:255;not null"`
	Username    string        `gorm:"column:username;size:64;not null"`
	Role        string        `gorm:"column:role;size:16;not null"`
	ChannelIDs  pq.Int64Array `gorm:"column:channel_ids;type:bigint[];not null"`
	FirstSeenAt time.Time     `gorm:"column:first_seen_at;not null"`
	LastSeenAt  time.Time     `gorm:"column:last_seen_at;not null"`
}

func (User) TableName() string {
	return "helpdesk.users"
}

func (u *User) ToDomain() *participant.User {
	ids := make([]uint, 0, len(u.ChannelIDs))
	for _, id := range u.ChannelIDs {
		ids = append(ids, uint(id))
	}
	return &participant.User{
		ID:          u.ID,
		ExternalID:  u.ExternalID,
		Name:        u.Name,
		Username:    u.Username,
		Role:        participant.Role(u.Role),
		ChannelIDs:  ids,
		FirstSeenAt: u.FirstSeenAt,
		LastSeenAt:  u.LastSeenAt,
	}
}

func NewSchemaUser(u *participant.User) *User {
	ids := make(pq.Int64Array, 0, len(u.ChannelIDs))
	for _, id := range u.ChannelIDs {
		ids = append(ids, int64(id))
	}
	return &User{
		ID:          u.ID,
		ExternalID:  u.ExternalID,
		Name:        u.Name,
		Username:    participant.NormalizeUsername(u.Username),
		Role:        string(u.Role),
		ChannelIDs:  ids,
		FirstSeenAt: u.FirstSeenAt,
		LastSeenAt:  u.LastSeenAt,
	}
}
