package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// anonymousAdminID is the placeholder account Telegram uses for anonymous group admins.
const anonymousAdminID = 1087968824

// Sender describes who wrote a message. ExternalID is nil for channel posts and
// anonymous admins, who are only known by signature or chat.
type Sender struct {
	ExternalID *int64
	Name       string
	Username   string
	IsBot      bool
}

// SenderFromMessage extracts the sender descriptor. ok is false when the message
// carries no sender information at all.
func SenderFromMessage(msg *update.Message) (Sender, bool) {
	if msg.From != nil && msg.From.ID != anonymousAdminID {
		id := msg.From.ID
		return Sender{
			ExternalID: &id,
			Name:       msg.From.DisplayName(),
			Username:   msg.From.Username,
			IsBot:      msg.From.IsBot,
		}, true
	}
	if msg.SenderChat != nil {
		name := msg.AuthorSignature
		if name == "" {
			name = msg.SenderChat.DisplayName()
		}
		return Sender{Name: name, Username: msg.SenderChat.Username}, true
	}
	if msg.AuthorSignature != "" {
		return Sender{Name: msg.AuthorSignature}, true
	}
	return Sender{}, false
}

// PhotoFetcher loads a chat's profile photo URL.
type PhotoFetcher interface {
	ChatPhotoURL(ctx context.Context, chatID int64) (string, error)
}

// TaskRunner runs best-effort work off the request path.
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// Resolver maps chats to channels and senders to users, creating both on first sight.
type Resolver struct {
	channels channel.Repository
	users    participant.Repository
	photos   PhotoFetcher
	tasks    TaskRunner
	now      func() time.Time
	log      zerolog.Logger
}

// NewResolver builds a resolver. photos and tasks may be nil, which disables photo fetches.
func NewResolver(channels channel.Repository, users participant.Repository, photos PhotoFetcher, tasks TaskRunner, log zerolog.Logger) *Resolver {
	return &Resolver{
		channels: channels,
		users:    users,
		photos:   photos,
		tasks:    tasks,
		now:      time.Now,
		log:      log.With().Str("component", "identity-resolver").Logger(),
	}
}

// WithClock replaces the time source; used by tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// ResolveChannel returns the single channel row for chat, creating it if needed.
// Concurrent first messages from the same chat converge on one row.
func (r *Resolver) ResolveChannel(ctx context.Context, chat update.Chat, sender Sender) (*channel.Channel, error) {
	existing, err := r.channels.FindByExternalID(ctx, chat.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up channel")
	}
	if existing != nil {
		return existing, nil
	}

	name := chat.DisplayName()
	if name == "" && chat.IsPrivate() {
		name = sender.Name
	}
	if name == "" {
		name = fmt.Sprintf("chat %d", chat.ID)
	}

	now := r.now()
	stored, created, err := r.channels.CreateIfAbsent(ctx, &channel.Channel{
		ExternalChatID: chat.ID,
		Name:           name,
		Type:           channel.TypeForChat(chat.IsPrivate()),
		IsForum:        chat.IsForum,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create channel")
	}

	if created {
		r.log.Info().Uint("channel_id", stored.ID).Int64("chat_id", chat.ID).Str("type", string(stored.Type)).Msg("channel created")
		r.schedulePhotoFetch(stored.ID, chat.ID)
	}
	return stored, nil
}

// SetMembership records whether the bot is still in chat. Joining creates the channel
// when needed; leaving a chat that was never seen returns a nil channel.
func (r *Resolver) SetMembership(ctx context.Context, chat update.Chat, present bool) (*channel.Channel, error) {
	var (
		ch  *channel.Channel
		err error
	)
	if present {
		ch, err = r.ResolveChannel(ctx, chat, Sender{})
	} else {
		ch, err = r.channels.FindByExternalID(ctx, chat.ID)
		if err != nil {
			err = platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up channel")
		}
	}
	if err != nil || ch == nil {
		return nil, err
	}
	if ch.IsActive == present {
		return ch, nil
	}

	if err := r.channels.SetActive(ctx, ch.ID, present, r.now()); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update channel activity")
	}
	ch.IsActive = present
	r.log.Info().Uint("channel_id", ch.ID).Int64("chat_id", chat.ID).Bool("active", present).Msg("channel membership changed")
	return ch, nil
}

func (r *Resolver) schedulePhotoFetch(channelID uint, chatID int64) {
	if r.photos == nil || r.tasks == nil {
		return
	}
	submitted := r.tasks.Submit("channel-photo", func(ctx context.Context) error {
		url, err := r.photos.ChatPhotoURL(ctx, chatID)
		if err != nil {
			return err
		}
		if url == "" {
			return nil
		}
		return r.channels.SetPhotoURL(ctx, channelID, url)
	})
	if !submitted {
		r.log.Warn().Uint("channel_id", channelID).Msg("photo fetch dropped, worker queue full")
	}
}

// ResolveSender returns the stored user for sender, refreshing its profile fields and
// channel membership, or creates one with the classified role. A username match binds
// the sender's external id to the stored user.
func (r *Resolver) ResolveSender(ctx context.Context, sender Sender, channelID uint, cls Classification) (*participant.User, error) {
	now := r.now()
	sighting := participant.Sighting{
		Name:      sender.Name,
		Username:  participant.NormalizeUsername(sender.Username),
		ChannelID: channelID,
		At:        now,
	}

	user := cls.Matched
	if user == nil {
		found, err := r.lookup(ctx, sender)
		if err != nil {
			return nil, err
		}
		user = found
	}

	if user == nil {
		role := cls.Role
		if !role.Valid() {
			role = participant.RoleClient
		}
		created, err := r.users.CreateIfAbsent(ctx, &participant.User{
			ExternalID:  sender.ExternalID,
			Name:        sender.Name,
			Username:    sighting.Username,
			Role:        role,
			ChannelIDs:  []uint{channelID},
			FirstSeenAt: now,
			LastSeenAt:  now,
		})
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create user")
		}
		// A concurrent writer may have created the row first.
		if !created.HasChannel(channelID) {
			if err := r.users.RecordSighting(ctx, created.ID, sighting); err != nil {
				return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update user")
			}
			created.Touch(sighting)
		}
		return created, nil
	}

	if user.ExternalID == nil && sender.ExternalID != nil {
		if err := r.users.BindExternalID(ctx, user.ID, *sender.ExternalID); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to bind external id")
		}
		id := *sender.ExternalID
		user.ExternalID = &id
		r.log.Info().Uint("user_id", user.ID).Str("method", string(cls.Method)).Msg("external id bound to directory user")
	}

	if err := r.users.RecordSighting(ctx, user.ID, sighting); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update user")
	}
	user.Touch(sighting)
	return user, nil
}

// lookup finds a stored user without classification help: by external id, otherwise
// among unbound users by username and then by display name.
func (r *Resolver) lookup(ctx context.Context, sender Sender) (*participant.User, error) {
	if sender.ExternalID != nil {
		u, err := r.users.FindByExternalID(ctx, *sender.ExternalID)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up user")
		}
		return u, nil
	}
	if username := participant.NormalizeUsername(sender.Username); username != "" {
		u, err := r.users.FindUnboundByUsername(ctx, username)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up user")
		}
		if u != nil {
			return u, nil
		}
	}
	if sender.Name == "" {
		return nil, nil
	}
	u, err := r.users.FindUnboundByName(ctx, sender.Name)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up user")
	}
	return u, nil
}
