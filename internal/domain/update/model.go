// Package update holds the subset of the Telegram Bot API update payload the helpdesk consumes.
package update

import "strings"

// Kind classifies an incoming update by which payload field it carries.
type Kind string

const (
	KindMessage           Kind = "message"
	KindEditedMessage     Kind = "edited_message"
	KindChannelPost       Kind = "channel_post"
	KindEditedChannelPost Kind = "edited_channel_post"
	KindReaction          Kind = "message_reaction"
	KindMembership        Kind = "my_chat_member"
	KindUnknown           Kind = "unknown"
)

const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

type Update struct {
	UpdateID          int64                   `json:"update_id"`
	Message           *Message                `json:"message,omitempty"`
	EditedMessage     *Message                `json:"edited_message,omitempty"`
	ChannelPost       *Message                `json:"channel_post,omitempty"`
	EditedChannelPost *Message                `json:"edited_channel_post,omitempty"`
	MessageReaction   *MessageReactionUpdated `json:"message_reaction,omitempty"`
	MyChatMember      *ChatMemberUpdated      `json:"my_chat_member,omitempty"`
}

// Kind reports the payload kind, checking fields in Bot API precedence order.
func (u Update) Kind() Kind {
	switch {
	case u.Message != nil:
		return KindMessage
	case u.EditedMessage != nil:
		return KindEditedMessage
	case u.ChannelPost != nil:
		return KindChannelPost
	case u.EditedChannelPost != nil:
		return KindEditedChannelPost
	case u.MessageReaction != nil:
		return KindReaction
	case u.MyChatMember != nil:
		return KindMembership
	default:
		return KindUnknown
	}
}

// AnyMessage returns whichever message-like payload the update carries.
func (u Update) AnyMessage() *Message {
	switch u.Kind() {
	case KindMessage:
		return u.Message
	case KindEditedMessage:
		return u.EditedMessage
	case KindChannelPost:
		return u.ChannelPost
	case KindEditedChannelPost:
		return u.EditedChannelPost
	default:
		return nil
	}
}

type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// DisplayName joins first and last name, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsForum   bool   `json:"is_forum,omitempty"`
}

func (c Chat) IsPrivate() bool {
	return c.Type == ChatTypePrivate
}

// DisplayName is the chat title, or the peer's name for private chats.
func (c Chat) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name != "" {
		return name
	}
	return c.Username
}

type Message struct {
	MessageID       int64       `json:"message_id"`
	MessageThreadID int64       `json:"message_thread_id,omitempty"`
	From            *User       `json:"from,omitempty"`
	SenderChat      *Chat       `json:"sender_chat,omitempty"`
	AuthorSignature string      `json:"author_signature,omitempty"`
	Chat            *Chat       `json:"chat,omitempty"`
	Date            int64       `json:"date"`
	EditDate        int64       `json:"edit_date,omitempty"`
	ReplyToMessage  *Message    `json:"reply_to_message,omitempty"`
	Text            string      `json:"text,omitempty"`
	Caption         string      `json:"caption,omitempty"`
	Photo           []PhotoSize `json:"photo,omitempty"`
	Animation       *Animation  `json:"animation,omitempty"`
	Video           *Video      `json:"video,omitempty"`
	VideoNote       *VideoNote  `json:"video_note,omitempty"`
	Voice           *Voice      `json:"voice,omitempty"`
	Audio           *Audio      `json:"audio,omitempty"`
	Document        *Document   `json:"document,omitempty"`
	Sticker         *Sticker    `json:"sticker,omitempty"`
}

// Body returns the text, or the caption for media messages.
func (m *Message) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// LargestPhoto returns the highest resolution size of a photo message.
func (m *Message) LargestPhoto() *PhotoSize {
	var best *PhotoSize
	for i := range m.Photo {
		p := &m.Photo[i]
		if best == nil || p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Animation struct {
	FileID    string     `json:"file_id"`
	Duration  int        `json:"duration"`
	FileName  string     `json:"file_name,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	FileSize  int64      `json:"file_size,omitempty"`
	Thumbnail *PhotoSize `json:"thumbnail,omitempty"`
}

type Video struct {
	FileID    string     `json:"file_id"`
	Duration  int        `json:"duration"`
	FileName  string     `json:"file_name,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	FileSize  int64      `json:"file_size,omitempty"`
	Thumbnail *PhotoSize `json:"thumbnail,omitempty"`
}

type VideoNote struct {
	FileID    string     `json:"file_id"`
	Length    int        `json:"length"`
	Duration  int        `json:"duration"`
	FileSize  int64      `json:"file_size,omitempty"`
	Thumbnail *PhotoSize `json:"thumbnail,omitempty"`
}

type Voice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type Audio struct {
	FileID    string     `json:"file_id"`
	Duration  int        `json:"duration"`
	Performer string     `json:"performer,omitempty"`
	Title     string     `json:"title,omitempty"`
	FileName  string     `json:"file_name,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	FileSize  int64      `json:"file_size,omitempty"`
	Thumbnail *PhotoSize `json:"thumbnail,omitempty"`
}

type Document struct {
	FileID    string     `json:"file_id"`
	FileName  string     `json:"file_name,omitempty"`
	MimeType  string     `json:"mime_type,omitempty"`
	FileSize  int64      `json:"file_size,omitempty"`
	Thumbnail *PhotoSize `json:"thumbnail,omitempty"`
}

type Sticker struct {
	FileID     string     `json:"file_id"`
	Emoji      string     `json:"emoji,omitempty"`
	SetName    string     `json:"set_name,omitempty"`
	IsAnimated bool       `json:"is_animated"`
	IsVideo    bool       `json:"is_video"`
	FileSize   int64      `json:"file_size,omitempty"`
	Thumbnail  *PhotoSize `json:"thumbnail,omitempty"`
}

// MessageReactionUpdated is sent when a user changes their reactions on a message.
type MessageReactionUpdated struct {
	Chat        Chat           `json:"chat"`
	MessageID   int64          `json:"message_id"`
	User        *User          `json:"user,omitempty"`
	ActorChat   *Chat          `json:"actor_chat,omitempty"`
	Date        int64          `json:"date"`
	OldReaction []ReactionType `json:"old_reaction"`
	NewReaction []ReactionType `json:"new_reaction"`
}

// ActorName names whoever changed the reaction; anonymous admins react as the chat.
func (r MessageReactionUpdated) ActorName() string {
	if r.User != nil {
		if name := r.User.DisplayName(); name != "" {
			return name
		}
	}
	if r.ActorChat != nil {
		if name := r.ActorChat.DisplayName(); name != "" {
			return name
		}
	}
	return "Anonymous"
}

const (
	ReactionTypeEmoji       = "emoji"
	ReactionTypeCustomEmoji = "custom_emoji"
	ReactionTypePaid        = "paid"
)

type ReactionType struct {
	Type          string `json:"type"`
	Emoji         string `json:"emoji,omitempty"`
	CustomEmojiID string `json:"custom_emoji_id,omitempty"`
}

// Key is the map key a reaction is aggregated under.
func (r ReactionType) Key() string {
	switch r.Type {
	case ReactionTypeCustomEmoji:
		return "custom:" + r.CustomEmojiID
	case ReactionTypePaid:
		return "⭐"
	default:
		return r.Emoji
	}
}

// Chat member statuses reported for the bot itself.
const (
	MemberStatusCreator       = "creator"
	MemberStatusAdministrator = "administrator"
	MemberStatusMember        = "member"
	MemberStatusRestricted    = "restricted"
	MemberStatusLeft          = "left"
	MemberStatusKicked        = "kicked"
)

type ChatMember struct {
	Status   string `json:"status"`
	User     User   `json:"user"`
	IsMember bool   `json:"is_member,omitempty"`
}

// ChatMemberUpdated reports a change of the bot's own membership in a chat.
type ChatMemberUpdated struct {
	Chat          Chat       `json:"chat"`
	From          User       `json:"from"`
	Date          int64      `json:"date"`
	OldChatMember ChatMember `json:"old_chat_member"`
	NewChatMember ChatMember `json:"new_chat_member"`
}

// BotPresent reports whether the bot can still read the chat after the change.
// A restricted bot is present only while it remains a member.
func (m ChatMemberUpdated) BotPresent() bool {
	switch m.NewChatMember.Status {
	case MemberStatusLeft, MemberStatusKicked:
		return false
	case MemberStatusRestricted:
		return m.NewChatMember.IsMember
	default:
		return true
	}
}
