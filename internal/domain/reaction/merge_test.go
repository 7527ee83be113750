package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/update"
)

func emoji(e string) update.ReactionType {
	return update.ReactionType{Type: update.ReactionTypeEmoji, Emoji: e}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		stored message.Reactions
		old    []update.ReactionType
		new    []update.ReactionType
		actor  string
		want   message.Reactions
	}{
		{
			name:   "first reaction",
			stored: message.Reactions{},
			new:    []update.ReactionType{emoji("👍")},
			actor:  "Anna",
			want:   message.Reactions{"👍": {"Anna"}},
		},
		{
			name:   "second actor appended",
			stored: message.Reactions{"👍": {"Anna"}},
			new:    []update.ReactionType{emoji("👍")},
			actor:  "Boris",
			want:   message.Reactions{"👍": {"Anna", "Boris"}},
		},
		{
			name:   "switch reaction removes empty key",
			stored: message.Reactions{"👍": {"Anna"}},
			old:    []update.ReactionType{emoji("👍")},
			new:    []update.ReactionType{emoji("🔥")},
			actor:  "Anna",
			want:   message.Reactions{"🔥": {"Anna"}},
		},
		{
			name:   "removal keeps other actors",
			stored: message.Reactions{"👍": {"Anna", "Boris"}},
			old:    []update.ReactionType{emoji("👍")},
			actor:  "Anna",
			want:   message.Reactions{"👍": {"Boris"}},
		},
		{
			name:   "custom emoji keyed by id",
			stored: nil,
			new:    []update.ReactionType{{Type: update.ReactionTypeCustomEmoji, CustomEmojiID: "5368324170671202286"}},
			actor:  "Anna",
			want:   message.Reactions{"custom:5368324170671202286": {"Anna"}},
		},
		{
			name:   "removing an unknown reaction is harmless",
			stored: message.Reactions{"👍": {"Boris"}},
			old:    []update.ReactionType{emoji("🎉")},
			actor:  "Anna",
			want:   message.Reactions{"👍": {"Boris"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.stored, tt.old, tt.new, tt.actor)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	stored := message.Reactions{"👍": {"Boris"}}
	old := []update.ReactionType{emoji("👍")}
	newSet := []update.ReactionType{emoji("🔥"), emoji("❤")}

	once := Merge(stored, old, newSet, "Anna")
	twice := Merge(once, old, newSet, "Anna")

	assert.Equal(t, once, twice)
	assert.Equal(t, message.Reactions{"👍": {"Boris"}, "🔥": {"Anna"}, "❤": {"Anna"}}, twice)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	stored := message.Reactions{"👍": {"Anna"}}

	_ = Merge(stored, []update.ReactionType{emoji("👍")}, nil, "Anna")

	assert.Equal(t, message.Reactions{"👍": {"Anna"}}, stored)
}
