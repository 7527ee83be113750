package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/identity"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/infrastructure/repository/memory"
)

type photoFunc func(ctx context.Context, chatID int64) (string, error)

func (f photoFunc) ChatPhotoURL(ctx context.Context, chatID int64) (string, error) {
	return f(ctx, chatID)
}

// syncRunner runs submitted tasks inline.
type syncRunner struct {
	mu    sync.Mutex
	names []string
}

func (r *syncRunner) Submit(name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	_ = fn(context.Background())
	return true
}

func int64Ptr(v int64) *int64 { return &v }

var privateChat = update.Chat{ID: 1001, Type: update.ChatTypePrivate, FirstName: "Ivan"}

func TestResolveChannel_CreatesOnceAndFetchesPhoto(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	runner := &syncRunner{}
	photos := photoFunc(func(ctx context.Context, chatID int64) (string, error) {
		return "https://cdn.example/photo.jpg", nil
	})
	r := identity.NewResolver(store.Channels(), store.Users(), photos, runner, zerolog.Nop())

	first, err := r.ResolveChannel(ctx, privateChat, identity.Sender{Name: "Ivan"})
	require.NoError(t, err)
	assert.Equal(t, channel.TypeClient, first.Type)
	assert.Equal(t, "Ivan", first.Name)
	assert.True(t, first.IsActive)

	second, err := r.ResolveChannel(ctx, privateChat, identity.Sender{Name: "Ivan"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, []string{"channel-photo"}, runner.names)
	stored, err := store.Channels().FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/photo.jpg", stored.PhotoURL)
}

func TestResolveChannel_ConcurrentFirstMessages(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := identity.NewResolver(store.Channels(), store.Users(), nil, nil, zerolog.Nop())
	group := update.Chat{ID: -100500, Type: update.ChatTypeSupergroup, Title: "Partners"}

	const n = 16
	ids := make([]uint, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, err := r.ResolveChannel(ctx, group, identity.Sender{})
			if assert.NoError(t, err) {
				ids[i] = ch.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	ch, err := store.Channels().FindByExternalID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, channel.TypePartner, ch.Type)
	assert.Equal(t, "Partners", ch.Name)
}

func TestSetMembership_DeactivatesAndReactivates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := identity.NewResolver(store.Channels(), store.Users(), nil, nil, zerolog.Nop())
	group := update.Chat{ID: -100700, Type: update.ChatTypeSupergroup, Title: "Acme"}

	missing, err := r.SetMembership(ctx, update.Chat{ID: -1, Type: update.ChatTypeGroup}, false)
	require.NoError(t, err)
	assert.Nil(t, missing)

	joined, err := r.SetMembership(ctx, group, true)
	require.NoError(t, err)
	require.NotNil(t, joined)
	assert.True(t, joined.IsActive)

	left, err := r.SetMembership(ctx, group, false)
	require.NoError(t, err)
	assert.Equal(t, joined.ID, left.ID)
	stored, err := store.Channels().FindByID(ctx, joined.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = r.SetMembership(ctx, group, true)
	require.NoError(t, err)
	stored, err = store.Channels().FindByID(ctx, joined.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestResolveSender_BindsDirectoryUserByUsername(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := store.Users()
	seeded := users.Seed(participant.User{Name: "Anna", Username: "anna_support", Role: participant.RoleEmployee})

	cls := identity.NewDirectoryClassifier(users, identity.Directory{})
	r := identity.NewResolver(store.Channels(), users, nil, nil, zerolog.Nop())

	sender := identity.Sender{ExternalID: int64Ptr(4242), Name: "Anna K", Username: "@Anna_Support"}
	classification, err := cls.Classify(ctx, sender, privateChat)
	require.NoError(t, err)
	assert.Equal(t, identity.MethodUsernameMatch, classification.Method)
	assert.Equal(t, participant.RoleEmployee, classification.Role)

	u, err := r.ResolveSender(ctx, sender, 7, classification)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, u.ID)
	require.NotNil(t, u.ExternalID)
	assert.Equal(t, int64(4242), *u.ExternalID)
	assert.True(t, u.HasChannel(7))

	bound, err := users.FindByExternalID(ctx, 4242)
	require.NoError(t, err)
	require.NotNil(t, bound)
	assert.Equal(t, seeded.ID, bound.ID)
	assert.Equal(t, "Anna K", bound.Name)

	again, err := cls.Classify(ctx, sender, privateChat)
	require.NoError(t, err)
	assert.Equal(t, identity.MethodIDMatch, again.Method)
}

func TestResolveSender_CreatesWithClassifiedRoleAndKeepsIt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := store.Users()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := identity.NewResolver(store.Channels(), users, nil, nil, zerolog.Nop()).
		WithClock(func() time.Time { return now })
	cls := identity.NewDirectoryClassifier(users, identity.Directory{StaffIDs: []int64{9}})

	sender := identity.Sender{ExternalID: int64Ptr(9), Name: "Oleg"}
	classification, err := cls.Classify(ctx, sender, privateChat)
	require.NoError(t, err)
	assert.Equal(t, identity.MethodConfigMatch, classification.Method)

	u, err := r.ResolveSender(ctx, sender, 1, classification)
	require.NoError(t, err)
	assert.Equal(t, participant.RoleEmployee, u.Role)
	assert.True(t, u.FirstSeenAt.Equal(now))

	// A later sighting in another channel adds membership without touching the role.
	now = now.Add(time.Hour)
	u, err = r.ResolveSender(ctx, sender, 2, identity.Classification{Role: participant.RoleClient, Method: identity.MethodHeuristic})
	require.NoError(t, err)
	assert.Equal(t, participant.RoleEmployee, u.Role)
	assert.ElementsMatch(t, []uint{1, 2}, u.ChannelIDs)
	assert.True(t, u.LastSeenAt.Equal(now))
}

func TestResolveSender_ChannelPostMatchesByName(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := store.Users()
	seeded := users.Seed(participant.User{Name: "Support Desk", Role: participant.RoleEmployee})
	r := identity.NewResolver(store.Channels(), users, nil, nil, zerolog.Nop())

	post := &update.Message{
		MessageID:       3,
		SenderChat:      &update.Chat{ID: -100777, Type: update.ChatTypeChannel, Title: "News"},
		AuthorSignature: "Support Desk",
		Chat:            &update.Chat{ID: -100777, Type: update.ChatTypeChannel, Title: "News"},
		Text:            "Maintenance tonight",
	}
	sender, ok := identity.SenderFromMessage(post)
	require.True(t, ok)
	assert.Nil(t, sender.ExternalID)
	assert.Equal(t, "Support Desk", sender.Name)

	u, err := r.ResolveSender(ctx, sender, 5, identity.Classification{Role: participant.RolePartner, Method: identity.MethodHeuristic})
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, u.ID)
	assert.Equal(t, participant.RoleEmployee, u.Role)
}

func TestSenderFromMessage_AnonymousAdmin(t *testing.T) {
	msg := &update.Message{
		From:       &update.User{ID: 1087968824, FirstName: "Group"},
		SenderChat: &update.Chat{ID: -1, Type: update.ChatTypeSupergroup, Title: "Ops"},
	}
	sender, ok := identity.SenderFromMessage(msg)
	require.True(t, ok)
	assert.Nil(t, sender.ExternalID)
	assert.Equal(t, "Ops", sender.Name)

	_, ok = identity.SenderFromMessage(&update.Message{})
	assert.False(t, ok)
}

func TestDirectoryClassifier_Heuristic(t *testing.T) {
	ctx := context.Background()
	cls := identity.NewDirectoryClassifier(memory.NewStore().Users(), identity.Directory{PartnerUsernames: []string{"@vendor"}})

	got, err := cls.Classify(ctx, identity.Sender{ExternalID: int64Ptr(1)}, privateChat)
	require.NoError(t, err)
	assert.Equal(t, participant.RoleClient, got.Role)
	assert.Equal(t, identity.MethodHeuristic, got.Method)

	group := update.Chat{ID: -5, Type: update.ChatTypeGroup}
	got, err = cls.Classify(ctx, identity.Sender{ExternalID: int64Ptr(2)}, group)
	require.NoError(t, err)
	assert.Equal(t, participant.RolePartner, got.Role)

	got, err = cls.Classify(ctx, identity.Sender{ExternalID: int64Ptr(3), Username: "Vendor"}, privateChat)
	require.NoError(t, err)
	assert.Equal(t, participant.RolePartner, got.Role)
	assert.Equal(t, identity.MethodConfigMatch, got.Method)
}
