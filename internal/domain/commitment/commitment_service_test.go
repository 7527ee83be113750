package commitment_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/lexicon"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/infrastructure/repository/memory"
)

func newCommitmentService(t *testing.T, store *memory.Store, now time.Time) *commitment.CommitmentService {
	t.Helper()
	detector, err := commitment.NewDetector(lexicon.Default(), now.Location())
	require.NoError(t, err)
	return commitment.NewCommitmentService(store.Commitments(), detector, store.Cases(), zerolog.Nop()).
		WithClock(func() time.Time { return now })
}

func TestCapture_LinksOldestOpenCase(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 2, 10, 11, 0, 0, 0, time.FixedZone("MSK", 3*60*60))

	tickets := ticket.NewTicketService(store.Cases(), nil, zerolog.Nop())
	first, err := tickets.Create(ctx, ticket.CreateParams{ChannelID: 3, Title: "first"})
	require.NoError(t, err)
	_, err = tickets.Create(ctx, ticket.CreateParams{ChannelID: 3, Title: "second"})
	require.NoError(t, err)

	svc := newCommitmentService(t, store, now)
	agent := uint(12)
	c, err := svc.Capture(ctx, commitment.CaptureParams{
		ChannelID:  3,
		MessageID:  40,
		AgentID:    &agent,
		AgentName:  "Anna",
		SenderRole: participant.RoleEmployee,
		Text:       "I'll check within 20 minutes",
	})
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, commitment.TypeTime, c.Type)
	assert.True(t, c.DueDate.Equal(now.Add(20*time.Minute)))
	assert.True(t, c.ReminderAt.Before(c.DueDate))
	assert.Equal(t, commitment.StatusPending, c.Status)
	assert.Equal(t, participant.RoleEmployee, c.SenderRole)
	assert.False(t, c.ReminderSent)
	assert.True(t, c.UpdatedAt.Equal(now))
	require.NotNil(t, c.CaseID)
	assert.Equal(t, first.ID, *c.CaseID)

	stored, err := svc.ListByChannel(ctx, 3)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, c.ID, stored[0].ID)
	assert.Equal(t, participant.RoleEmployee, stored[0].SenderRole)
}

func TestCapture_NoCommitmentStoresNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newCommitmentService(t, store, time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC))

	c, err := svc.Capture(ctx, commitment.CaptureParams{ChannelID: 1, MessageID: 1, Text: "Thanks for waiting"})
	require.NoError(t, err)
	assert.Nil(t, c)

	stored, err := svc.ListByChannel(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCapture_UnlinkedWithoutOpenCase(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newCommitmentService(t, store, time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC))

	c, err := svc.Capture(ctx, commitment.CaptureParams{ChannelID: 1, MessageID: 1, Text: "just a moment please"})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.IsVague)
	assert.Nil(t, c.CaseID)
}

func TestCountOverdue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC)

	_, err := newCommitmentService(t, store, now).Capture(ctx, commitment.CaptureParams{ChannelID: 1, MessageID: 1, Text: "I'll check within 20 minutes"})
	require.NoError(t, err)

	n, err := newCommitmentService(t, store, now.Add(10*time.Minute)).CountOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = newCommitmentService(t, store, now.Add(time.Hour)).CountOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
