package ticket_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/lexicon"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/infrastructure/repository/memory"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*ticket.TicketService, *memory.CaseRepository) {
	t.Helper()
	repo := memory.NewStore().Cases()
	svc := ticket.NewTicketService(repo, lexicon.Default().ResolutionKeywords(), zerolog.Nop()).
		WithClock(func() time.Time { return fixedNow })
	return svc, repo
}

func uintPtr(v uint) *uint { return &v }

func TestOnTeamReply_PicksUpDetectedCase(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 7, SourceMessageID: uintPtr(100), Title: "Printer is broken"})
	require.NoError(t, err)
	require.Equal(t, ticket.StatusDetected, c.Status)

	transitions, err := svc.OnTeamReply(ctx, ticket.TeamReply{
		ChannelID: 7,
		MessageID: 101,
		AgentID:   uintPtr(3),
		AgentName: "Anna",
		Text:      "Looking into it now",
	})
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, ticket.StatusDetected, transitions[0].From)
	assert.Equal(t, ticket.StatusInProgress, transitions[0].To)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, stored.Status)
	require.NotNil(t, stored.FirstResponseAt)
	assert.True(t, stored.FirstResponseAt.Equal(fixedNow))
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, uint(3), *stored.AssignedTo)
	assert.Nil(t, stored.ResolvedAt)

	activities, err := svc.ListActivities(ctx, c.ID)
	require.NoError(t, err)
	var replied []*ticket.Activity
	for _, a := range activities {
		if a.Type == ticket.ActivityReplied {
			replied = append(replied, a)
		}
	}
	require.Len(t, replied, 1)
	assert.Equal(t, ticket.StatusDetected, replied[0].Details.PreviousStatus)
	assert.Equal(t, ticket.StatusInProgress, replied[0].Details.NewStatus)
	assert.Equal(t, uint(101), replied[0].Details.MessageID)
}

func TestOnTeamReply_DetectedCaseDoesNotResolveInOneStep(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 7, Title: "VPN down"})
	require.NoError(t, err)

	_, err = svc.OnTeamReply(ctx, ticket.TeamReply{ChannelID: 7, MessageID: 2, Text: "fixed"})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, stored.Status)
}

func TestOnTeamReply_ResolvesInProgressOnKeyword(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 9, Title: "Не работает касса"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, c.ID, ticket.StatusInProgress, nil, "Олег")
	require.NoError(t, err)

	transitions, err := svc.OnTeamReply(ctx, ticket.TeamReply{
		ChannelID: 9,
		MessageID: 55,
		AgentName: "Олег",
		Text:      "Всё исправлено, проверьте",
	})
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, ticket.StatusResolved, transitions[0].To)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusResolved, stored.Status)
	require.NotNil(t, stored.ResolvedAt)

	activities, err := svc.ListActivities(ctx, c.ID)
	require.NoError(t, err)
	last := activities[len(activities)-1]
	assert.Equal(t, ticket.ActivityResolved, last.Type)
	assert.Equal(t, "исправлено", last.Details.MatchedKeyword)
}

func TestOnTeamReply_KeywordMustBeWholeWord(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 1, Title: "Login"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, c.ID, ticket.StatusInProgress, nil, "")
	require.NoError(t, err)

	transitions, err := svc.OnTeamReply(ctx, ticket.TeamReply{ChannelID: 1, Text: "the prefixed header is wrong"})
	require.NoError(t, err)
	assert.Empty(t, transitions)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, stored.Status)
}

func TestOnTeamReply_WaitingCaseAlsoResolvesOnKeyword(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 4, Title: "Refund"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, c.ID, ticket.StatusInProgress, nil, "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, c.ID, ticket.StatusWaiting, nil, "")
	require.NoError(t, err)

	transitions, err := svc.OnTeamReply(ctx, ticket.TeamReply{ChannelID: 4, Text: "any news?"})
	require.NoError(t, err)
	assert.Empty(t, transitions)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusWaiting, stored.Status)

	transitions, err = svc.OnTeamReply(ctx, ticket.TeamReply{ChannelID: 4, Text: "Refund done, please check"})
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, ticket.StatusWaiting, transitions[0].From)
	assert.Equal(t, ticket.StatusResolved, transitions[0].To)
}

func TestOnTeamReply_IgnoresOtherChannelsAndResolvedCases(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	other, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 2, Title: "Other channel"})
	require.NoError(t, err)
	done, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 1, Title: "Done already"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, done.ID, ticket.StatusResolved, nil, "")
	require.NoError(t, err)

	transitions, err := svc.OnTeamReply(ctx, ticket.TeamReply{ChannelID: 1, Text: "hello"})
	require.NoError(t, err)
	assert.Empty(t, transitions)

	cases, err := svc.ListByChannel(ctx, 2)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, other.ID, cases[0].ID)
	assert.Equal(t, ticket.StatusDetected, cases[0].Status)
}

func TestCreate_DuplicateSourceMessageConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 1, SourceMessageID: uintPtr(42), Title: "First"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ticket.CreateParams{ChannelID: 1, SourceMessageID: uintPtr(42), Title: "Second"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	existing, err := svc.FindBySourceMessage(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, "First", existing.Title)
}

func TestCreate_TicketNumbersIncrease(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	var last int64
	for i := 0; i < 3; i++ {
		c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 1, Title: "Case"})
		require.NoError(t, err)
		assert.Greater(t, c.TicketNumber, last)
		last = c.TicketNumber
	}
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, ticket.CreateParams{Title: "No channel"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.Create(ctx, ticket.CreateParams{ChannelID: 1, Title: "   "})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 1, Title: "x", Priority: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, ticket.PriorityMedium, c.Priority)
}

func TestCreate_RecordsVia(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	c, err := svc.Create(ctx, ticket.CreateParams{
		ChannelID:       1,
		SourceMessageID: uintPtr(8),
		Title:           "From command",
		ActorName:       "Anna",
		Via:             ticket.ActivityCreatedByCommand,
	})
	require.NoError(t, err)

	activities, err := svc.ListActivities(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, ticket.ActivityCreatedByCommand, activities[0].Type)
	assert.Equal(t, uint(8), activities[0].Details.MessageID)
	assert.Equal(t, c.TicketNumber, activities[0].Details.TicketNumber)
}

func TestUpdateStatus_RejectsInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	c, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 1, Title: "Case"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, c.ID, ticket.StatusWaiting, nil, "")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.UpdateStatus(ctx, c.ID, "archived", nil, "")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.UpdateStatus(ctx, 999, ticket.StatusResolved, nil, "")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = svc.UpdateStatus(ctx, c.ID, ticket.StatusResolved, nil, "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, c.ID, ticket.StatusInProgress, nil, "")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestActivityDetails_PreservesUnknownKeys(t *testing.T) {
	raw := []byte(`{"previous_status":"detected","new_status":"in_progress","source":"import"}`)

	var d ticket.ActivityDetails
	require.NoError(t, json.Unmarshal(raw, &d))
	assert.Equal(t, ticket.StatusDetected, d.PreviousStatus)
	assert.Equal(t, map[string]any{"source": "import"}, d.Extra)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestCountOpen_ExcludesResolved(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	open, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 1, Title: "open"})
	require.NoError(t, err)
	done, err := svc.Create(ctx, ticket.CreateParams{ChannelID: 2, Title: "done"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, done.ID, ticket.StatusResolved, nil, "")
	require.NoError(t, err)

	n, err := svc.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := svc.FindByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, open.TicketNumber, found.TicketNumber)

	_, err = svc.FindByID(ctx, 999)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}
