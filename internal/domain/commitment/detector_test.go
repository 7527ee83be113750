package commitment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/helpdesk-api/internal/domain/lexicon"
)

func newTestDetector(t *testing.T) (*Detector, *time.Location) {
	t.Helper()
	loc := time.FixedZone("MSK", 3*60*60)
	d, err := NewDetector(lexicon.Default(), loc)
	require.NoError(t, err)
	return d, loc
}

func TestDetectTiers(t *testing.T) {
	d, loc := newTestDetector(t)
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, loc)

	tests := []struct {
		name         string
		text         string
		wantType     Type
		wantDeadline time.Time
	}{
		{"captured minutes ru", "проверю через 15 минут", TypeTime, now.Add(15 * time.Minute)},
		{"captured minutes en", "will be back in 20 min", TypeTime, now.Add(20 * time.Minute)},
		{"captured hours ru", "ответим через 2 часа", TypeTime, now.Add(2 * time.Hour)},
		{"captured hours en", "should be deployed in 3 hours", TypeTime, now.Add(3 * time.Hour)},
		{"half an hour ru", "сделаем через полчаса", TypeTime, now.Add(30 * time.Minute)},
		{"an hour en", "I will ping you in an hour", TypeTime, now.Add(time.Hour)},
		{"tomorrow morning en", "I'll look tomorrow morning", TypeTime, time.Date(2024, 3, 15, 9, 0, 0, 0, loc)},
		{"this morning before cutover", "разберёмся утром", TypeTime, time.Date(2024, 3, 14, 12, 0, 0, 0, loc)},
		{"tomorrow", "завтра пришлю отчёт", TypeTime, time.Date(2024, 3, 15, 12, 0, 0, 0, loc)},
		{"end of day", "will send it by end of day", TypeTime, time.Date(2024, 3, 14, 18, 0, 0, 0, loc)},
		{"action ru", "я проверю логи", TypeAction, now.Add(4 * time.Hour)},
		{"action en", "I'll check with the billing team", TypeAction, now.Add(4 * time.Hour)},
		{"vague ru", "минутку, смотрю", TypeVague, now.Add(30 * time.Minute)},
		{"vague en", "just a moment please", TypeVague, now.Add(30 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.text, now)
			require.True(t, got.HasCommitment, "expected a commitment in %q", tt.text)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantType == TypeVague, got.IsVague)
			assert.True(t, tt.wantDeadline.Equal(got.Deadline), "deadline %s, want %s", got.Deadline, tt.wantDeadline)
			assert.NotEmpty(t, got.MatchedSpan)
		})
	}
}

func TestDetectNoCommitment(t *testing.T) {
	d, loc := newTestDetector(t)
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, loc)

	for _, text := range []string{
		"",
		"ok",
		"спс",
		"thanks, that was helpful",
		"у меня не работает оплата",
		"завтракать будем?",
	} {
		t.Run(text, func(t *testing.T) {
			assert.False(t, d.Detect(text, now).HasCommitment)
		})
	}
}

func TestDetectTierPrecedence(t *testing.T) {
	d, loc := newTestDetector(t)
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, loc)

	// Action and vague phrases are present, but the concrete time wins.
	got := d.Detect("минутку, я проверю и отвечу через 10 минут", now)
	assert.Equal(t, TypeTime, got.Type)
	assert.True(t, now.Add(10*time.Minute).Equal(got.Deadline))

	// Vague phrase present, action wins.
	got = d.Detect("one sec, I'll check", now)
	assert.Equal(t, TypeAction, got.Type)
}

func TestDetectTomorrowMorningInTheEvening(t *testing.T) {
	d, loc := newTestDetector(t)
	now := time.Date(2024, 3, 14, 20, 0, 0, 0, loc)

	got := d.Detect("завтра с утра посмотрю", now)

	require.True(t, got.HasCommitment)
	assert.Equal(t, TypeTime, got.Type)
	assert.False(t, got.IsVague)
	wantDeadline := time.Date(2024, 3, 15, 9, 0, 0, 0, loc)
	assert.True(t, wantDeadline.Equal(got.Deadline))
	assert.True(t, time.Date(2024, 3, 15, 8, 0, 0, 0, loc).Equal(got.ReminderAt()))
	assert.Equal(t, PriorityMedium, got.PriorityAt(now))
}

func TestThisMorningAfterCutoverMeansNextDay(t *testing.T) {
	d, loc := newTestDetector(t)
	now := time.Date(2024, 3, 14, 19, 30, 0, 0, loc)

	got := d.Detect("проверим утром", now)

	assert.Equal(t, TypeTime, got.Type)
	assert.True(t, time.Date(2024, 3, 15, 9, 0, 0, 0, loc).Equal(got.Deadline))
}

func TestEndOfDayAfterHours(t *testing.T) {
	d, loc := newTestDetector(t)
	now := time.Date(2024, 3, 14, 18, 30, 0, 0, loc)

	got := d.Detect("до конца дня сделаю", now)

	assert.Equal(t, TypeTime, got.Type)
	assert.True(t, now.Add(time.Hour).Equal(got.Deadline))
}

func TestReminderAndPriority(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		det          Detection
		wantReminder time.Time
		wantPriority Priority
	}{
		{
			name:         "time tier soon is high",
			det:          Detection{HasCommitment: true, Type: TypeTime, Deadline: now.Add(15 * time.Minute)},
			wantReminder: now.Add(-45 * time.Minute),
			wantPriority: PriorityHigh,
		},
		{
			name:         "time tier later is medium",
			det:          Detection{HasCommitment: true, Type: TypeTime, Deadline: now.Add(5 * time.Hour)},
			wantReminder: now.Add(4 * time.Hour),
			wantPriority: PriorityMedium,
		},
		{
			name:         "action is medium",
			det:          Detection{HasCommitment: true, Type: TypeAction, Deadline: now.Add(time.Hour)},
			wantReminder: now,
			wantPriority: PriorityMedium,
		},
		{
			name:         "vague is low with shorter lead",
			det:          Detection{HasCommitment: true, Type: TypeVague, IsVague: true, Deadline: now.Add(30 * time.Minute)},
			wantReminder: now,
			wantPriority: PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.wantReminder.Equal(tt.det.ReminderAt()))
			assert.Equal(t, tt.wantPriority, tt.det.PriorityAt(now))
		})
	}
}

func TestNewDetectorRejectsBrokenPattern(t *testing.T) {
	lex := &lexicon.Lexicon{Languages: []lexicon.Language{{
		Code:   "xx",
		Action: []lexicon.Pattern{{Expr: "(unclosed"}},
	}}}

	_, err := NewDetector(lex, time.UTC)
	assert.Error(t, err)
}
