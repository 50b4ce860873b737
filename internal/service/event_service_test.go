package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventFixture struct {
	*attemptFixture
	eventRepo *fakeEventRepo
	svc       EventService
	attempt   *model.Attempt
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()
	base := newAttemptFixture(t, 2)
	eventRepo := newFakeEventRepo()
	submission := NewSubmissionService(
		base.examRepo, base.attemptRepo, base.answerRepo, eventRepo, base.resultRepo,
		NewScoringService(), NewIntegrityService(), NewAnalyticsService(base.analytics),
	)
	started, err := base.svc.Start(StartAttemptInput{Pin: base.pin, CandidateName: "Test Candidate"})
	require.NoError(t, err)
	return &eventFixture{
		attemptFixture: base,
		eventRepo:      eventRepo,
		svc:            NewEventService(base.attemptRepo, eventRepo, submission),
		attempt:        started.Attempt,
	}
}

func TestRecordEventsAcceptsKnownDropsUnknown(t *testing.T) {
	f := newEventFixture(t)
	now := time.Now()

	accepted, dropped, err := f.svc.Record(f.attempt.ID, []EventInput{
		{Type: "tab_hidden", Severity: "warning", OccurredAt: now},
		{Type: "clipboard_paste", Severity: "critical", OccurredAt: now},
		{Type: "window_blur", OccurredAt: now},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 1, dropped)

	stored, err := f.eventRepo.FindAllByAttempt(f.attempt.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, model.EventTabHidden, stored[0].Type)
	// Missing severity defaults to info.
	assert.Equal(t, model.SeverityInfo, stored[1].Severity)
}

func TestRecordEventsAllUnknownIsValidationError(t *testing.T) {
	f := newEventFixture(t)

	_, dropped, err := f.svc.Record(f.attempt.ID, []EventInput{
		{Type: "clipboard_paste", OccurredAt: time.Now()},
		{Type: "devtools_opened", OccurredAt: time.Now()},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	assert.Equal(t, 2, dropped)

	stored, err := f.eventRepo.FindAllByAttempt(f.attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRecordEventsBatchBounds(t *testing.T) {
	f := newEventFixture(t)

	_, _, err := f.svc.Record(f.attempt.ID, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	oversized := make([]EventInput, MaxEventBatch+1)
	for i := range oversized {
		oversized[i] = EventInput{Type: "tab_hidden", OccurredAt: time.Now()}
	}
	_, _, err = f.svc.Record(f.attempt.ID, oversized)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestRecordEventsSanitizesMetadata(t *testing.T) {
	f := newEventFixture(t)

	accepted, _, err := f.svc.Record(f.attempt.ID, []EventInput{{
		Type:       "timer_drift",
		Severity:   "warning",
		OccurredAt: time.Now(),
		Metadata: map[string]interface{}{
			"drift_ms": float64(6000),
			"nested":   map[string]interface{}{"dropped": true},
			"list":     []interface{}{1, 2},
			"note":     strings.Repeat("x", 1000),
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)

	stored, err := f.eventRepo.FindAllByAttempt(f.attempt.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(stored[0].Metadata, &meta))
	assert.Equal(t, float64(6000), meta["drift_ms"])
	assert.NotContains(t, meta, "nested")
	assert.NotContains(t, meta, "list")
	assert.Len(t, meta["note"], maxMetadataValueLen)
}

func TestRecordEventsTruncatesMetadataOnRuneBoundary(t *testing.T) {
	f := newEventFixture(t)

	accepted, _, err := f.svc.Record(f.attempt.ID, []EventInput{{
		Type:       "suspicious_client_event",
		OccurredAt: time.Now(),
		Metadata: map[string]interface{}{
			"note": strings.Repeat("界", 100), // 300 bytes of 3-byte runes
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)

	stored, err := f.eventRepo.FindAllByAttempt(f.attempt.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(stored[0].Metadata, &meta))
	note := meta["note"]
	assert.LessOrEqual(t, len(note), maxMetadataValueLen)
	assert.True(t, utf8.ValidString(note), "truncation must not split a rune")
	assert.Equal(t, strings.Repeat("界", 85), note)
}

func TestRecordEventsNormalizesSeverity(t *testing.T) {
	f := newEventFixture(t)

	accepted, _, err := f.svc.Record(f.attempt.ID, []EventInput{
		{Type: "window_blur", Severity: "CRITICAL", OccurredAt: time.Now()},
		{Type: "window_blur", Severity: "bogus", OccurredAt: time.Now()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)

	stored, err := f.eventRepo.FindAllByAttempt(f.attempt.ID)
	require.NoError(t, err)
	// Unrecognized severity strings fall back to info; matching is exact.
	assert.Equal(t, model.SeverityInfo, stored[0].Severity)
	assert.Equal(t, model.SeverityInfo, stored[1].Severity)
}

func TestRecordEventsUnknownAttempt(t *testing.T) {
	f := newEventFixture(t)
	_, _, err := f.svc.Record(uuid.New(), []EventInput{{Type: "tab_hidden", OccurredAt: time.Now()}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestRecordEventsTerminalAttempt(t *testing.T) {
	f := newEventFixture(t)
	f.attemptRepo.attempts[f.attempt.ID].Status = model.AttemptSubmitted

	_, _, err := f.svc.Record(f.attempt.ID, []EventInput{{Type: "tab_hidden", OccurredAt: time.Now()}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAttemptNotEditable, apperr.CodeOf(err))
}

func TestRecordEventsOverdueAttemptIsAutoSubmitted(t *testing.T) {
	f := newEventFixture(t)
	f.attemptRepo.attempts[f.attempt.ID].ExpiresAt = time.Now().Add(-time.Minute)

	_, _, err := f.svc.Record(f.attempt.ID, []EventInput{{Type: "tab_hidden", OccurredAt: time.Now()}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAttemptExpired, apperr.CodeOf(err))

	stored, err := f.attemptRepo.FindByID(f.attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptAutoSubmitted, stored.Status)
}
