package service

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	// MaxEventBatch caps one ingestion request.
	MaxEventBatch = 50

	maxMetadataKeys     = 16
	maxMetadataValueLen = 256
)

type EventInput struct {
	Type       string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]interface{}
}

// EventService ingests client-reported behavioral events. Unknown event types
// are dropped silently so old clients keep working against a newer allow-list;
// a batch with nothing recognized is a client bug and errors.
type EventService interface {
	Record(attemptID uuid.UUID, events []EventInput) (accepted int, dropped int, err error)
}

type eventService struct {
	attemptRepo repository.AttemptRepository
	eventRepo   repository.IntegrityEventRepository
	submission  SubmissionService
}

func NewEventService(
	attemptRepo repository.AttemptRepository,
	eventRepo repository.IntegrityEventRepository,
	submission SubmissionService,
) EventService {
	return &eventService{
		attemptRepo: attemptRepo,
		eventRepo:   eventRepo,
		submission:  submission,
	}
}

func (s *eventService) Record(attemptID uuid.UUID, events []EventInput) (int, int, error) {
	if len(events) == 0 {
		return 0, 0, apperr.New(apperr.CodeValidation, "event batch is empty")
	}
	if len(events) > MaxEventBatch {
		return 0, 0, apperr.New(apperr.CodeValidation,
			fmt.Sprintf("event batch exceeds the maximum of %d", MaxEventBatch))
	}

	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.CodeNotFound, "attempt not found", err)
	}
	if attempt.Status == model.AttemptInProgress && attempt.Overdue(time.Now()) {
		if err := s.submission.FinalizeOverdue(attempt); err != nil {
			return 0, 0, err
		}
		return 0, 0, apperr.New(apperr.CodeAttemptExpired, "attempt deadline has passed").
			WithDetail("attempt_id", attempt.ID.String())
	}
	if attempt.Status != model.AttemptInProgress {
		return 0, 0, apperr.New(apperr.CodeAttemptNotEditable, "attempt is no longer accepting events").
			WithDetail("status", string(attempt.Status))
	}

	rows := make([]model.IntegrityEvent, 0, len(events))
	dropped := 0
	for _, in := range events {
		eventType := model.IntegrityEventType(in.Type)
		if !model.KnownEventTypes[eventType] {
			dropped++
			continue
		}
		row := model.IntegrityEvent{
			AttemptID:  attempt.ID,
			Type:       eventType,
			Severity:   normalizeSeverity(in.Severity),
			OccurredAt: in.OccurredAt,
		}
		if meta := sanitizeMetadata(in.Metadata); meta != nil {
			encoded, err := json.Marshal(meta)
			if err == nil {
				row.Metadata = encoded
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, dropped, apperr.New(apperr.CodeValidation, "no recognized event types in batch")
	}
	if err := s.eventRepo.CreateBatch(rows); err != nil {
		return 0, 0, apperr.Wrap(apperr.CodeInternal, "failed to store integrity events", err)
	}
	if dropped > 0 {
		log.Debug().Str("attempt_id", attempt.ID.String()).Int("dropped", dropped).Msg("Dropped unknown integrity event types")
	}
	return len(rows), dropped, nil
}

func normalizeSeverity(s string) model.EventSeverity {
	switch model.EventSeverity(s) {
	case model.SeverityWarning:
		return model.SeverityWarning
	case model.SeverityCritical:
		return model.SeverityCritical
	default:
		return model.SeverityInfo
	}
}

// sanitizeMetadata keeps only scalar values and bounds both key count and
// string length. Client metadata is untrusted and unbounded; nested structures
// are dropped wholesale.
func sanitizeMetadata(meta map[string]interface{}) map[string]interface{} {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		if len(out) >= maxMetadataKeys {
			break
		}
		if len(k) > maxMetadataValueLen {
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = truncate(val, maxMetadataValueLen)
		case bool, float64, int, int64:
			out[k] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// truncate shortens s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
