package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/repository"
	"github.com/rs/zerolog/log"
)

// AnalyticsService folds graded attempts into the aggregate tables. Every
// counter moves through an atomic SQL increment in the repository; this layer
// only decides what to fold. Idempotence lives in the caller's check-and-set
// of the Result snapshot flag, not here.
type AnalyticsService interface {
	// RecordAttemptStart bumps the exam's daily attempt counter.
	RecordAttemptStart(examID uuid.UUID, startedAt time.Time) error
	// ApplyResult folds one graded submission into the daily exam stats and
	// the per-question stats. Must be called at most once per attempt.
	ApplyResult(attempt *model.Attempt, result *model.Result, outcomes []QuestionOutcome) error
}

type analyticsService struct {
	analyticsRepo repository.AnalyticsRepository
}

func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{analyticsRepo: analyticsRepo}
}

func (s *analyticsService) RecordAttemptStart(examID uuid.UUID, startedAt time.Time) error {
	return s.analyticsRepo.IncrementAttemptCount(examID, startedAt)
}

func (s *analyticsService) ApplyResult(attempt *model.Attempt, result *model.Result, outcomes []QuestionOutcome) error {
	passed := result.Passed != nil && *result.Passed
	if err := s.analyticsRepo.FoldSubmission(attempt.ExamID, attempt.StartedAt, result.Percentage, passed); err != nil {
		return fmt.Errorf("failed to fold daily exam stats: %w", err)
	}

	for _, outcome := range outcomes {
		if err := s.analyticsRepo.FoldQuestion(outcome.QuestionID, outcome.Answered, outcome.Correct); err != nil {
			return fmt.Errorf("failed to fold question %s stats: %w", outcome.QuestionID, err)
		}
		if !outcome.Answered {
			continue
		}
		shape := answerShape(outcome.Submitted)
		if shape == "" {
			continue
		}
		// Histogram is best effort; a full bucket set or a failed bump must
		// not fail the grading pass that already counted this submission.
		if err := s.analyticsRepo.RecordAnswerShape(outcome.QuestionID, shape); err != nil {
			log.Warn().Err(err).Str("question_id", outcome.QuestionID.String()).Msg("Failed to record answer shape")
		}
	}
	return nil
}

// answerShape canonicalizes a submitted payload into a histogram bucket key.
// Equal answers always map to the same key: multi selections are deduped and
// sorted, free text is lowercased and whitespace-collapsed and truncated so a
// pathological essay cannot become a kilobyte-long bucket name.
func answerShape(payload *AnswerPayload) string {
	if payload == nil {
		return ""
	}
	switch payload.Kind {
	case PayloadSingle:
		return "i:" + strconv.Itoa(payload.Single)
	case PayloadMulti:
		idxs := normalizeIndexSet(payload.Multi)
		parts := make([]string, len(idxs))
		for i, idx := range idxs {
			parts[i] = strconv.Itoa(idx)
		}
		return "m:" + strings.Join(parts, ",")
	case PayloadBool:
		return "b:" + strconv.FormatBool(payload.Bool)
	case PayloadText:
		text := strings.ToLower(strings.Join(strings.Fields(payload.Text), " "))
		return "t:" + truncate(text, 64)
	}
	return ""
}
