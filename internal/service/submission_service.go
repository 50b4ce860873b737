package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/repository"
	"github.com/rs/zerolog/log"
)

// SubmissionService is the state machine guaranteeing at most one grading
// pass per attempt. All coordination happens through the conditional status
// transitions in AttemptRepository; there are no in-process locks.
type SubmissionService interface {
	// Submit runs the explicit-submit protocol and returns the graded result
	// with the final status (submitted, or auto_submitted when the deadline
	// had already passed).
	Submit(attemptID uuid.UUID) (*model.Result, model.AttemptStatus, error)
	// FinalizeOverdue is the lazy-expiry side effect: it grades an overdue
	// in_progress attempt as auto_submitted. Losing the lock race is fine,
	// another request is already handling it.
	FinalizeOverdue(attempt *model.Attempt) error
	// Reprocess regrades a finalized attempt in place. The Result row is
	// replaced, never duplicated, and analytics are not folded twice.
	Reprocess(attemptID uuid.UUID) (*model.Result, error)
	// SweepExpired finalizes overdue in_progress attempts: attempts with
	// saved answers are graded as auto_submitted, untouched ones are marked
	// expired without grading.
	SweepExpired(limit int) (autoSubmitted, expired int, err error)
}

type submissionService struct {
	examRepo    repository.ExamRepository
	attemptRepo repository.AttemptRepository
	answerRepo  repository.AnswerRepository
	eventRepo   repository.IntegrityEventRepository
	resultRepo  repository.ResultRepository
	scoring     ScoringService
	integrity   IntegrityService
	analytics   AnalyticsService
}

func NewSubmissionService(
	examRepo repository.ExamRepository,
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	eventRepo repository.IntegrityEventRepository,
	resultRepo repository.ResultRepository,
	scoring ScoringService,
	integrity IntegrityService,
	analytics AnalyticsService,
) SubmissionService {
	return &submissionService{
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		answerRepo:  answerRepo,
		eventRepo:   eventRepo,
		resultRepo:  resultRepo,
		scoring:     scoring,
		integrity:   integrity,
		analytics:   analytics,
	}
}

func (s *submissionService) Submit(attemptID uuid.UUID) (*model.Result, model.AttemptStatus, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeNotFound, "attempt not found", err)
	}

	switch attempt.Status {
	case model.AttemptSubmitting:
		return nil, "", apperr.New(apperr.CodeSubmitInProgress, "a submission for this attempt is already being graded")
	case model.AttemptInProgress:
		// fall through to the lock acquisition
	default:
		return nil, "", apperr.New(apperr.CodeAttemptNotEditable, "attempt is already finalized").
			WithDetail("status", string(attempt.Status))
	}

	won, err := s.attemptRepo.TransitionStatus(attempt.ID, model.AttemptInProgress, model.AttemptSubmitting)
	if err != nil {
		return nil, "", err
	}
	if !won {
		// Lost the race; re-read to tell the caller what actually happened.
		fresh, err := s.attemptRepo.FindByID(attempt.ID)
		if err != nil {
			return nil, "", err
		}
		if fresh.Status == model.AttemptSubmitting {
			return nil, "", apperr.New(apperr.CodeSubmitInProgress, "a submission for this attempt is already being graded")
		}
		return nil, "", apperr.New(apperr.CodeAttemptNotEditable, "attempt is already finalized").
			WithDetail("status", string(fresh.Status))
	}

	target := model.AttemptSubmitted
	if attempt.Overdue(time.Now()) {
		target = model.AttemptAutoSubmitted
	}

	result, err := s.gradeLocked(attempt, target)
	if err != nil {
		s.rollbackLock(attempt.ID, err)
		return nil, "", apperr.Wrap(apperr.CodeInternal, "failed to grade attempt", err)
	}
	return result, target, nil
}

func (s *submissionService) FinalizeOverdue(attempt *model.Attempt) error {
	won, err := s.attemptRepo.TransitionStatus(attempt.ID, model.AttemptInProgress, model.AttemptSubmitting)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	if _, err := s.gradeLocked(attempt, model.AttemptAutoSubmitted); err != nil {
		s.rollbackLock(attempt.ID, err)
		return apperr.Wrap(apperr.CodeInternal, "failed to auto-submit overdue attempt", err)
	}
	log.Info().Str("attempt_id", attempt.ID.String()).Msg("Overdue attempt auto-submitted")
	return nil
}

func (s *submissionService) Reprocess(attemptID uuid.UUID) (*model.Result, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "attempt not found", err)
	}
	if !attempt.Status.Terminal() {
		return nil, apperr.New(apperr.CodeAttemptNotEditable, "attempt has not been finalized yet").
			WithDetail("status", string(attempt.Status))
	}

	result, _, err := s.grade(attempt)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to regrade attempt", err)
	}
	if err := s.resultRepo.Upsert(result); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to store regraded result", err)
	}
	log.Info().Str("attempt_id", attemptID.String()).Float64("percentage", result.Percentage).Msg("Attempt reprocessed")
	return result, nil
}

func (s *submissionService) SweepExpired(limit int) (int, int, error) {
	overdue, err := s.attemptRepo.FindOverdueInProgress(time.Now(), limit)
	if err != nil {
		return 0, 0, err
	}

	autoSubmitted, expired := 0, 0
	for i := range overdue {
		attempt := &overdue[i]
		answers, err := s.answerRepo.FindAllByAttempt(attempt.ID)
		if err != nil {
			log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Sweep: failed to load answers")
			continue
		}
		if len(answers) == 0 {
			ok, err := s.attemptRepo.TransitionStatus(attempt.ID, model.AttemptInProgress, model.AttemptExpired)
			if err != nil {
				log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Sweep: failed to expire attempt")
				continue
			}
			if ok {
				expired++
			}
			continue
		}
		if err := s.FinalizeOverdue(attempt); err != nil {
			log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Sweep: failed to auto-submit attempt")
			continue
		}
		autoSubmitted++
	}
	return autoSubmitted, expired, nil
}

// gradeLocked runs the locked phase of the submit protocol: grade, upsert the
// result, fold analytics once, then release the lock into the target status.
// Any error bubbles up so the caller can roll the lock back.
func (s *submissionService) gradeLocked(attempt *model.Attempt, target model.AttemptStatus) (*model.Result, error) {
	result, outcomes, err := s.grade(attempt)
	if err != nil {
		return nil, err
	}

	if err := s.resultRepo.Upsert(result); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}

	// Check-and-set of the snapshot flag decides whether this caller folds
	// the aggregates; the aggregator itself never re-derives "have I run".
	shouldFold, err := s.resultRepo.MarkAnalyticsApplied(attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark analytics applied: %w", err)
	}
	if shouldFold {
		if err := s.analytics.ApplyResult(attempt, result, outcomes); err != nil {
			if clearErr := s.resultRepo.ClearAnalyticsApplied(attempt.ID); clearErr != nil {
				log.Error().Err(clearErr).Str("attempt_id", attempt.ID.String()).Msg("Failed to clear analytics flag after fold failure")
			}
			return nil, fmt.Errorf("failed to fold analytics: %w", err)
		}
		result.PrecomputedAnalyticsApplied = true
	}

	ok, err := s.attemptRepo.TransitionStatus(attempt.ID, model.AttemptSubmitting, target)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize attempt status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("attempt %s left submitting state unexpectedly", attempt.ID)
	}

	log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("status", string(target)).
		Float64("percentage", result.Percentage).
		Float64("integrity_score", result.IntegrityScore).
		Msg("Attempt graded")
	return result, nil
}

// grade assembles the decoded inputs and runs both pure engines. No writes.
func (s *submissionService) grade(attempt *model.Attempt) (*model.Result, []QuestionOutcome, error) {
	exam, err := s.examRepo.FindByIDWithQuestions(attempt.ExamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load exam: %w", err)
	}
	answers, err := s.answerRepo.FindAllByAttempt(attempt.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load answers: %w", err)
	}
	events, err := s.eventRepo.FindAllByAttempt(attempt.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load integrity events: %w", err)
	}

	graded, err := buildGradedQuestions(attempt, exam.Questions, answers)
	if err != nil {
		return nil, nil, err
	}

	gradeRes := s.scoring.Grade(graded, exam.PassingThreshold)
	integrityRes := s.integrity.Evaluate(events)

	breakdown, err := json.Marshal(gradeRes.SubjectBreakdown)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode subject breakdown: %w", err)
	}
	reasons, err := json.Marshal(integrityRes.Reasons)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode integrity reasons: %w", err)
	}

	result := &model.Result{
		AttemptID:         attempt.ID,
		InstitutionID:     attempt.InstitutionID,
		ExamID:            attempt.ExamID,
		TotalQuestions:    gradeRes.TotalQuestions,
		AnsweredQuestions: gradeRes.AnsweredQuestions,
		CorrectQuestions:  gradeRes.CorrectQuestions,
		PossiblePoints:    gradeRes.PossiblePoints,
		AwardedPoints:     gradeRes.AwardedPoints,
		Percentage:        gradeRes.Percentage,
		GradeLetter:       gradeRes.GradeLetter,
		Passed:            gradeRes.Passed,
		IntegrityScore:    integrityRes.Score,
		IntegrityFlagged:  integrityRes.Flagged,
		ReviewStatus:      integrityRes.ReviewStatus,
		IntegrityReasons:  reasons,
		SubjectBreakdown:  breakdown,
	}
	return result, gradeRes.Outcomes, nil
}

// buildGradedQuestions decodes every question and answer in the attempt's
// frozen order. Answer payloads were validated at save time; one that no
// longer decodes is treated as unanswered rather than failing the whole pass.
func buildGradedQuestions(attempt *model.Attempt, questions []model.Question, answers []model.Answer) ([]GradedQuestion, error) {
	var order []uuid.UUID
	if err := json.Unmarshal(attempt.QuestionOrder, &order); err != nil {
		return nil, fmt.Errorf("failed to decode frozen question order: %w", err)
	}

	questionsByID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		questionsByID[questions[i].ID] = &questions[i]
	}
	answersByQuestion := make(map[uuid.UUID]*model.Answer, len(answers))
	for i := range answers {
		answersByQuestion[answers[i].QuestionID] = &answers[i]
	}

	graded := make([]GradedQuestion, 0, len(order))
	for _, qid := range order {
		q, ok := questionsByID[qid]
		if !ok {
			// Question removed from the bank after the attempt froze its
			// order; grade it as absent rather than invent points.
			log.Warn().Str("question_id", qid.String()).Str("attempt_id", attempt.ID.String()).Msg("Frozen question no longer on exam")
			continue
		}

		gq := GradedQuestion{
			QuestionID: q.ID,
			Subject:    q.Subject,
			Type:       q.Type,
			Points:     q.Points,
			Norm: Normalization{
				Trim:               q.TrimWhitespace,
				CollapseWhitespace: q.CollapseWhitespace,
				CaseSensitive:      q.CaseSensitive,
			},
		}

		if spec, err := DecodeCorrectSpec(q); err == nil {
			gq.Correct = spec
		} else {
			log.Warn().Err(err).Str("question_id", q.ID.String()).Msg("Undecodable correct-answer spec, grading as incorrect")
		}
		if alternates, err := DecodeAcceptedAlternates(q); err == nil {
			gq.Alternates = alternates
		} else {
			log.Warn().Err(err).Str("question_id", q.ID.String()).Msg("Undecodable alternates, ignoring")
		}

		if ans, ok := answersByQuestion[q.ID]; ok {
			payload, err := DecodeAnswerPayload(q.Type, ans.Payload)
			if err != nil {
				log.Warn().Err(err).Str("question_id", q.ID.String()).Str("attempt_id", attempt.ID.String()).Msg("Stored answer payload no longer decodes, treating as unanswered")
			} else {
				gq.Submitted = payload
			}
		}

		graded = append(graded, gq)
	}
	return graded, nil
}

func (s *submissionService) rollbackLock(attemptID uuid.UUID, cause error) {
	ok, err := s.attemptRepo.TransitionStatus(attemptID, model.AttemptSubmitting, model.AttemptInProgress)
	if err != nil || !ok {
		log.Error().Err(err).Bool("reverted", ok).Str("attempt_id", attemptID.String()).Msg("Failed to roll back submitting lock")
		return
	}
	log.Warn().Err(cause).Str("attempt_id", attemptID.String()).Msg("Grading failed, submitting lock rolled back")
}
