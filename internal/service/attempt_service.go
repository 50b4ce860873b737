package service

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/repository"
	"github.com/rs/zerolog/log"
)

// StartAttemptInput is what Validate-with-start hands the factory after the
// PIN has been spent.
type StartAttemptInput struct {
	Pin                 *model.ExamPin
	CandidateName       string
	CandidateIdentifier string
	Metadata            map[string]interface{}
}

// ResumeInput identifies the returning candidate. At least one of the two
// candidate fields must be supplied; matching is case-insensitive and
// whitespace-normalized on whichever fields are present.
type ResumeInput struct {
	Pin                 *model.ExamPin
	CandidateName       string
	CandidateIdentifier string
}

type StartedAttempt struct {
	Attempt   *model.Attempt
	Candidate *model.Candidate
	Exam      *model.Exam
}

type ResumedAttempt struct {
	Attempt   *model.Attempt
	Candidate *model.Candidate
}

// AttemptService creates attempts with a frozen question order and finds the
// unique resumable attempt for a returning candidate.
type AttemptService interface {
	Start(input StartAttemptInput) (*StartedAttempt, error)
	Resume(input ResumeInput) (*ResumedAttempt, error)
}

type attemptService struct {
	examRepo      repository.ExamRepository
	candidateRepo repository.CandidateRepository
	attemptRepo   repository.AttemptRepository
	submission    SubmissionService
	analytics     AnalyticsService
	rng           *rand.Rand
}

func NewAttemptService(
	examRepo repository.ExamRepository,
	candidateRepo repository.CandidateRepository,
	attemptRepo repository.AttemptRepository,
	submission SubmissionService,
	analytics AnalyticsService,
) AttemptService {
	return &attemptService{
		examRepo:      examRepo,
		candidateRepo: candidateRepo,
		attemptRepo:   attemptRepo,
		submission:    submission,
		analytics:     analytics,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *attemptService) Start(input StartAttemptInput) (*StartedAttempt, error) {
	exam, err := s.examRepo.FindByIDWithQuestions(input.Pin.ExamID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "exam not found", err)
	}
	if exam.Status != model.ExamPublished {
		return nil, apperr.New(apperr.CodeExamNotPublished, "exam is not open for attempts").
			WithDetail("status", string(exam.Status))
	}
	if len(exam.Questions) == 0 {
		return nil, apperr.New(apperr.CodeExamHasNoQuestions, "exam has no questions attached")
	}

	candidate := &model.Candidate{
		InstitutionID:        exam.InstitutionID,
		ExamID:               exam.ID,
		Name:                 input.CandidateName,
		Identifier:           input.CandidateIdentifier,
		NameNormalized:       normalizeIdentity(input.CandidateName),
		IdentifierNormalized: normalizeIdentity(input.CandidateIdentifier),
	}
	if err := s.candidateRepo.Create(candidate); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create candidate record", err)
	}

	order := s.freezeQuestionOrder(exam)
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to encode question order", err)
	}

	var metadataJSON []byte
	if len(input.Metadata) > 0 {
		metadataJSON, err = json.Marshal(input.Metadata)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, "attempt metadata is not encodable", err)
		}
	}

	now := time.Now()
	attempt := &model.Attempt{
		InstitutionID: exam.InstitutionID,
		ExamID:        exam.ID,
		CandidateID:   candidate.ID,
		PinID:         input.Pin.ID,
		Status:        model.AttemptInProgress,
		StartedAt:     now,
		ExpiresAt:     now.Add(time.Duration(exam.DurationMinutes) * time.Minute),
		QuestionOrder: orderJSON,
		Metadata:      metadataJSON,
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create attempt", err)
	}

	if err := s.analytics.RecordAttemptStart(exam.ID, now); err != nil {
		log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to bump daily attempt count")
	}

	log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", exam.ID.String()).
		Time("expires_at", attempt.ExpiresAt).
		Bool("shuffled", exam.ShuffleQuestions).
		Msg("Attempt started")
	return &StartedAttempt{Attempt: attempt, Candidate: candidate, Exam: exam}, nil
}

// freezeQuestionOrder builds the immutable question id sequence: identity
// order unless the exam asks for shuffling, in which case one unbiased
// Fisher-Yates pass at creation time.
func (s *attemptService) freezeQuestionOrder(exam *model.Exam) []uuid.UUID {
	order := make([]uuid.UUID, len(exam.Questions))
	for i, q := range exam.Questions {
		order[i] = q.ID
	}
	if exam.ShuffleQuestions {
		for i := len(order) - 1; i > 0; i-- {
			j := s.rng.Intn(i + 1)
			order[i], order[j] = order[j], order[i]
		}
	}
	return order
}

func (s *attemptService) Resume(input ResumeInput) (*ResumedAttempt, error) {
	name := normalizeIdentity(input.CandidateName)
	identifier := normalizeIdentity(input.CandidateIdentifier)
	if name == "" && identifier == "" {
		return nil, apperr.New(apperr.CodeValidation, "candidate name or identifier is required to resume")
	}

	attempts, err := s.attemptRepo.FindByPin(input.Pin.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load attempts for PIN", err)
	}

	var matched []model.Attempt
	for _, attempt := range attempts {
		if matchesCandidate(&attempt.Candidate, name, identifier) {
			matched = append(matched, attempt)
		}
	}

	var inProgress []model.Attempt
	for _, attempt := range matched {
		if attempt.Status == model.AttemptInProgress {
			inProgress = append(inProgress, attempt)
		}
	}

	switch len(inProgress) {
	case 0:
		if len(matched) > 0 {
			return nil, apperr.New(apperr.CodeAttemptNotResumable, "attempt is already finalized").
				WithDetail("status", string(matched[0].Status))
		}
		return nil, apperr.New(apperr.CodeResumeNotFound, "no attempt matches the supplied candidate details")
	case 1:
		attempt := inProgress[0]
		if attempt.Overdue(time.Now()) {
			if err := s.submission.FinalizeOverdue(&attempt); err != nil {
				return nil, err
			}
			return nil, apperr.New(apperr.CodeAttemptExpired, "attempt deadline has passed").
				WithDetail("attempt_id", attempt.ID.String())
		}
		log.Info().Str("attempt_id", attempt.ID.String()).Int("current_question_index", attempt.CurrentQuestionIndex).Msg("Attempt resumed")
		return &ResumedAttempt{Attempt: &attempt, Candidate: &attempt.Candidate}, nil
	default:
		return nil, apperr.New(apperr.CodeResumeAmbiguous,
			fmt.Sprintf("%d attempts in progress match the supplied candidate details", len(inProgress)))
	}
}

// matchesCandidate compares on every supplied field; a field the caller left
// blank does not constrain the match.
func matchesCandidate(candidate *model.Candidate, name, identifier string) bool {
	if name != "" && candidate.NameNormalized != name {
		return false
	}
	if identifier != "" && candidate.IdentifierNormalized != identifier {
		return false
	}
	return true
}
