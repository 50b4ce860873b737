package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// saveRetries bounds the optimistic retry loop for a version conflict.
const saveRetries = 3

type SaveAnswerInput struct {
	AttemptID            uuid.UUID
	ExamID               uuid.UUID
	QuestionID           uuid.UUID
	Payload              json.RawMessage
	CurrentQuestionIndex int
	IsFinal              bool
}

type SavedAnswer struct {
	Answer  *model.Answer
	Attempt *model.Attempt
}

// AnswerService is the answer ledger: one upsert-style row per (attempt,
// question), a version counter advanced by conditional updates, and an
// append-only revision trail behind every accepted write.
type AnswerService interface {
	Save(input SaveAnswerInput) (*SavedAnswer, error)
}

type answerService struct {
	attemptRepo repository.AttemptRepository
	examRepo    repository.ExamRepository
	answerRepo  repository.AnswerRepository
	submission  SubmissionService
}

func NewAnswerService(
	attemptRepo repository.AttemptRepository,
	examRepo repository.ExamRepository,
	answerRepo repository.AnswerRepository,
	submission SubmissionService,
) AnswerService {
	return &answerService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		answerRepo:  answerRepo,
		submission:  submission,
	}
}

func (s *answerService) Save(input SaveAnswerInput) (*SavedAnswer, error) {
	attempt, err := s.attemptRepo.FindByID(input.AttemptID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "attempt not found", err)
	}
	if input.ExamID != uuid.Nil && input.ExamID != attempt.ExamID {
		return nil, apperr.New(apperr.CodeValidation, "exam_id does not match the attempt").
			WithDetail("attempt_exam_id", attempt.ExamID.String())
	}

	if attempt.Status == model.AttemptInProgress && attempt.Overdue(time.Now()) {
		// Lazy expiry: this save is the first request to notice the deadline
		// passed, so it performs the auto-submit before rejecting.
		if err := s.submission.FinalizeOverdue(attempt); err != nil {
			return nil, err
		}
		return nil, apperr.New(apperr.CodeAttemptExpired, "attempt deadline has passed").
			WithDetail("attempt_id", attempt.ID.String())
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, apperr.New(apperr.CodeAttemptNotEditable, "attempt is no longer editable").
			WithDetail("status", string(attempt.Status))
	}

	question, err := s.questionOnAttempt(attempt, input.QuestionID)
	if err != nil {
		return nil, err
	}

	// Reject malformed payloads before any write. Unanswered (nil) payloads
	// are legal saves: they clear a previous answer.
	if _, err := DecodeAnswerPayload(question.Type, input.Payload); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "answer payload does not match the question type", err)
	}

	answer, err := s.write(attempt, question, input)
	if err != nil {
		return nil, err
	}

	if err := s.attemptRepo.UpdateProgress(attempt.ID, input.CurrentQuestionIndex); err != nil {
		log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to update progress pointer")
	}
	attempt.CurrentQuestionIndex = input.CurrentQuestionIndex

	return &SavedAnswer{Answer: answer, Attempt: attempt}, nil
}

// write performs the create-or-versioned-update with a bounded retry. Two
// concurrent saves to the same question are last-writer-wins at the store;
// the version counter exists for the revision trail, not for rejecting the
// slower writer.
func (s *answerService) write(attempt *model.Attempt, question *model.Question, input SaveAnswerInput) (*model.Answer, error) {
	for i := 0; i < saveRetries; i++ {
		existing, err := s.answerRepo.FindByAttemptAndQuestion(attempt.ID, question.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			answer := &model.Answer{
				AttemptID:  attempt.ID,
				QuestionID: question.ID,
				Payload:    []byte(input.Payload),
				Version:    1,
				IsFinal:    input.IsFinal,
			}
			if createErr := s.answerRepo.Create(answer); createErr != nil {
				// Unique index collision means a concurrent first save won;
				// loop again and take the update path. Anything else is a
				// store failure and retrying will not help.
				if errors.Is(createErr, gorm.ErrDuplicatedKey) {
					continue
				}
				return nil, apperr.Wrap(apperr.CodeInternal, "failed to save answer", createErr)
			}
			s.appendRevision(answer)
			return answer, nil
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to load answer", err)
		}

		existing.Payload = []byte(input.Payload)
		existing.IsFinal = input.IsFinal
		ok, err := s.answerRepo.UpdateVersioned(existing, existing.Version)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to save answer", err)
		}
		if !ok {
			continue
		}
		existing.Version++
		s.appendRevision(existing)
		return existing, nil
	}
	return nil, apperr.New(apperr.CodeInternal, "answer save kept losing version races, try again")
}

func (s *answerService) appendRevision(answer *model.Answer) {
	rev := &model.AnswerRevision{
		AnswerID:   answer.ID,
		AttemptID:  answer.AttemptID,
		QuestionID: answer.QuestionID,
		Version:    answer.Version,
		Payload:    answer.Payload,
	}
	if err := s.answerRepo.AppendRevision(rev); err != nil {
		log.Warn().Err(err).Str("answer_id", answer.ID.String()).Int("version", answer.Version).Msg("Failed to append answer revision")
	}
}

// questionOnAttempt resolves the question and checks it belongs to the
// attempt's frozen order, so a candidate cannot write answers into another
// exam's questions.
func (s *answerService) questionOnAttempt(attempt *model.Attempt, questionID uuid.UUID) (*model.Question, error) {
	var order []uuid.UUID
	if err := json.Unmarshal(attempt.QuestionOrder, &order); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to decode frozen question order", err)
	}
	onAttempt := false
	for _, qid := range order {
		if qid == questionID {
			onAttempt = true
			break
		}
	}
	if !onAttempt {
		return nil, apperr.New(apperr.CodeValidation, "question is not part of this attempt")
	}

	exam, err := s.examRepo.FindByIDWithQuestions(attempt.ExamID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load exam", err)
	}
	for i := range exam.Questions {
		if exam.Questions[i].ID == questionID {
			return &exam.Questions[i], nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "question no longer exists on the exam")
}
