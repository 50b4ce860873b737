package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ValidatePinRequest struct {
	Pin                 string                 `json:"pin" binding:"required"`
	ExamID              uuid.UUID              `json:"exam_id" binding:"required"`
	CandidateName       string                 `json:"candidate_name"`
	CandidateIdentifier string                 `json:"candidate_identifier"`
	StartAttempt        bool                   `json:"start_attempt"`
	Metadata            map[string]interface{} `json:"metadata"`
}

type ResumeAttemptRequest struct {
	Pin                 string    `json:"pin" binding:"required"`
	ExamID              uuid.UUID `json:"exam_id" binding:"required"`
	CandidateName       string    `json:"candidate_name"`
	CandidateIdentifier string    `json:"candidate_identifier"`
}

type SaveAnswerRequest struct {
	ExamID               uuid.UUID       `json:"exam_id" binding:"required"`
	QuestionID           uuid.UUID       `json:"question_id" binding:"required"`
	Payload              json.RawMessage `json:"payload"` // null clears a previous answer
	CurrentQuestionIndex int             `json:"current_question_index" binding:"min=0"`
	IsFinal              bool            `json:"is_final"`
}

type IntegrityEventInput struct {
	Type       string                 `json:"type" binding:"required"`
	Severity   string                 `json:"severity" binding:"omitempty,oneof=info warning critical"`
	OccurredAt time.Time              `json:"occurred_at" binding:"required"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type RecordIntegrityEventsRequest struct {
	Events []IntegrityEventInput `json:"events" binding:"required,min=1,max=50,dive"`
}

type SweepExpiredRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000"`
}
