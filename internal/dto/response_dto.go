package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type AttemptResponse struct {
	ID                   uuid.UUID   `json:"id"`
	ExamID               uuid.UUID   `json:"exam_id"`
	Status               string      `json:"status"`
	StartedAt            time.Time   `json:"started_at"`
	ExpiresAt            time.Time   `json:"expires_at"`
	CurrentQuestionIndex int         `json:"current_question_index"`
	QuestionOrder        []uuid.UUID `json:"question_order"`
}

type ValidatePinResponse struct {
	Valid         bool             `json:"valid"`
	PinID         uuid.UUID        `json:"pin_id"`
	InstitutionID uuid.UUID        `json:"institution_id"`
	UsesRemaining int              `json:"uses_remaining"`
	Attempt       *AttemptResponse `json:"attempt,omitempty"`
}

type ResumeAttemptResponse struct {
	Attempt       AttemptResponse `json:"attempt"`
	CandidateName string          `json:"candidate_name"`
}

type SaveAnswerResponse struct {
	QuestionID uuid.UUID `json:"question_id"`
	Version    int       `json:"version"`
	IsFinal    bool      `json:"is_final"`
	SavedAt    time.Time `json:"saved_at"`
}

type ResultResponse struct {
	AttemptID         uuid.UUID       `json:"attempt_id"`
	TotalQuestions    int             `json:"total_questions"`
	AnsweredQuestions int             `json:"answered_questions"`
	CorrectQuestions  int             `json:"correct_questions"`
	PossiblePoints    float64         `json:"possible_points"`
	AwardedPoints     float64         `json:"awarded_points"`
	Percentage        float64         `json:"percentage"`
	GradeLetter       string          `json:"grade_letter"`
	Passed            *bool           `json:"passed,omitempty"`
	IntegrityScore    float64         `json:"integrity_score"`
	IntegrityFlagged  bool            `json:"integrity_flagged"`
	ReviewStatus      string          `json:"review_status"`
	IntegrityReasons  json.RawMessage `json:"integrity_reasons,omitempty"`
	SubjectBreakdown  json.RawMessage `json:"subject_breakdown,omitempty"`
}

type SubmitAttemptResponse struct {
	Status string         `json:"status"`
	Result ResultResponse `json:"result"`
}

type RecordIntegrityEventsResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

type SweepExpiredResponse struct {
	AutoSubmitted int `json:"auto_submitted"`
	Expired       int `json:"expired"`
}
