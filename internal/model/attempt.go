package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress    AttemptStatus = "in_progress"
	AttemptSubmitting    AttemptStatus = "submitting"
	AttemptSubmitted     AttemptStatus = "submitted"
	AttemptAutoSubmitted AttemptStatus = "auto_submitted"
	AttemptExpired       AttemptStatus = "expired"
)

// attemptTransitions is the full status DAG. Every status write goes through
// AttemptRepository.TransitionStatus, which is guarded by this table; a
// transition not listed here is rejected before any store access.
// "submitting" -> "in_progress" is the rollback edge for failed grading passes.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptInProgress: {AttemptSubmitting, AttemptExpired},
	AttemptSubmitting: {AttemptSubmitted, AttemptAutoSubmitted, AttemptInProgress},
}

func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	for _, t := range attemptTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the attempt left the editable part of its lifecycle.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptSubmitted || s == AttemptAutoSubmitted || s == AttemptExpired
}

// Attempt is one candidate's timed run of one exam. QuestionOrder is frozen
// at creation (shuffled once if the exam asks for it) and never rewritten;
// ExpiresAt is the sole timer authority and is never extended.
type Attempt struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	InstitutionID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"institution_id"`
	ExamID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"exam_id"`
	CandidateID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"candidate_id"`
	Candidate            Candidate      `gorm:"foreignKey:CandidateID" json:"candidate,omitempty"`
	PinID                uuid.UUID      `gorm:"type:uuid;not null;index" json:"pin_id"`
	Status               AttemptStatus  `gorm:"not null;default:'in_progress';index" json:"status"`
	StartedAt            time.Time      `gorm:"not null" json:"started_at"`
	ExpiresAt            time.Time      `gorm:"not null" json:"expires_at"`
	CurrentQuestionIndex int            `gorm:"not null;default:0" json:"current_question_index"`
	QuestionOrder        datatypes.JSON `gorm:"type:jsonb;not null" json:"question_order"` // frozen []uuid
	Metadata             datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Overdue reports whether the deadline has passed. Detection is lazy: nothing
// flips an overdue attempt until the next request touches it.
func (a *Attempt) Overdue(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
