package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Answer is the latest payload for one (attempt, question) pair. Version is
// advanced by a version-checked conditional update; every accepted write also
// appends an AnswerRevision.
type Answer struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	AttemptID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_answer_attempt_question,unique" json:"attempt_id"`
	QuestionID uuid.UUID      `gorm:"type:uuid;not null;index:idx_answer_attempt_question,unique" json:"question_id"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Version    int            `gorm:"not null;default:1" json:"version"`
	IsFinal    bool           `gorm:"not null;default:false" json:"is_final"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// AnswerRevision is the append-only history of one answer. Never updated.
type AnswerRevision struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	AnswerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"answer_id"`
	AttemptID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"attempt_id"`
	QuestionID uuid.UUID      `gorm:"type:uuid;not null" json:"question_id"`
	Version    int            `gorm:"not null" json:"version"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}
