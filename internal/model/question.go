package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMCQSingle   QuestionType = "mcq_single"
	QuestionMCQMulti    QuestionType = "mcq_multi"
	QuestionTrueFalse   QuestionType = "true_false"
	QuestionShortAnswer QuestionType = "short_answer"
)

type Question struct {
	ID       uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	ExamID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"exam_id"`
	Subject  string       `gorm:"not null;default:''" json:"subject"`
	Type     QuestionType `gorm:"not null" json:"type"`
	Prompt   string       `gorm:"type:text;not null" json:"prompt"`
	Points   float64      `gorm:"not null" json:"points"`
	Position int          `gorm:"not null" json:"position"`

	// CorrectAnswer holds the type-specific answer spec: an index for mcq_single,
	// an index array for mcq_multi, a bool for true_false, a string for short_answer.
	CorrectAnswer datatypes.JSON `gorm:"type:jsonb;not null" json:"-"`
	// AcceptedAnswers lists short_answer alternates, each as good as CorrectAnswer.
	AcceptedAnswers datatypes.JSON `gorm:"type:jsonb" json:"-"`

	// short_answer normalization rules
	TrimWhitespace     bool `gorm:"not null;default:true" json:"trim_whitespace"`
	CollapseWhitespace bool `gorm:"not null;default:true" json:"collapse_whitespace"`
	CaseSensitive      bool `gorm:"not null;default:false" json:"case_sensitive"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
