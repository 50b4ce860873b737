package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
	ExamArchived  ExamStatus = "archived"
)

// Exam is owned by the staff workflow; this service only reads it.
type Exam struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	InstitutionID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"institution_id"`
	Title            string         `gorm:"not null" json:"title"`
	Status           ExamStatus     `gorm:"not null;default:'draft'" json:"status"`
	DurationMinutes  int            `gorm:"not null" json:"duration_minutes"`
	PassingThreshold *float64       `json:"passing_threshold,omitempty"` // percentage; nil = no pass/fail
	ShuffleQuestions bool           `gorm:"not null;default:false" json:"shuffle_questions"`
	Questions        []Question     `gorm:"foreignKey:ExamID" json:"questions,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
