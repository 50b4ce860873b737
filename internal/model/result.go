package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Result holds the graded outcome of one attempt. The unique index on
// AttemptID plus the insert-or-replace in ResultRepository.Upsert guarantee a
// single row per attempt no matter how often grading is retried or reprocessed.
type Result struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	AttemptID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"attempt_id"`
	InstitutionID uuid.UUID `gorm:"type:uuid;not null;index" json:"institution_id"`
	ExamID        uuid.UUID `gorm:"type:uuid;not null;index" json:"exam_id"`

	TotalQuestions    int      `gorm:"not null" json:"total_questions"`
	AnsweredQuestions int      `gorm:"not null" json:"answered_questions"`
	CorrectQuestions  int      `gorm:"not null" json:"correct_questions"`
	PossiblePoints    float64  `gorm:"not null" json:"possible_points"`
	AwardedPoints     float64  `gorm:"not null" json:"awarded_points"`
	Percentage        float64  `gorm:"not null" json:"percentage"`
	GradeLetter       string   `gorm:"not null" json:"grade_letter"`
	Passed            *bool    `json:"passed,omitempty"` // nil when the exam defines no threshold

	IntegrityScore   float64        `gorm:"not null;default:100" json:"integrity_score"`
	IntegrityFlagged bool           `gorm:"not null;default:false" json:"integrity_flagged"`
	ReviewStatus     string         `gorm:"not null;default:'clear'" json:"review_status"`
	IntegrityReasons datatypes.JSON `gorm:"type:jsonb" json:"integrity_reasons,omitempty"`

	SubjectBreakdown datatypes.JSON `gorm:"type:jsonb" json:"subject_breakdown,omitempty"`

	// PrecomputedAnalyticsApplied is the idempotence flag for the analytics
	// aggregator. It is checked-and-set by the caller in one conditional
	// update, never re-derived from the aggregate tables.
	PrecomputedAnalyticsApplied bool `gorm:"not null;default:false" json:"precomputed_analytics_applied"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
