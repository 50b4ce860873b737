package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamDailyStat is the per-exam-per-day rolling aggregate. PercentSum and
// PassCount are exact side totals so AveragePercent and PassRate can always
// be recomputed; all counters move only through atomic SQL increments.
type ExamDailyStat struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	ExamID         uuid.UUID `gorm:"type:uuid;not null;index:idx_exam_daily,unique" json:"exam_id"`
	Day            time.Time `gorm:"type:date;not null;index:idx_exam_daily,unique" json:"day"`
	AttemptCount   int64     `gorm:"not null;default:0" json:"attempt_count"`
	SubmittedCount int64     `gorm:"not null;default:0" json:"submitted_count"`
	PercentSum     float64   `gorm:"not null;default:0" json:"percent_sum"`
	PassCount      int64     `gorm:"not null;default:0" json:"pass_count"`
	AveragePercent float64   `gorm:"not null;default:0" json:"average_percent"`
	PassRate       float64   `gorm:"not null;default:0" json:"pass_rate"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// QuestionStat aggregates exposure and correctness per question.
type QuestionStat struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	QuestionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"question_id"`
	ExposureCount int64     `gorm:"not null;default:0" json:"exposure_count"`
	AnsweredCount int64     `gorm:"not null;default:0" json:"answered_count"`
	CorrectCount  int64     `gorm:"not null;default:0" json:"correct_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuestionAnswerShape is one bucket of the bounded popularity histogram of
// submitted-answer shapes for a question. At most MaxAnswerShapeBuckets
// distinct shapes are tracked per question; extra shapes are not recorded.
type QuestionAnswerShape struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primarykey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index:idx_question_shape,unique" json:"question_id"`
	Shape      string    `gorm:"size:128;not null;index:idx_question_shape,unique" json:"shape"`
	Count      int64     `gorm:"not null;default:0" json:"count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const MaxAnswerShapeBuckets = 20
