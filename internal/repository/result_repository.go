package repository

import (
	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResultRepository interface {
	// Upsert inserts the result or replaces the existing row keyed on
	// attempt_id. The unique index guarantees there are never two rows for
	// one attempt, however often grading is retried.
	Upsert(result *model.Result) error
	FindByAttempt(attemptID uuid.UUID) (*model.Result, error)
	// MarkAnalyticsApplied flips precomputed_analytics_applied false->true in
	// one conditional update. false means another caller already folded this
	// result into the aggregates.
	MarkAnalyticsApplied(attemptID uuid.UUID) (bool, error)
	// ClearAnalyticsApplied reverts the flag; used on aggregator failure so
	// a retried submission folds the result after all.
	ClearAnalyticsApplied(attemptID uuid.UUID) error
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Upsert(result *model.Result) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_questions", "answered_questions", "correct_questions",
			"possible_points", "awarded_points", "percentage", "grade_letter",
			"passed", "integrity_score", "integrity_flagged", "review_status",
			"integrity_reasons", "subject_breakdown", "updated_at",
		}),
	}).Create(result).Error
}

func (r *resultRepository) FindByAttempt(attemptID uuid.UUID) (*model.Result, error) {
	var result model.Result
	if err := r.db.First(&result, "attempt_id = ?", attemptID).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepository) MarkAnalyticsApplied(attemptID uuid.UUID) (bool, error) {
	res := r.db.Model(&model.Result{}).
		Where("attempt_id = ? AND precomputed_analytics_applied = false", attemptID).
		Update("precomputed_analytics_applied", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *resultRepository) ClearAnalyticsApplied(attemptID uuid.UUID) error {
	return r.db.Model(&model.Result{}).
		Where("attempt_id = ?", attemptID).
		Update("precomputed_analytics_applied", false).Error
}
