package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
)

type PinRepository interface {
	FindByExam(examID uuid.UUID) ([]model.ExamPin, error)
	FindByID(id uuid.UUID) (*model.ExamPin, error)
	// ConsumeUse spends one use of the PIN in a single conditional update
	// scoped by pin id and institution id. It returns false when a racing
	// validation already consumed the last use (zero rows affected).
	ConsumeUse(pinID, institutionID uuid.UUID) (bool, error)
	HasAllowListEntry(pinID uuid.UUID, identifier string) (bool, error)
	RecordValidationAttempt(attempt *model.PinValidationAttempt) error
	CountRecentFailures(clientIP string, since time.Time) (int64, error)
}

type pinRepository struct {
	db *gorm.DB
}

func NewPinRepository(db *gorm.DB) PinRepository {
	return &pinRepository{db: db}
}

func (r *pinRepository) FindByExam(examID uuid.UUID) ([]model.ExamPin, error) {
	var pins []model.ExamPin
	if err := r.db.Where("exam_id = ?", examID).Find(&pins).Error; err != nil {
		return nil, err
	}
	return pins, nil
}

func (r *pinRepository) FindByID(id uuid.UUID) (*model.ExamPin, error) {
	var pin model.ExamPin
	if err := r.db.First(&pin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pin, nil
}

// ConsumeUse is the sole concurrency guard for PIN consumption: one atomic
// UPDATE that increments uses_consumed while still under max_uses and flips
// status to "used" when the new count reaches the cap.
func (r *pinRepository) ConsumeUse(pinID, institutionID uuid.UUID) (bool, error) {
	res := r.db.Model(&model.ExamPin{}).
		Where("id = ? AND institution_id = ? AND status = ? AND uses_consumed < max_uses",
			pinID, institutionID, model.PinActive).
		Updates(map[string]interface{}{
			"uses_consumed": gorm.Expr("uses_consumed + 1"),
			"status": gorm.Expr(
				"CASE WHEN uses_consumed + 1 >= max_uses THEN ? ELSE status END",
				model.PinUsed,
			),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *pinRepository) HasAllowListEntry(pinID uuid.UUID, identifier string) (bool, error) {
	var count int64
	err := r.db.Model(&model.PinAllowListEntry{}).
		Where("pin_id = ? AND candidate_identifier = ?", pinID, identifier).
		Count(&count).Error
	return count > 0, err
}

func (r *pinRepository) RecordValidationAttempt(attempt *model.PinValidationAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *pinRepository) CountRecentFailures(clientIP string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.PinValidationAttempt{}).
		Where("client_ip = ? AND success = false AND created_at >= ?", clientIP, since).
		Count(&count).Error
	return count, err
}
