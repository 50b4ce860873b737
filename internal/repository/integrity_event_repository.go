package repository

import (
	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
)

type IntegrityEventRepository interface {
	CreateBatch(events []model.IntegrityEvent) error
	FindAllByAttempt(attemptID uuid.UUID) ([]model.IntegrityEvent, error)
}

type integrityEventRepository struct {
	db *gorm.DB
}

func NewIntegrityEventRepository(db *gorm.DB) IntegrityEventRepository {
	return &integrityEventRepository{db: db}
}

func (r *integrityEventRepository) CreateBatch(events []model.IntegrityEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.Create(&events).Error
}

func (r *integrityEventRepository) FindAllByAttempt(attemptID uuid.UUID) ([]model.IntegrityEvent, error) {
	var events []model.IntegrityEvent
	err := r.db.Where("attempt_id = ?", attemptID).
		Order("occurred_at ASC, created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
