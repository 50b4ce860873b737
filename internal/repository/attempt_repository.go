package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(attempt *model.Attempt) error
	FindByID(id uuid.UUID) (*model.Attempt, error)
	FindByIDWithCandidate(id uuid.UUID) (*model.Attempt, error)
	FindByPin(pinID uuid.UUID) ([]model.Attempt, error)
	// TransitionStatus performs the compare-and-swap every cross-request
	// coordination in this service is built on: the row moves from->to only
	// if its current status still equals from. false means another request
	// won the race (zero rows affected).
	TransitionStatus(id uuid.UUID, from, to model.AttemptStatus) (bool, error)
	UpdateProgress(id uuid.UUID, currentQuestionIndex int) error
	FindOverdueInProgress(now time.Time, limit int) ([]model.Attempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.Attempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) FindByID(id uuid.UUID) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithCandidate(id uuid.UUID) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.Preload("Candidate").First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByPin(pinID uuid.UUID) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.Preload("Candidate").
		Where("pin_id = ?", pinID).
		Order("started_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptRepository) TransitionStatus(id uuid.UUID, from, to model.AttemptStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, ErrIllegalTransition
	}
	res := r.db.Model(&model.Attempt{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *attemptRepository) UpdateProgress(id uuid.UUID, currentQuestionIndex int) error {
	return r.db.Model(&model.Attempt{}).
		Where("id = ?", id).
		Update("current_question_index", currentQuestionIndex).Error
}

func (r *attemptRepository) FindOverdueInProgress(now time.Time, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	q := r.db.Where("status = ? AND expires_at < ?", model.AttemptInProgress, now)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
