package repository

import (
	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
)

type ExamRepository interface {
	FindByID(id uuid.UUID) (*model.Exam, error)
	FindByIDWithQuestions(id uuid.UUID) (*model.Exam, error)
}

type examRepository struct {
	db *gorm.DB
}

func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) FindByID(id uuid.UUID) (*model.Exam, error) {
	var exam model.Exam
	if err := r.db.First(&exam, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepository) FindByIDWithQuestions(id uuid.UUID) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&exam, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}
