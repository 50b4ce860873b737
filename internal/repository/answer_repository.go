package repository

import (
	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
)

type AnswerRepository interface {
	FindByAttemptAndQuestion(attemptID, questionID uuid.UUID) (*model.Answer, error)
	FindAllByAttempt(attemptID uuid.UUID) ([]model.Answer, error)
	Create(answer *model.Answer) error
	// UpdateVersioned overwrites the payload only while the row still carries
	// expectedVersion; false means a concurrent save advanced it first.
	UpdateVersioned(answer *model.Answer, expectedVersion int) (bool, error)
	AppendRevision(rev *model.AnswerRevision) error
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) FindByAttemptAndQuestion(attemptID, questionID uuid.UUID) (*model.Answer, error) {
	var answer model.Answer
	err := r.db.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *answerRepository) FindAllByAttempt(attemptID uuid.UUID) ([]model.Answer, error) {
	var answers []model.Answer
	if err := r.db.Where("attempt_id = ?", attemptID).Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepository) Create(answer *model.Answer) error {
	return r.db.Create(answer).Error
}

func (r *answerRepository) UpdateVersioned(answer *model.Answer, expectedVersion int) (bool, error) {
	res := r.db.Model(&model.Answer{}).
		Where("id = ? AND version = ?", answer.ID, expectedVersion).
		Updates(map[string]interface{}{
			"payload":  answer.Payload,
			"version":  expectedVersion + 1,
			"is_final": answer.IsFinal,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *answerRepository) AppendRevision(rev *model.AnswerRevision) error {
	return r.db.Create(rev).Error
}
