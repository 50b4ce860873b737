package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyticsRepository exposes the aggregate tables as atomic increment
// primitives. Counters never move through read-modify-write in application
// code; every fold is one upsert whose assignments are SQL expressions over
// the existing row.
type AnalyticsRepository interface {
	IncrementAttemptCount(examID uuid.UUID, day time.Time) error
	FoldSubmission(examID uuid.UUID, day time.Time, percentage float64, passed bool) error
	FoldQuestion(questionID uuid.UUID, answered, correct bool) error
	RecordAnswerShape(questionID uuid.UUID, shape string) error
	FindExamDaily(examID uuid.UUID, day time.Time) (*model.ExamDailyStat, error)
	FindQuestionStat(questionID uuid.UUID) (*model.QuestionStat, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func (r *analyticsRepository) IncrementAttemptCount(examID uuid.UUID, day time.Time) error {
	stat := model.ExamDailyStat{ExamID: examID, Day: dayOf(day), AttemptCount: 1}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "exam_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempt_count": gorm.Expr("exam_daily_stats.attempt_count + 1"),
			"updated_at":    time.Now(),
		}),
	}).Create(&stat).Error
}

// FoldSubmission adds one graded submission to the daily aggregate. The
// derived columns (average_percent, pass_rate) are recomputed from the exact
// side totals inside the same statement.
func (r *analyticsRepository) FoldSubmission(examID uuid.UUID, day time.Time, percentage float64, passed bool) error {
	passInc := 0
	if passed {
		passInc = 1
	}
	stat := model.ExamDailyStat{
		ExamID:         examID,
		Day:            dayOf(day),
		SubmittedCount: 1,
		PercentSum:     percentage,
		PassCount:      int64(passInc),
		AveragePercent: percentage,
		PassRate:       float64(passInc),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "exam_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"submitted_count": gorm.Expr("exam_daily_stats.submitted_count + 1"),
			"percent_sum":     gorm.Expr("exam_daily_stats.percent_sum + ?", percentage),
			"pass_count":      gorm.Expr("exam_daily_stats.pass_count + ?", passInc),
			"average_percent": gorm.Expr(
				"(exam_daily_stats.percent_sum + ?) / (exam_daily_stats.submitted_count + 1)", percentage),
			"pass_rate": gorm.Expr(
				"(exam_daily_stats.pass_count + ?)::float / (exam_daily_stats.submitted_count + 1)", passInc),
			"updated_at": time.Now(),
		}),
	}).Create(&stat).Error
}

func (r *analyticsRepository) FoldQuestion(questionID uuid.UUID, answered, correct bool) error {
	answeredInc, correctInc := 0, 0
	if answered {
		answeredInc = 1
	}
	if correct {
		correctInc = 1
	}
	stat := model.QuestionStat{
		QuestionID:    questionID,
		ExposureCount: 1,
		AnsweredCount: int64(answeredInc),
		CorrectCount:  int64(correctInc),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"exposure_count": gorm.Expr("question_stats.exposure_count + 1"),
			"answered_count": gorm.Expr("question_stats.answered_count + ?", answeredInc),
			"correct_count":  gorm.Expr("question_stats.correct_count + ?", correctInc),
			"updated_at":     time.Now(),
		}),
	}).Create(&stat).Error
}

// RecordAnswerShape bumps one histogram bucket. New buckets are only created
// while the question is under MaxAnswerShapeBuckets distinct shapes; the
// bucket-count check and the insert are separate statements, so the bound can
// be overshot by concurrent first-time shapes. Acceptable for a popularity
// histogram.
func (r *analyticsRepository) RecordAnswerShape(questionID uuid.UUID, shape string) error {
	res := r.db.Model(&model.QuestionAnswerShape{}).
		Where("question_id = ? AND shape = ?", questionID, shape).
		Updates(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var buckets int64
	if err := r.db.Model(&model.QuestionAnswerShape{}).
		Where("question_id = ?", questionID).
		Count(&buckets).Error; err != nil {
		return err
	}
	if buckets >= model.MaxAnswerShapeBuckets {
		return nil
	}

	bucket := model.QuestionAnswerShape{QuestionID: questionID, Shape: shape, Count: 1}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "question_id"}, {Name: "shape"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("question_answer_shapes.count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&bucket).Error
}

func (r *analyticsRepository) FindExamDaily(examID uuid.UUID, day time.Time) (*model.ExamDailyStat, error) {
	var stat model.ExamDailyStat
	if err := r.db.First(&stat, "exam_id = ? AND day = ?", examID, dayOf(day)).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}

func (r *analyticsRepository) FindQuestionStat(questionID uuid.UUID) (*model.QuestionStat, error) {
	var stat model.QuestionStat
	if err := r.db.First(&stat, "question_id = ?", questionID).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}
