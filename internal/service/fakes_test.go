package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
	"gorm.io/gorm"
)

// In-memory repository fakes. Conditional writes are emulated under one
// mutex per fake so concurrency-shape tests exercise the same win/lose
// semantics the SQL versions have.

type fakeExamRepo struct {
	mu    sync.Mutex
	exams map[uuid.UUID]*model.Exam
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{exams: make(map[uuid.UUID]*model.Exam)}
}

func (r *fakeExamRepo) put(exam *model.Exam) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exams[exam.ID] = exam
}

func (r *fakeExamRepo) FindByID(id uuid.UUID) (*model.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exam, ok := r.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *exam
	return &cp, nil
}

func (r *fakeExamRepo) FindByIDWithQuestions(id uuid.UUID) (*model.Exam, error) {
	return r.FindByID(id)
}

type fakePinRepo struct {
	mu        sync.Mutex
	pins      map[uuid.UUID]*model.ExamPin
	allowList map[uuid.UUID]map[string]bool
	attempts  []model.PinValidationAttempt
}

func newFakePinRepo() *fakePinRepo {
	return &fakePinRepo{
		pins:      make(map[uuid.UUID]*model.ExamPin),
		allowList: make(map[uuid.UUID]map[string]bool),
	}
}

func (r *fakePinRepo) put(pin *model.ExamPin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pins[pin.ID] = pin
}

func (r *fakePinRepo) allow(pinID uuid.UUID, identifier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allowList[pinID] == nil {
		r.allowList[pinID] = make(map[string]bool)
	}
	r.allowList[pinID][identifier] = true
}

func (r *fakePinRepo) FindByExam(examID uuid.UUID) ([]model.ExamPin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pins []model.ExamPin
	for _, pin := range r.pins {
		if pin.ExamID == examID {
			pins = append(pins, *pin)
		}
	}
	return pins, nil
}

func (r *fakePinRepo) FindByID(id uuid.UUID) (*model.ExamPin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pin, ok := r.pins[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *pin
	return &cp, nil
}

func (r *fakePinRepo) ConsumeUse(pinID, institutionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pin, ok := r.pins[pinID]
	if !ok || pin.InstitutionID != institutionID {
		return false, nil
	}
	if pin.Status != model.PinActive || pin.UsesConsumed >= pin.MaxUses {
		return false, nil
	}
	pin.UsesConsumed++
	if pin.UsesConsumed >= pin.MaxUses {
		pin.Status = model.PinUsed
	}
	return true, nil
}

func (r *fakePinRepo) HasAllowListEntry(pinID uuid.UUID, identifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allowList[pinID][identifier], nil
}

func (r *fakePinRepo) RecordValidationAttempt(attempt *model.PinValidationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt.CreatedAt = time.Now()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *fakePinRepo) CountRecentFailures(clientIP string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, a := range r.attempts {
		if a.ClientIP == clientIP && !a.Success && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeCandidateRepo struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]*model.Candidate
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{candidates: make(map[uuid.UUID]*model.Candidate)}
}

func (r *fakeCandidateRepo) Create(candidate *model.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	cp := *candidate
	r.candidates[candidate.ID] = &cp
	return nil
}

func (r *fakeCandidateRepo) FindByID(id uuid.UUID) (*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.Attempt
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[uuid.UUID]*model.Attempt)}
}

func (r *fakeAttemptRepo) Create(attempt *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	cp := *attempt
	r.attempts[attempt.ID] = &cp
	return nil
}

func (r *fakeAttemptRepo) FindByID(id uuid.UUID) (*model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *attempt
	return &cp, nil
}

func (r *fakeAttemptRepo) FindByIDWithCandidate(id uuid.UUID) (*model.Attempt, error) {
	return r.FindByID(id)
}

func (r *fakeAttemptRepo) FindByPin(pinID uuid.UUID) ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attempt
	for _, attempt := range r.attempts {
		if attempt.PinID == pinID {
			out = append(out, *attempt)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) TransitionStatus(id uuid.UUID, from, to model.AttemptStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("illegal attempt status transition %s -> %s", from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok || attempt.Status != from {
		return false, nil
	}
	attempt.Status = to
	return true, nil
}

func (r *fakeAttemptRepo) UpdateProgress(id uuid.UUID, currentQuestionIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.CurrentQuestionIndex = currentQuestionIndex
	return nil
}

func (r *fakeAttemptRepo) FindOverdueInProgress(now time.Time, limit int) ([]model.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Attempt
	for _, attempt := range r.attempts {
		if attempt.Status == model.AttemptInProgress && now.After(attempt.ExpiresAt) {
			out = append(out, *attempt)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeAnswerRepo struct {
	mu         sync.Mutex
	answers    map[uuid.UUID]*model.Answer
	revisions  []model.AnswerRevision
	failCreate error // returned by Create when set
}

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{answers: make(map[uuid.UUID]*model.Answer)}
}

func (r *fakeAnswerRepo) FindByAttemptAndQuestion(attemptID, questionID uuid.UUID) (*model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.answers {
		if a.AttemptID == attemptID && a.QuestionID == questionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAnswerRepo) FindAllByAttempt(attemptID uuid.UUID) ([]model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Answer
	for _, a := range r.answers {
		if a.AttemptID == attemptID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAnswerRepo) Create(answer *model.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	for _, a := range r.answers {
		if a.AttemptID == answer.AttemptID && a.QuestionID == answer.QuestionID {
			return fmt.Errorf("answers_attempt_question_key: %w", gorm.ErrDuplicatedKey)
		}
	}
	if answer.ID == uuid.Nil {
		answer.ID = uuid.New()
	}
	cp := *answer
	r.answers[answer.ID] = &cp
	return nil
}

func (r *fakeAnswerRepo) UpdateVersioned(answer *model.Answer, expectedVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.answers[answer.ID]
	if !ok || existing.Version != expectedVersion {
		return false, nil
	}
	existing.Payload = answer.Payload
	existing.IsFinal = answer.IsFinal
	existing.Version = expectedVersion + 1
	return true, nil
}

func (r *fakeAnswerRepo) AppendRevision(rev *model.AnswerRevision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revisions = append(r.revisions, *rev)
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []model.IntegrityEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{}
}

func (r *fakeEventRepo) CreateBatch(events []model.IntegrityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeEventRepo) FindAllByAttempt(attemptID uuid.UUID) ([]model.IntegrityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.IntegrityEvent
	for _, ev := range r.events {
		if ev.AttemptID == attemptID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results map[uuid.UUID]*model.Result // keyed by attempt id
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[uuid.UUID]*model.Result)}
}

func (r *fakeResultRepo) Upsert(result *model.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.results[result.AttemptID]; ok {
		result.ID = existing.ID
		result.PrecomputedAnalyticsApplied = existing.PrecomputedAnalyticsApplied
	} else if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	cp := *result
	r.results[result.AttemptID] = &cp
	return nil
}

func (r *fakeResultRepo) FindByAttempt(attemptID uuid.UUID) (*model.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[attemptID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *result
	return &cp, nil
}

func (r *fakeResultRepo) MarkAnalyticsApplied(attemptID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[attemptID]
	if !ok || result.PrecomputedAnalyticsApplied {
		return false, nil
	}
	result.PrecomputedAnalyticsApplied = true
	return true, nil
}

func (r *fakeResultRepo) ClearAnalyticsApplied(attemptID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if result, ok := r.results[attemptID]; ok {
		result.PrecomputedAnalyticsApplied = false
	}
	return nil
}

type dailyKey struct {
	examID uuid.UUID
	day    time.Time
}

type fakeAnalyticsRepo struct {
	mu        sync.Mutex
	daily     map[dailyKey]*model.ExamDailyStat
	questions map[uuid.UUID]*model.QuestionStat
	shapes    map[uuid.UUID]map[string]int64
	failFolds bool
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{
		daily:     make(map[dailyKey]*model.ExamDailyStat),
		questions: make(map[uuid.UUID]*model.QuestionStat),
		shapes:    make(map[uuid.UUID]map[string]int64),
	}
}

func (r *fakeAnalyticsRepo) dailyStat(examID uuid.UUID, day time.Time) *model.ExamDailyStat {
	key := dailyKey{examID: examID, day: day.UTC().Truncate(24 * time.Hour)}
	stat, ok := r.daily[key]
	if !ok {
		stat = &model.ExamDailyStat{ExamID: examID, Day: key.day}
		r.daily[key] = stat
	}
	return stat
}

func (r *fakeAnalyticsRepo) IncrementAttemptCount(examID uuid.UUID, day time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dailyStat(examID, day).AttemptCount++
	return nil
}

func (r *fakeAnalyticsRepo) FoldSubmission(examID uuid.UUID, day time.Time, percentage float64, passed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFolds {
		return fmt.Errorf("injected fold failure")
	}
	stat := r.dailyStat(examID, day)
	stat.SubmittedCount++
	stat.PercentSum += percentage
	if passed {
		stat.PassCount++
	}
	stat.AveragePercent = stat.PercentSum / float64(stat.SubmittedCount)
	stat.PassRate = float64(stat.PassCount) / float64(stat.SubmittedCount)
	return nil
}

func (r *fakeAnalyticsRepo) FoldQuestion(questionID uuid.UUID, answered, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFolds {
		return fmt.Errorf("injected fold failure")
	}
	stat, ok := r.questions[questionID]
	if !ok {
		stat = &model.QuestionStat{QuestionID: questionID}
		r.questions[questionID] = stat
	}
	stat.ExposureCount++
	if answered {
		stat.AnsweredCount++
	}
	if correct {
		stat.CorrectCount++
	}
	return nil
}

func (r *fakeAnalyticsRepo) RecordAnswerShape(questionID uuid.UUID, shape string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buckets, ok := r.shapes[questionID]
	if !ok {
		buckets = make(map[string]int64)
		r.shapes[questionID] = buckets
	}
	if _, exists := buckets[shape]; !exists && len(buckets) >= model.MaxAnswerShapeBuckets {
		return nil
	}
	buckets[shape]++
	return nil
}

func (r *fakeAnalyticsRepo) FindExamDaily(examID uuid.UUID, day time.Time) (*model.ExamDailyStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dailyKey{examID: examID, day: day.UTC().Truncate(24 * time.Hour)}
	stat, ok := r.daily[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stat
	return &cp, nil
}

func (r *fakeAnalyticsRepo) FindQuestionStat(questionID uuid.UUID) (*model.QuestionStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.questions[questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stat
	return &cp, nil
}
