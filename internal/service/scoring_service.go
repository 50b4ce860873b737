package service

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/lshigami/examgate/internal/model"
)

// Normalization holds the configurable short-answer comparison rules.
// Trim and collapse default on, case folding defaults off (CaseSensitive
// false means fold).
type Normalization struct {
	Trim               bool
	CollapseWhitespace bool
	CaseSensitive      bool
}

// GradedQuestion is one fully-decoded question handed to the scoring engine:
// the correct spec, alternates and the submitted payload are already typed.
type GradedQuestion struct {
	QuestionID uuid.UUID
	Subject    string
	Type       model.QuestionType
	Points     float64
	Correct    *AnswerPayload
	Alternates []string
	Norm       Normalization
	Submitted  *AnswerPayload
}

type QuestionOutcome struct {
	QuestionID uuid.UUID
	Subject    string
	Answered   bool
	Correct    bool
	Points     float64
	Awarded    float64
	Submitted  *AnswerPayload
}

type SubjectTotals struct {
	Questions      int     `json:"questions"`
	Answered       int     `json:"answered"`
	Correct        int     `json:"correct"`
	PossiblePoints float64 `json:"possible_points"`
	AwardedPoints  float64 `json:"awarded_points"`
	Percentage     float64 `json:"percentage"`
}

type GradeResult struct {
	TotalQuestions    int
	AnsweredQuestions int
	CorrectQuestions  int
	PossiblePoints    float64
	AwardedPoints     float64
	Percentage        float64
	GradeLetter       string
	Passed            *bool // nil when the exam defines no passing threshold
	SubjectBreakdown  map[string]*SubjectTotals
	Outcomes          []QuestionOutcome
}

// ScoringService is a pure function over decoded inputs: identical questions
// and answers always produce identical results. No I/O happens here.
type ScoringService interface {
	Grade(questions []GradedQuestion, passingThreshold *float64) GradeResult
}

type scoringService struct{}

func NewScoringService() ScoringService {
	return &scoringService{}
}

func (s *scoringService) Grade(questions []GradedQuestion, passingThreshold *float64) GradeResult {
	res := GradeResult{
		TotalQuestions:   len(questions),
		SubjectBreakdown: make(map[string]*SubjectTotals),
		Outcomes:         make([]QuestionOutcome, 0, len(questions)),
	}

	for _, q := range questions {
		answered := q.Submitted != nil
		correct := answered && gradeOne(q)

		awarded := 0.0
		if correct {
			awarded = q.Points
		}

		res.PossiblePoints += q.Points
		res.AwardedPoints += awarded
		if answered {
			res.AnsweredQuestions++
		}
		if correct {
			res.CorrectQuestions++
		}

		subj := res.SubjectBreakdown[q.Subject]
		if subj == nil {
			subj = &SubjectTotals{}
			res.SubjectBreakdown[q.Subject] = subj
		}
		subj.Questions++
		subj.PossiblePoints += q.Points
		subj.AwardedPoints += awarded
		if answered {
			subj.Answered++
		}
		if correct {
			subj.Correct++
		}

		res.Outcomes = append(res.Outcomes, QuestionOutcome{
			QuestionID: q.QuestionID,
			Subject:    q.Subject,
			Answered:   answered,
			Correct:    correct,
			Points:     q.Points,
			Awarded:    awarded,
			Submitted:  q.Submitted,
		})
	}

	res.Percentage = percentage(res.AwardedPoints, res.PossiblePoints)
	for _, subj := range res.SubjectBreakdown {
		subj.Percentage = percentage(subj.AwardedPoints, subj.PossiblePoints)
	}
	res.GradeLetter = gradeLetter(res.Percentage)
	if passingThreshold != nil {
		passed := res.Percentage >= *passingThreshold
		res.Passed = &passed
	}
	return res
}

// gradeOne assumes a non-nil submission. Unknown types, missing correct
// specs and kind mismatches all grade as incorrect.
func gradeOne(q GradedQuestion) bool {
	if q.Correct == nil {
		return false
	}
	switch q.Type {
	case model.QuestionMCQSingle:
		return q.Submitted.Kind == PayloadSingle && q.Correct.Kind == PayloadSingle &&
			q.Submitted.Single == q.Correct.Single

	case model.QuestionMCQMulti:
		if q.Submitted.Kind != PayloadMulti || q.Correct.Kind != PayloadMulti {
			return false
		}
		return indexSetsEqual(q.Submitted.Multi, q.Correct.Multi)

	case model.QuestionTrueFalse:
		return q.Submitted.Kind == PayloadBool && q.Correct.Kind == PayloadBool &&
			q.Submitted.Bool == q.Correct.Bool

	case model.QuestionShortAnswer:
		if q.Submitted.Kind != PayloadText || q.Correct.Kind != PayloadText {
			return false
		}
		given := normalizeShortAnswer(q.Submitted.Text, q.Norm)
		accepted := append([]string{q.Correct.Text}, q.Alternates...)
		for _, alt := range accepted {
			if given == normalizeShortAnswer(alt, q.Norm) {
				return true
			}
		}
		return false
	}
	return false
}

func indexSetsEqual(a, b []int) bool {
	na, nb := normalizeIndexSet(a), normalizeIndexSet(b)
	if len(na) == 0 || len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

func normalizeShortAnswer(s string, norm Normalization) string {
	if norm.Trim {
		s = strings.TrimSpace(s)
	}
	if norm.CollapseWhitespace {
		s = strings.Join(strings.Fields(s), " ")
	}
	if !norm.CaseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

func percentage(awarded, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return round2(awarded / possible * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func gradeLetter(pct float64) string {
	switch {
	case pct >= 90:
		return "A"
	case pct >= 80:
		return "B"
	case pct >= 70:
		return "C"
	case pct >= 60:
		return "D"
	default:
		return "F"
	}
}
