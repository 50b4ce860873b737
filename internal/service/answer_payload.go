package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lshigami/examgate/internal/model"
)

type PayloadKind string

const (
	PayloadSingle PayloadKind = "single_index"
	PayloadMulti  PayloadKind = "multi_index_set"
	PayloadBool   PayloadKind = "boolean"
	PayloadText   PayloadKind = "free_text"
)

// AnswerPayload is the closed tagged union for submitted answers, keyed by
// question type. Raw JSON is decoded into it at the boundary; the grading
// functions never see untyped data.
type AnswerPayload struct {
	Kind   PayloadKind
	Single int
	Multi  []int
	Bool   bool
	Text   string
}

// DecodeAnswerPayload validates raw JSON against the question type.
// A nil result with a nil error means "unanswered": absent payloads, JSON
// null, empty strings and empty lists are unanswered; false and 0 are
// answers.
func DecodeAnswerPayload(qType model.QuestionType, raw []byte) (*AnswerPayload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch qType {
	case model.QuestionMCQSingle:
		var idx int
		if err := json.Unmarshal(raw, &idx); err != nil {
			return nil, fmt.Errorf("mcq_single answer must be an option index: %w", err)
		}
		if idx < 0 {
			return nil, fmt.Errorf("option index must be non-negative, got %d", idx)
		}
		return &AnswerPayload{Kind: PayloadSingle, Single: idx}, nil

	case model.QuestionMCQMulti:
		var idxs []int
		if err := json.Unmarshal(raw, &idxs); err != nil {
			return nil, fmt.Errorf("mcq_multi answer must be an array of option indexes: %w", err)
		}
		if len(idxs) == 0 {
			return nil, nil
		}
		for _, idx := range idxs {
			if idx < 0 {
				return nil, fmt.Errorf("option index must be non-negative, got %d", idx)
			}
		}
		return &AnswerPayload{Kind: PayloadMulti, Multi: idxs}, nil

	case model.QuestionTrueFalse:
		b, answered, err := decodeBoolish(raw)
		if err != nil {
			return nil, err
		}
		if !answered {
			return nil, nil
		}
		return &AnswerPayload{Kind: PayloadBool, Bool: b}, nil

	case model.QuestionShortAnswer:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("short_answer must be a string: %w", err)
		}
		if text == "" {
			return nil, nil
		}
		return &AnswerPayload{Kind: PayloadText, Text: text}, nil
	}

	return nil, fmt.Errorf("unsupported question type %q", qType)
}

// decodeBoolish accepts a JSON bool or the strings "true"/"false",
// case-insensitive. Empty string counts as unanswered.
func decodeBoolish(raw []byte) (value, answered bool, err error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false, fmt.Errorf("true_false answer must be a boolean or \"true\"/\"false\"")
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, false, nil
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	}
	return false, false, fmt.Errorf("true_false answer must be a boolean or \"true\"/\"false\", got %q", s)
}

// DecodeCorrectSpec decodes a question's stored correct-answer spec into the
// same union. A question with an undecodable spec grades as incorrect, so
// errors here fail closed.
func DecodeCorrectSpec(q *model.Question) (*AnswerPayload, error) {
	spec, err := DecodeAnswerPayload(q.Type, q.CorrectAnswer)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, fmt.Errorf("question %s has an empty correct-answer spec", q.ID)
	}
	return spec, nil
}

// DecodeAcceptedAlternates decodes the short-answer alternates list.
func DecodeAcceptedAlternates(q *model.Question) ([]string, error) {
	if len(q.AcceptedAnswers) == 0 {
		return nil, nil
	}
	var alternates []string
	if err := json.Unmarshal(q.AcceptedAnswers, &alternates); err != nil {
		return nil, fmt.Errorf("accepted answers for question %s are not a string array: %w", q.ID, err)
	}
	return alternates, nil
}

// normalizeIndexSet dedupes and orders a multi-choice selection so set
// comparison is order-insensitive.
func normalizeIndexSet(idxs []int) []int {
	seen := make(map[int]bool, len(idxs))
	out := make([]int, 0, len(idxs))
	for _, idx := range idxs {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}
