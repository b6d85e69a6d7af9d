package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/noah-isme/peereval-api/internal/models"
)

// MarkRules describes the shape an evaluation's marks must satisfy.
type MarkRules struct {
	Expected int
	Max      float64
}

// markRulesFor derives the expected count and ceiling from the evaluation's exam,
// falling back to the current mark count when the exam cannot supply one.
func markRulesFor(evaluation models.Evaluation, defaultMax float64) MarkRules {
	expected := len(evaluation.Marks)
	if evaluation.Exam.ID != 0 && evaluation.Exam.NumQuestions > 0 {
		expected = evaluation.Exam.NumQuestions
	}

	return MarkRules{
		Expected: expected,
		Max:      evaluation.Exam.MaxMarks(defaultMax),
	}
}

// parseMarks decodes the optional marks payload. supplied is false for an absent or null value.
func parseMarks(raw json.RawMessage) (marks []float64, supplied bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, true, &ValidationError{
			Kind:   KindMarkType,
			Detail: "marks must be provided as an array",
			Err:    err,
		}
	}

	marks = make([]float64, 0, len(items))
	for index, item := range items {
		value, err := decodeMark(item)
		if err != nil {
			return nil, true, &ValidationError{
				Kind:    KindMarkType,
				Detail:  fmt.Sprintf("mark at index %d must be a number", index),
				Indices: []int{index},
				Err:     err,
			}
		}
		marks = append(marks, value)
	}

	return marks, true, nil
}

// decodeMark accepts a JSON number literal. Numbers beyond float64 decode to ±Inf so
// range validation reports them instead of the type check.
func decodeMark(item json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return 0, errors.New("not a number literal")
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return 0, err
	}

	value, err := strconv.ParseFloat(number.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return value, nil
}

// validateMarks checks count first, then every value against [0, rules.Max].
func validateMarks(marks []float64, rules MarkRules) error {
	if len(marks) != rules.Expected {
		return &ValidationError{
			Kind:     KindMarkCountMismatch,
			Detail:   fmt.Sprintf("expected %d marks, but received %d", rules.Expected, len(marks)),
			Expected: rules.Expected,
			Received: len(marks),
		}
	}

	var offending []int
	for index, mark := range marks {
		if math.IsNaN(mark) || math.IsInf(mark, 0) || mark < 0 || mark > rules.Max {
			offending = append(offending, index)
		}
	}
	if len(offending) == 0 {
		return nil
	}

	first := marks[offending[0]]
	rejection := &ValidationError{
		Kind:     KindMarkOutOfRange,
		Detail:   fmt.Sprintf("mark at index %d (%g) must be a number between 0 and %g", offending[0], first, rules.Max),
		Expected: rules.Expected,
		Received: len(marks),
		Indices:  offending,
	}
	// JSON cannot carry NaN or ±Inf.
	if !math.IsNaN(first) && !math.IsInf(first, 0) {
		rejection.Value = &first
	}
	return rejection
}

func marksEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}
