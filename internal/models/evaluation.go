package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// EvaluationStatusPending indicates the peer grading pass has not been finalised.
	EvaluationStatusPending = "pending"
	// EvaluationStatusCompleted indicates the marks are final for the exam's question count.
	EvaluationStatusCompleted = "completed"
)

// Evaluation is one peer grading pass of an evaluatee's submission to an exam.
type Evaluation struct {
	ID          uint                         `gorm:"primaryKey" json:"id"`
	EvaluatorID uint                         `gorm:"index;not null" json:"evaluator_id"`
	EvaluateeID uint                         `gorm:"index;not null" json:"evaluatee_id"`
	ExamID      uint                         `gorm:"index;not null" json:"exam_id"`
	Marks       datatypes.JSONSlice[float64] `json:"marks"`
	Feedback    string                       `gorm:"type:text" json:"feedback"`
	Status      string                       `gorm:"size:32;not null;default:pending" json:"status"`
	Revision    uint                         `gorm:"not null;default:0" json:"revision"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
	Evaluator   User                         `gorm:"foreignKey:EvaluatorID" json:"evaluator"`
	Evaluatee   User                         `gorm:"foreignKey:EvaluateeID" json:"evaluatee"`
	Exam        Exam                         `gorm:"foreignKey:ExamID" json:"exam"`
}

// IsCompleted reports whether the evaluation carries final marks.
func (e Evaluation) IsCompleted() bool {
	return e.Status == EvaluationStatusCompleted
}

// MarksOf copies marks into the JSON column type.
func MarksOf(marks []float64) datatypes.JSONSlice[float64] {
	copied := make([]float64, len(marks))
	copy(copied, marks)
	return datatypes.JSONSlice[float64](copied)
}
