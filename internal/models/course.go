package models

import "time"

// DefaultMaxMarksPerQuestion is the per-question ceiling used when an exam does not configure one.
const DefaultMaxMarksPerQuestion = 20

// Course groups batches and exams owned by a teacher.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Code      string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	TeacherID uint      `gorm:"index" json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Batch is a cohort of students within a course, supervised by one or more TAs.
type Batch struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CourseID  uint      `gorm:"index;not null" json:"course_id"`
	TAs       []User    `gorm:"many2many:batch_tas;" json:"tas,omitempty"`
	Students  []User    `gorm:"many2many:batch_students;" json:"students,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Exam defines the shape of an evaluation: how many questions and the per-question ceiling.
type Exam struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Title               string    `gorm:"size:255;not null" json:"title"`
	CourseID            uint      `gorm:"index" json:"course_id"`
	BatchID             uint      `gorm:"index" json:"batch_id"`
	NumQuestions        int       `gorm:"not null;default:0" json:"num_questions"`
	MaxMarksPerQuestion float64   `gorm:"not null;default:0" json:"max_marks_per_question"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// MaxMarks returns the configured per-question ceiling, falling back to fallback when unset.
func (e Exam) MaxMarks(fallback float64) float64 {
	if e.MaxMarksPerQuestion > 0 {
		return e.MaxMarksPerQuestion
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxMarksPerQuestion
}
