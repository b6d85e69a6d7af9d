package models

import "time"

const (
	// RoleStudent identifies learners who submit exams and raise flags.
	RoleStudent = "student"
	// RoleTA identifies teaching assistants who triage flags for their batches.
	RoleTA = "ta"
	// RoleTeacher identifies course owners who close escalated tickets.
	RoleTeacher = "teacher"
	// RoleAdmin identifies platform operators.
	RoleAdmin = "admin"
)

// User represents any authenticated account on the platform.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;index;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
