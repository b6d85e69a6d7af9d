package models

import "time"

// Ticket is the teacher-facing record of an escalated dispute.
type Ticket struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Subject            string     `gorm:"size:255;not null" json:"subject"`
	Description        string     `gorm:"type:text;not null" json:"description"`
	StudentID          uint       `gorm:"index" json:"student_id"`
	TAID               uint       `gorm:"column:ta_id;index" json:"ta_id"`
	EvaluationID       *uint      `gorm:"index" json:"evaluation_id"`
	FlagID             *uint      `gorm:"uniqueIndex" json:"flag_id"`
	Resolved           bool       `gorm:"not null;default:false" json:"resolved"`
	EscalatedToTeacher bool       `gorm:"index;not null;default:false" json:"escalated_to_teacher"`
	ResolvedBy         *uint      `json:"resolved_by"`
	ResolvedAt         *time.Time `json:"resolved_at"`
	Revision           uint       `gorm:"not null;default:0" json:"revision"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Student            User       `gorm:"foreignKey:StudentID" json:"student"`
	TA                 User       `gorm:"foreignKey:TAID" json:"ta"`
}

// IsActionable reports whether a teacher may act on the ticket.
func (t Ticket) IsActionable() bool {
	return t.EscalatedToTeacher
}
