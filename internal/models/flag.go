package models

import "time"

// FlagStatus enumerates the dispute resolution states of a flag.
type FlagStatus string

const (
	// FlagStatusPending is the initial state of every flag.
	FlagStatusPending FlagStatus = "pending"
	// FlagStatusResolved means a TA closed the dispute.
	FlagStatusResolved FlagStatus = "resolved"
	// FlagStatusEscalated means the dispute was handed over to teachers.
	FlagStatusEscalated FlagStatus = "escalated"
)

// Flag is a dispute raised by a student against an evaluation of their submission.
type Flag struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	EvaluationID     uint       `gorm:"index;not null" json:"evaluation_id"`
	FlaggedBy        uint       `gorm:"index;not null" json:"flagged_by"`
	Reason           string     `gorm:"type:text" json:"reason"`
	ResolutionStatus FlagStatus `gorm:"size:32;index;not null;default:pending" json:"resolution_status"`
	Resolution       string     `gorm:"type:text" json:"resolution"`
	ResolvedBy       *uint      `json:"resolved_by"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	EscalationReason string     `gorm:"type:text" json:"escalation_reason"`
	EscalatedBy      *uint      `json:"escalated_by"`
	EscalatedAt      *time.Time `json:"escalated_at"`
	Revision         uint       `gorm:"not null;default:0" json:"revision"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Evaluation       Evaluation `gorm:"foreignKey:EvaluationID" json:"evaluation"`
	Flagger          User       `gorm:"foreignKey:FlaggedBy" json:"flagger"`
}
