package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions emitted by the dispute workflow.
const (
	ActionFlagResolved    = "flag.resolved"
	ActionFlagEscalated   = "flag.escalated"
	ActionTicketResolved  = "ticket.resolved"
	ActionEvaluationMarks = "evaluation.marks_updated"
)

// ActivityLog is an audit trail entry for a state change in the dispute workflow.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"index;not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;index;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
