package dto

import (
	"time"

	"github.com/noah-isme/peereval-api/internal/models"
)

// TicketResponse is the teacher-facing view of an escalated dispute.
type TicketResponse struct {
	ID                 uint       `json:"id"`
	Subject            string     `json:"subject"`
	Description        string     `json:"description"`
	EvaluationID       *uint      `json:"evaluation_id"`
	FlagID             *uint      `json:"flag_id"`
	Resolved           bool       `json:"resolved"`
	EscalatedToTeacher bool       `json:"escalated_to_teacher"`
	ResolvedBy         *uint      `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	Student            *UserLite  `json:"student,omitempty"`
	TA                 *UserLite  `json:"ta,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewTicketResponse converts a ticket model into its DTO.
func NewTicketResponse(model models.Ticket) TicketResponse {
	return TicketResponse{
		ID:                 model.ID,
		Subject:            model.Subject,
		Description:        model.Description,
		EvaluationID:       model.EvaluationID,
		FlagID:             model.FlagID,
		Resolved:           model.Resolved,
		EscalatedToTeacher: model.EscalatedToTeacher,
		ResolvedBy:         model.ResolvedBy,
		ResolvedAt:         model.ResolvedAt,
		Student:            NewUserLite(model.Student),
		TA:                 NewUserLite(model.TA),
		CreatedAt:          model.CreatedAt,
	}
}

// NewTicketResponseSlice converts ticket models into DTOs.
func NewTicketResponseSlice(items []models.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewTicketResponse(item))
	}
	return out
}
