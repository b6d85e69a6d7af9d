package dto

import (
	"time"

	"github.com/noah-isme/peereval-api/internal/models"
)

// RelatedResource points a notification at the entity that triggered it.
type RelatedResource struct {
	Type string `json:"type" validate:"required,oneof=flag ticket evaluation"`
	ID   uint   `json:"id" validate:"required,gt=0"`
}

// NotificationCreateRequest describes a message addressed to one recipient.
type NotificationCreateRequest struct {
	UserID   uint            `json:"user_id" validate:"required,gt=0"`
	Type     string          `json:"type" validate:"required,max=64"`
	Message  string          `json:"message" validate:"required,min=1,max=2000"`
	Resource RelatedResource `json:"related_resource"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID              uint            `json:"id"`
	UserID          uint            `json:"user_id"`
	Type            string          `json:"type"`
	Message         string          `json:"message"`
	RelatedResource RelatedResource `json:"related_resource"`
	Read            bool            `json:"read"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:      model.ID,
		UserID:  model.UserID,
		Type:    model.Type,
		Message: model.Message,
		RelatedResource: RelatedResource{
			Type: model.ResourceType,
			ID:   model.ResourceID,
		},
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
