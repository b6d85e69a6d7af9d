package models

import "time"

// Notification represents a message delivered to a single user's inbox.
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Type         string    `gorm:"size:64" json:"type"`
	Message      string    `gorm:"type:text" json:"message"`
	ResourceType string    `gorm:"size:32" json:"resource_type"`
	ResourceID   uint      `json:"resource_id"`
	Read         bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
