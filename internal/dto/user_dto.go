package dto

import "github.com/noah-isme/peereval-api/internal/models"

// UserLite exposes only the non-sensitive identity of a user.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUserLite converts a user model, returning nil for unloaded references.
func NewUserLite(user models.User) *UserLite {
	if user.ID == 0 {
		return nil
	}
	return &UserLite{ID: user.ID, Name: user.Name, Email: user.Email}
}
