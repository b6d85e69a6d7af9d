package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/models"
)

// UserRepository resolves user identities referenced by disputes.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	ListIDsByRole(ctx context.Context, role string) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) ListIDsByRole(ctx context.Context, role string) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", role).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
