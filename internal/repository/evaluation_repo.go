package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/models"
)

// EvaluationRepository reads peer evaluations together with their exam shape.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).
		Preload("Exam").
		Preload("Evaluator").
		Preload("Evaluatee").
		First(&evaluation, id).Error; err != nil {
		return models.Evaluation{}, err
	}

	return evaluation, nil
}
