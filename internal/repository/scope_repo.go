package repository

import (
	"context"

	"gorm.io/gorm"
)

// ScopeRepository answers batch membership questions used for TA authorization.
type ScopeRepository interface {
	IsTAForEvaluation(ctx context.Context, taID, evaluationID uint) (bool, error)
	BatchIDsForTA(ctx context.Context, taID uint) ([]uint, error)
	TAIDsForBatch(ctx context.Context, batchID uint) ([]uint, error)
}

type scopeRepository struct {
	db *gorm.DB
}

// NewScopeRepository instantiates the repository.
func NewScopeRepository(db *gorm.DB) ScopeRepository {
	return &scopeRepository{db: db}
}

func (r *scopeRepository) IsTAForEvaluation(ctx context.Context, taID, evaluationID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Table("batch_tas").
		Joins("JOIN exams ON exams.batch_id = batch_tas.batch_id").
		Joins("JOIN evaluations ON evaluations.exam_id = exams.id").
		Where("evaluations.id = ?", evaluationID).
		Where("batch_tas.user_id = ?", taID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *scopeRepository) BatchIDsForTA(ctx context.Context, taID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Table("batch_tas").
		Where("user_id = ?", taID).
		Order("batch_id ASC").
		Pluck("batch_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *scopeRepository) TAIDsForBatch(ctx context.Context, batchID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Table("batch_tas").
		Where("batch_id = ?", batchID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
