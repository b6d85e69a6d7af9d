package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/models"
)

// FlagFilter narrows flag listings.
type FlagFilter struct {
	Status   *models.FlagStatus
	BatchIDs []uint
	// Scoped restricts results to BatchIDs even when the slice is empty.
	Scoped bool
}

// FlagStatusCounts aggregates flags per resolution status.
type FlagStatusCounts struct {
	Pending   int64
	Resolved  int64
	Escalated int64
}

// StaleFlag is a pending flag together with the batch it belongs to.
type StaleFlag struct {
	FlagID       uint
	EvaluationID uint
	BatchID      uint
	CreatedAt    time.Time
}

// FlagRepository defines data operations for flags.
type FlagRepository interface {
	GetByID(ctx context.Context, id uint) (models.Flag, error)
	List(ctx context.Context, filter FlagFilter) ([]models.Flag, error)
	ListByEvaluation(ctx context.Context, evaluationID uint) ([]models.Flag, error)
	CountByStatus(ctx context.Context) (FlagStatusCounts, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]StaleFlag, error)
}

type flagRepository struct {
	db *gorm.DB
}

// NewFlagRepository instantiates the repository.
func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &flagRepository{db: db}
}

func (r *flagRepository) GetByID(ctx context.Context, id uint) (models.Flag, error) {
	var flag models.Flag
	if err := r.db.WithContext(ctx).First(&flag, id).Error; err != nil {
		return models.Flag{}, err
	}

	return flag, nil
}

func (r *flagRepository) List(ctx context.Context, filter FlagFilter) ([]models.Flag, error) {
	query := r.db.WithContext(ctx).Model(&models.Flag{}).
		Preload("Evaluation.Exam").
		Preload("Evaluation.Evaluator").
		Preload("Evaluation.Evaluatee").
		Preload("Flagger")

	if filter.Status != nil {
		query = query.Where("flags.resolution_status = ?", *filter.Status)
	}

	if filter.Scoped {
		if len(filter.BatchIDs) == 0 {
			return []models.Flag{}, nil
		}
		query = query.
			Joins("JOIN evaluations ON evaluations.id = flags.evaluation_id").
			Joins("JOIN exams ON exams.id = evaluations.exam_id").
			Where("exams.batch_id IN ?", filter.BatchIDs)
	}

	var flags []models.Flag
	if err := query.Order("flags.created_at ASC").Find(&flags).Error; err != nil {
		return nil, err
	}

	return flags, nil
}

func (r *flagRepository) ListByEvaluation(ctx context.Context, evaluationID uint) ([]models.Flag, error) {
	var flags []models.Flag
	if err := r.db.WithContext(ctx).
		Preload("Flagger").
		Where("evaluation_id = ?", evaluationID).
		Order("created_at ASC").
		Find(&flags).Error; err != nil {
		return nil, err
	}

	return flags, nil
}

func (r *flagRepository) CountByStatus(ctx context.Context) (FlagStatusCounts, error) {
	type row struct {
		ResolutionStatus models.FlagStatus
		Total            int64
	}

	var rows []row
	if err := r.db.WithContext(ctx).Model(&models.Flag{}).
		Select("resolution_status, COUNT(*) AS total").
		Group("resolution_status").
		Scan(&rows).Error; err != nil {
		return FlagStatusCounts{}, err
	}

	var counts FlagStatusCounts
	for _, item := range rows {
		switch item.ResolutionStatus {
		case models.FlagStatusPending:
			counts.Pending = item.Total
		case models.FlagStatusResolved:
			counts.Resolved = item.Total
		case models.FlagStatusEscalated:
			counts.Escalated = item.Total
		}
	}

	return counts, nil
}

func (r *flagRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]StaleFlag, error) {
	var stale []StaleFlag
	if err := r.db.WithContext(ctx).Table("flags").
		Select("flags.id AS flag_id, flags.evaluation_id, exams.batch_id, flags.created_at").
		Joins("JOIN evaluations ON evaluations.id = flags.evaluation_id").
		Joins("JOIN exams ON exams.id = evaluations.exam_id").
		Where("flags.resolution_status = ?", models.FlagStatusPending).
		Where("flags.created_at < ?", before).
		Order("flags.created_at ASC").
		Scan(&stale).Error; err != nil {
		return nil, err
	}

	return stale, nil
}
