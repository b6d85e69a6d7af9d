package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/models"
)

// TicketRepository handles persistence for teacher-facing tickets.
type TicketRepository interface {
	GetByID(ctx context.Context, id uint) (models.Ticket, error)
	ListEscalated(ctx context.Context) ([]models.Ticket, error)
	MarkResolved(ctx context.Context, ticket *models.Ticket, resolvedBy uint, resolvedAt time.Time) error
}

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) GetByID(ctx context.Context, id uint) (models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return models.Ticket{}, err
	}

	return ticket, nil
}

func (r *ticketRepository) ListEscalated(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := r.db.WithContext(ctx).
		Preload("Student", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		Preload("TA", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		Where("escalated_to_teacher = ?", true).
		Order("created_at DESC").
		Find(&tickets).Error; err != nil {
		return nil, err
	}

	return tickets, nil
}

func (r *ticketRepository) MarkResolved(ctx context.Context, ticket *models.Ticket, resolvedBy uint, resolvedAt time.Time) error {
	err := updateWithRevision(r.db.WithContext(ctx), &models.Ticket{}, ticket.ID, ticket.Revision, map[string]interface{}{
		"resolved":    true,
		"resolved_by": resolvedBy,
		"resolved_at": resolvedAt,
	})
	if err != nil {
		return err
	}

	ticket.Resolved = true
	ticket.ResolvedBy = &resolvedBy
	ticket.ResolvedAt = &resolvedAt
	ticket.Revision++
	return nil
}
