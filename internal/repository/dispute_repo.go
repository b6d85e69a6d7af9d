package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/models"
)

// FlagResolution carries the writes of a TA resolution. Evaluation is nil when marks are unchanged.
type FlagResolution struct {
	Flag       *models.Flag
	ResolvedBy uint
	Resolution string
	ResolvedAt time.Time
	Evaluation *models.Evaluation
	Marks      []float64
	Feedback   string
}

// FlagEscalation carries the writes of an escalation to teachers.
type FlagEscalation struct {
	Flag        *models.Flag
	Reason      string
	EscalatedBy uint
	EscalatedAt time.Time
	Ticket      models.Ticket
}

// DisputeRepository applies multi-row dispute transitions atomically.
type DisputeRepository interface {
	ApplyResolution(ctx context.Context, resolution FlagResolution) error
	ApplyEscalation(ctx context.Context, escalation FlagEscalation) (models.Ticket, error)
}

type disputeRepository struct {
	db *gorm.DB
}

// NewDisputeRepository instantiates the repository.
func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) ApplyResolution(ctx context.Context, resolution FlagResolution) error {
	flag := resolution.Flag
	evaluation := resolution.Evaluation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if evaluation != nil {
			if err := updateWithRevision(tx, &models.Evaluation{}, evaluation.ID, evaluation.Revision, map[string]interface{}{
				"marks":    models.MarksOf(resolution.Marks),
				"feedback": resolution.Feedback,
				"status":   models.EvaluationStatusCompleted,
			}); err != nil {
				return err
			}
		}

		return updateWithRevision(tx, &models.Flag{}, flag.ID, flag.Revision, map[string]interface{}{
			"resolution_status": models.FlagStatusResolved,
			"resolved_by":       resolution.ResolvedBy,
			"resolved_at":       resolution.ResolvedAt,
			"resolution":        resolution.Resolution,
		})
	})
	if err != nil {
		return err
	}

	if evaluation != nil {
		evaluation.Marks = models.MarksOf(resolution.Marks)
		evaluation.Feedback = resolution.Feedback
		evaluation.Status = models.EvaluationStatusCompleted
		evaluation.Revision++
	}

	resolvedBy := resolution.ResolvedBy
	resolvedAt := resolution.ResolvedAt
	flag.ResolutionStatus = models.FlagStatusResolved
	flag.ResolvedBy = &resolvedBy
	flag.ResolvedAt = &resolvedAt
	flag.Resolution = resolution.Resolution
	flag.Revision++

	return nil
}

func (r *disputeRepository) ApplyEscalation(ctx context.Context, escalation FlagEscalation) (models.Ticket, error) {
	flag := escalation.Flag
	ticket := escalation.Ticket

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateWithRevision(tx, &models.Flag{}, flag.ID, flag.Revision, map[string]interface{}{
			"resolution_status": models.FlagStatusEscalated,
			"escalation_reason": escalation.Reason,
			"escalated_by":      escalation.EscalatedBy,
			"escalated_at":      escalation.EscalatedAt,
		}); err != nil {
			return err
		}

		var existing models.Ticket
		lookup := tx.Where("flag_id = ?", flag.ID).First(&existing)
		switch {
		case lookup.Error == nil:
			// Re-escalation reuses the ticket. A resolved ticket stays resolved.
			if err := updateWithRevision(tx, &models.Ticket{}, existing.ID, existing.Revision, map[string]interface{}{
				"description":          ticket.Description,
				"ta_id":                ticket.TAID,
				"escalated_to_teacher": true,
			}); err != nil {
				return err
			}
			existing.Description = ticket.Description
			existing.TAID = ticket.TAID
			existing.EscalatedToTeacher = true
			existing.Revision++
			ticket = existing
			return nil
		case errors.Is(lookup.Error, gorm.ErrRecordNotFound):
			ticket.EscalatedToTeacher = true
			return createTicket(tx, &ticket)
		default:
			return lookup.Error
		}
	})
	if err != nil {
		return models.Ticket{}, err
	}

	escalatedBy := escalation.EscalatedBy
	escalatedAt := escalation.EscalatedAt
	flag.ResolutionStatus = models.FlagStatusEscalated
	flag.EscalationReason = escalation.Reason
	flag.EscalatedBy = &escalatedBy
	flag.EscalatedAt = &escalatedAt
	flag.Revision++

	return ticket, nil
}

// createTicket inserts a ticket. Losing the race on the unique flag_id index to a
// concurrent escalation of the same flag is reported as ErrRevisionConflict.
func createTicket(tx *gorm.DB, ticket *models.Ticket) error {
	err := tx.Create(ticket).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrRevisionConflict
	}
	return err
}
