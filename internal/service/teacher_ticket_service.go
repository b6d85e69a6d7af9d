package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/observability"
	"github.com/noah-isme/peereval-api/internal/repository"
)

// TeacherTicketService gives teachers final authority over escalated tickets.
type TeacherTicketService interface {
	ResolveEscalatedTicket(ctx context.Context, ticketID uint, actor Actor) (dto.TicketResponse, error)
	ListEscalatedTickets(ctx context.Context, actor Actor) ([]dto.TicketResponse, error)
}

type teacherTicketService struct {
	tickets  repository.TicketRepository
	scope    ScopeAuthorizer
	notifier NotificationSink
	activity ActivityRecorder
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewTeacherTicketService constructs the teacher ticket service.
func NewTeacherTicketService(tickets repository.TicketRepository, scope ScopeAuthorizer, notifier NotificationSink, activity ActivityRecorder, logger zerolog.Logger) TeacherTicketService {
	return &teacherTicketService{
		tickets:  tickets,
		scope:    scope,
		notifier: notifier,
		activity: activity,
		logger:   logger.With().Str("component", "teacher_ticket_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/peereval-api/internal/service/teacher_ticket"),
		now:      time.Now,
	}
}

func (s *teacherTicketService) ResolveEscalatedTicket(ctx context.Context, ticketID uint, actor Actor) (dto.TicketResponse, error) {
	ctx, span := s.tracer.Start(ctx, "tickets.resolve", trace.WithAttributes(
		attribute.Int64("ticket.id", int64(ticketID)),
		attribute.Int64("ticket.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.scope.RequireTeacher(actor); err != nil {
		span.SetStatus(codes.Error, "forbidden")
		return dto.TicketResponse{}, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		span.RecordError(err)
		return dto.TicketResponse{}, lookupError(err, EntityTicket, ticketID)
	}

	if !ticket.IsActionable() {
		span.SetStatus(codes.Error, "ticket_not_escalated")
		return dto.TicketResponse{}, &ValidationError{
			Kind:   KindTicketNotEscalated,
			Detail: "ticket has not been escalated to a teacher",
		}
	}

	if ticket.Resolved {
		span.SetAttributes(attribute.Bool("ticket.idempotent", true))
		return dto.NewTicketResponse(ticket), nil
	}

	if err := s.tickets.MarkResolved(ctx, &ticket, actor.ID, s.now()); err != nil {
		span.RecordError(err)
		return dto.TicketResponse{}, writeError(err, EntityTicket, ticket.ID)
	}

	observability.TicketResolutions().Inc()

	sideCtx := afterCommit(ctx)
	if ticket.StudentID != 0 {
		dispatchNotification(sideCtx, s.notifier, s.logger, dto.NotificationCreateRequest{
			UserID:   ticket.StudentID,
			Type:     NotificationTicketResolved,
			Message:  "Your escalated dispute has been resolved by a teacher.",
			Resource: dto.RelatedResource{Type: EntityTicket, ID: ticket.ID},
		})
	}

	recordActivity(sideCtx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActionTicketResolved,
		EntityType: EntityTicket,
		EntityID:   ticket.ID,
		Metadata: map[string]interface{}{
			"flag_id":       ticket.FlagID,
			"evaluation_id": ticket.EvaluationID,
		},
	})

	s.logger.Info().Uint("ticket_id", ticket.ID).Uint("teacher_id", actor.ID).Msg("ticket resolved")

	return dto.NewTicketResponse(ticket), nil
}

func (s *teacherTicketService) ListEscalatedTickets(ctx context.Context, actor Actor) ([]dto.TicketResponse, error) {
	if err := s.scope.RequireTeacher(actor); err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListEscalated(ctx)
	if err != nil {
		return nil, &DependencyError{Op: "list escalated tickets", Err: err}
	}

	return dto.NewTicketResponseSlice(tickets), nil
}
