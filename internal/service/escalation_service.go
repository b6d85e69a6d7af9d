package service

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
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

// EscalationService hands flags over to teachers.
type EscalationService interface {
	EscalateToTeacher(ctx context.Context, flagID uint, payload dto.EscalateFlagRequest, actor Actor) (dto.EscalationResponse, error)
}

type escalationService struct {
	deps      DisputeDeps
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEscalationService constructs the escalation service.
func NewEscalationService(deps DisputeDeps, logger zerolog.Logger) EscalationService {
	return &escalationService{
		deps:      deps,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "escalation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/peereval-api/internal/service/escalation"),
		now:       time.Now,
	}
}

func (s *escalationService) EscalateToTeacher(ctx context.Context, flagID uint, payload dto.EscalateFlagRequest, actor Actor) (dto.EscalationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "flags.escalate", trace.WithAttributes(
		attribute.Int64("flag.id", int64(flagID)),
		attribute.Int64("flag.actor_id", int64(actor.ID)),
	))
	defer span.End()

	fail := func(err error, status string) (dto.EscalationResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.EscalationResponse{}, err
	}

	if err := s.deps.Validator.Struct(payload); err != nil {
		return fail(payloadError(err), "validation_failed")
	}

	flag, err := s.deps.Flags.GetByID(ctx, flagID)
	if err != nil {
		return fail(lookupError(err, EntityFlag, flagID), "flag_lookup_failed")
	}

	if err := s.deps.Scope.AuthorizeEvaluation(ctx, actor, flag.EvaluationID); err != nil {
		return fail(err, "forbidden")
	}

	if err := checkTransition(flag, models.FlagStatusEscalated); err != nil {
		return fail(err, "invalid_transition")
	}

	reason := cleanText(s.sanitizer, payload.Reason)
	if reason == "" {
		return fail(&ValidationError{Kind: KindPayload, Detail: "reason empty after sanitization"}, "validation_failed")
	}
	previous := flag.ResolutionStatus
	evaluationID := flag.EvaluationID
	linkedFlagID := flag.ID

	ticket, err := s.deps.Disputes.ApplyEscalation(ctx, repository.FlagEscalation{
		Flag:        &flag,
		Reason:      reason,
		EscalatedBy: actor.ID,
		EscalatedAt: s.now(),
		Ticket: models.Ticket{
			Subject:      fmt.Sprintf("Escalated flag #%d on evaluation #%d", flag.ID, flag.EvaluationID),
			Description:  reason,
			StudentID:    flag.FlaggedBy,
			TAID:         actor.ID,
			EvaluationID: &evaluationID,
			FlagID:       &linkedFlagID,
		},
	})
	if err != nil {
		return fail(writeError(err, EntityFlag, flag.ID), "escalation_write_failed")
	}

	observability.FlagTransitions().WithLabelValues(string(previous), string(models.FlagStatusEscalated)).Inc()

	sideCtx := afterCommit(ctx)
	s.deps.StatsCache.Invalidate(sideCtx)

	notified := s.notifyTeachers(sideCtx, flag, ticket)

	dispatchNotification(sideCtx, s.deps.Notifier, s.logger, dto.NotificationCreateRequest{
		UserID:   flag.FlaggedBy,
		Type:     NotificationEscalationAck,
		Message:  "Your flagged evaluation has been escalated to a teacher.",
		Resource: dto.RelatedResource{Type: EntityFlag, ID: flag.ID},
	})

	recordActivity(sideCtx, s.deps.Activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActionFlagEscalated,
		EntityType: EntityFlag,
		EntityID:   flag.ID,
		Metadata: map[string]interface{}{
			"evaluation_id":     flag.EvaluationID,
			"ticket_id":         ticket.ID,
			"previous_status":   string(previous),
			"reason":            reason,
			"notified_teachers": notified,
		},
	})

	span.SetAttributes(attribute.Int("flag.notified_teachers", notified))
	s.logger.Info().
		Uint("flag_id", flag.ID).
		Uint("ticket_id", ticket.ID).
		Int("notified_teachers", notified).
		Msg("flag escalated")

	return dto.EscalationResponse{
		FlagID:           flag.ID,
		Reason:           reason,
		Status:           string(flag.ResolutionStatus),
		TicketID:         ticket.ID,
		NotifiedTeachers: notified,
	}, nil
}

// notifyTeachers fans out one notice per teacher account. An empty roster is not an error.
func (s *escalationService) notifyTeachers(ctx context.Context, flag models.Flag, ticket models.Ticket) int {
	teacherIDs, err := s.deps.Users.ListIDsByRole(ctx, models.RoleTeacher)
	if err != nil {
		s.logger.Warn().Err(err).Uint("flag_id", flag.ID).Msg("failed to load teacher roster")
		return 0
	}

	delivered := 0
	for _, teacherID := range teacherIDs {
		ok := dispatchNotification(ctx, s.deps.Notifier, s.logger, dto.NotificationCreateRequest{
			UserID:   teacherID,
			Type:     NotificationFlagEscalated,
			Message:  fmt.Sprintf("A flagged evaluation has been escalated to you (ticket #%d).", ticket.ID),
			Resource: dto.RelatedResource{Type: EntityTicket, ID: ticket.ID},
		})
		if ok {
			delivered++
		}
	}

	return delivered
}
