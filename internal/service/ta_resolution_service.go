package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/observability"
	"github.com/noah-isme/peereval-api/internal/repository"
)

// DisputeDeps groups the collaborators shared by the TA-facing dispute services.
type DisputeDeps struct {
	Flags       repository.FlagRepository
	Evaluations repository.EvaluationRepository
	Disputes    repository.DisputeRepository
	Users       repository.UserRepository
	Scope       ScopeAuthorizer
	Notifier    NotificationSink
	Activity    ActivityRecorder
	StatsCache  *StatsCache
	Validator   *validator.Validate
	// DefaultMaxMarks applies when an exam does not configure its own ceiling.
	DefaultMaxMarks float64
}

// TAResolutionService closes flags, optionally correcting the disputed marks.
type TAResolutionService interface {
	ResolveFlag(ctx context.Context, flagID uint, payload dto.ResolveFlagRequest, actor Actor) (dto.FlagResolutionResponse, error)
}

type taResolutionService struct {
	deps      DisputeDeps
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewTAResolutionService constructs the TA resolution service.
func NewTAResolutionService(deps DisputeDeps, logger zerolog.Logger) TAResolutionService {
	if deps.DefaultMaxMarks <= 0 {
		deps.DefaultMaxMarks = models.DefaultMaxMarksPerQuestion
	}

	return &taResolutionService{
		deps:      deps,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "ta_resolution_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/peereval-api/internal/service/ta_resolution"),
		now:       time.Now,
	}
}

func (s *taResolutionService) ResolveFlag(ctx context.Context, flagID uint, payload dto.ResolveFlagRequest, actor Actor) (dto.FlagResolutionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "flags.resolve", trace.WithAttributes(
		attribute.Int64("flag.id", int64(flagID)),
		attribute.Int64("flag.actor_id", int64(actor.ID)),
	))
	defer span.End()

	fail := func(err error, status string) (dto.FlagResolutionResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.FlagResolutionResponse{}, err
	}

	if err := s.deps.Validator.Struct(payload); err != nil {
		return fail(payloadError(err), "validation_failed")
	}

	flag, err := s.deps.Flags.GetByID(ctx, flagID)
	if err != nil {
		return fail(lookupError(err, EntityFlag, flagID), "flag_lookup_failed")
	}

	marks, marksSupplied, err := parseMarks(payload.NewMarks)
	if err != nil {
		return fail(err, "marks_invalid")
	}

	evaluation, err := s.deps.Evaluations.GetByID(ctx, flag.EvaluationID)
	evaluationFound := err == nil
	if err != nil && (marksSupplied || !errors.Is(err, gorm.ErrRecordNotFound)) {
		return fail(lookupError(err, EntityEvaluation, flag.EvaluationID), "evaluation_lookup_failed")
	}

	if err := s.deps.Scope.AuthorizeEvaluation(ctx, actor, flag.EvaluationID); err != nil {
		return fail(err, "forbidden")
	}

	if err := checkTransition(flag, models.FlagStatusResolved); err != nil {
		return fail(err, "invalid_transition")
	}

	feedback := evaluation.Feedback
	if payload.Feedback != nil {
		if cleaned := cleanText(s.sanitizer, *payload.Feedback); cleaned != "" {
			feedback = cleaned
		}
	}

	var evaluationWrite *models.Evaluation
	if marksSupplied {
		if err := validateMarks(marks, markRulesFor(evaluation, s.deps.DefaultMaxMarks)); err != nil {
			return fail(err, "marks_invalid")
		}

		unchanged := evaluation.IsCompleted() && marksEqual(marks, evaluation.Marks) && feedback == evaluation.Feedback
		if !unchanged {
			evaluationWrite = &evaluation
		}
	}

	resolution := cleanText(s.sanitizer, payload.Resolution)
	previous := flag.ResolutionStatus

	alreadyApplied := previous == models.FlagStatusResolved &&
		flag.ResolvedBy != nil && *flag.ResolvedBy == actor.ID &&
		flag.Resolution == resolution &&
		evaluationWrite == nil
	if alreadyApplied {
		span.SetAttributes(attribute.Bool("flag.idempotent", true))
		return s.response(flag, actor, resolution, evaluation, evaluationFound), nil
	}

	if err := s.deps.Disputes.ApplyResolution(ctx, repository.FlagResolution{
		Flag:       &flag,
		ResolvedBy: actor.ID,
		Resolution: resolution,
		ResolvedAt: s.now(),
		Evaluation: evaluationWrite,
		Marks:      marks,
		Feedback:   feedback,
	}); err != nil {
		return fail(writeError(err, EntityFlag, flag.ID), "resolution_write_failed")
	}

	observability.FlagTransitions().WithLabelValues(string(previous), string(models.FlagStatusResolved)).Inc()

	sideCtx := afterCommit(ctx)
	s.deps.StatsCache.Invalidate(sideCtx)

	dispatchNotification(sideCtx, s.deps.Notifier, s.logger, dto.NotificationCreateRequest{
		UserID:   flag.FlaggedBy,
		Type:     NotificationFlagResolved,
		Message:  "Your flagged evaluation has been resolved by a TA.",
		Resource: dto.RelatedResource{Type: EntityFlag, ID: flag.ID},
	})

	metadata := map[string]interface{}{
		"evaluation_id":   flag.EvaluationID,
		"previous_status": string(previous),
		"marks_updated":   evaluationWrite != nil,
	}
	if evaluationWrite != nil {
		metadata["marks"] = marks
	}
	recordActivity(sideCtx, s.deps.Activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActionFlagResolved,
		EntityType: EntityFlag,
		EntityID:   flag.ID,
		Metadata:   metadata,
	})

	s.logger.Info().
		Uint("flag_id", flag.ID).
		Uint("ta_id", actor.ID).
		Bool("marks_updated", evaluationWrite != nil).
		Msg("flag resolved")

	return s.response(flag, actor, resolution, evaluation, evaluationFound), nil
}

func (s *taResolutionService) response(flag models.Flag, actor Actor, resolution string, evaluation models.Evaluation, evaluationFound bool) dto.FlagResolutionResponse {
	response := dto.FlagResolutionResponse{
		FlagID:     flag.ID,
		Resolution: resolution,
		Status:     string(flag.ResolutionStatus),
		ResolvedBy: actor.ID,
	}
	if evaluationFound {
		view := dto.NewEvaluationResponse(evaluation)
		response.Evaluation = &view
	}
	return response
}
