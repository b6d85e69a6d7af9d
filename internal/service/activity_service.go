package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/repository"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   uint
	Metadata   map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// EventPublisher streams audit events to an external log.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, v interface{}) error
}

// ActivityService persists the dispute audit trail and mirrors it to the event stream.
type ActivityService interface {
	ActivityRecorder
	History(ctx context.Context, entityType string, entityID uint) ([]dto.ActivityResponse, error)
}

type activityService struct {
	repo      repository.ActivityLogRepository
	publisher EventPublisher
	logger    zerolog.Logger
}

type activityEvent struct {
	dto.ActivityResponse
	EmittedAt time.Time `json:"emitted_at"`
}

// NewActivityService constructs the activity service. publisher may be nil.
func NewActivityService(repo repository.ActivityLogRepository, publisher EventPublisher, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("entity type is required")
	}

	entityID := entry.EntityID
	model := models.ActivityLog{
		ActorID:    entry.Actor.ID,
		ActorRole:  normalizeRole(entry.Actor.Role),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   &entityID,
		Metadata:   sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	response := dto.NewActivityResponse(model)

	if s.publisher != nil {
		key := fmt.Sprintf("%s:%d", model.EntityType, entityID)
		if err := s.publisher.PublishEvent(ctx, key, activityEvent{ActivityResponse: response, EmittedAt: time.Now().UTC()}); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to stream activity event")
		}
	}

	return response, nil
}

func (s *activityService) History(ctx context.Context, entityType string, entityID uint) ([]dto.ActivityResponse, error) {
	entries, err := s.repo.List(ctx, repository.ActivityLogFilter{
		EntityType: strings.ToLower(strings.TrimSpace(entityType)),
		EntityID:   &entityID,
	})
	if err != nil {
		return nil, &DependencyError{Op: "load activity history", Err: err}
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}
	return responses, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

// recordActivity logs best-effort audit entries without failing the caller.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Uint("entity_id", entry.EntityID).Msg("failed to record activity")
	}
}
