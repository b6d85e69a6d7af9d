package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/repository"
)

const flagStatsCacheKey = "flags:stats"

// StatsCache keeps the flag status summary in Redis. A nil client disables caching.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStatsCache constructs the cache wrapper.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *StatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "flag_stats_cache").Logger(),
	}
}

func (c *StatsCache) get(ctx context.Context) (dto.FlagStatsResponse, bool) {
	if c == nil || c.client == nil {
		return dto.FlagStatsResponse{}, false
	}

	cached, err := c.client.Get(ctx, flagStatsCacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read flag stats cache")
		}
		return dto.FlagStatsResponse{}, false
	}

	var stats dto.FlagStatsResponse
	if err := json.Unmarshal([]byte(cached), &stats); err != nil {
		return dto.FlagStatsResponse{}, false
	}
	return stats, true
}

func (c *StatsCache) set(ctx context.Context, stats dto.FlagStatsResponse) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, flagStatsCacheKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store flag stats cache")
	}
}

// Invalidate drops the cached summary after a flag transition.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, flagStatsCacheKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate flag stats cache")
	}
}

// FlagQueryService exposes read models used by the TA dashboard.
type FlagQueryService interface {
	ListPendingFlags(ctx context.Context, actor Actor) ([]dto.FlagResponse, error)
	EvaluationDetails(ctx context.Context, evaluationID uint, actor Actor) (dto.EvaluationDetailResponse, error)
	Stats(ctx context.Context, actor Actor) (dto.FlagStatsResponse, error)
}

type flagQueryService struct {
	flags       repository.FlagRepository
	evaluations repository.EvaluationRepository
	scope       ScopeAuthorizer
	cache       *StatsCache
	logger      zerolog.Logger
}

// NewFlagQueryService constructs the query service.
func NewFlagQueryService(flags repository.FlagRepository, evaluations repository.EvaluationRepository, scope ScopeAuthorizer, cache *StatsCache, logger zerolog.Logger) FlagQueryService {
	return &flagQueryService{
		flags:       flags,
		evaluations: evaluations,
		scope:       scope,
		cache:       cache,
		logger:      logger.With().Str("component", "flag_query_service").Logger(),
	}
}

func (s *flagQueryService) ListPendingFlags(ctx context.Context, actor Actor) ([]dto.FlagResponse, error) {
	filter, err := s.scope.FlagScope(ctx, actor)
	if err != nil {
		return nil, err
	}

	pending := models.FlagStatusPending
	filter.Status = &pending

	flags, err := s.flags.List(ctx, filter)
	if err != nil {
		return nil, &DependencyError{Op: "list flags", Err: err}
	}

	return dto.NewFlagResponseSlice(flags), nil
}

func (s *flagQueryService) EvaluationDetails(ctx context.Context, evaluationID uint, actor Actor) (dto.EvaluationDetailResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		return dto.EvaluationDetailResponse{}, lookupError(err, EntityEvaluation, evaluationID)
	}

	if err := s.scope.AuthorizeEvaluation(ctx, actor, evaluationID); err != nil {
		return dto.EvaluationDetailResponse{}, err
	}

	flags, err := s.flags.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return dto.EvaluationDetailResponse{}, &DependencyError{Op: "list evaluation flags", Err: err}
	}

	return dto.EvaluationDetailResponse{
		Evaluation: dto.NewEvaluationResponse(evaluation),
		Flags:      dto.NewFlagResponseSlice(flags),
	}, nil
}

func (s *flagQueryService) Stats(ctx context.Context, actor Actor) (dto.FlagStatsResponse, error) {
	if !actor.IsTA() && !actor.IsTeacher() {
		return dto.FlagStatsResponse{}, &AuthorizationError{ActorID: actor.ID, Reason: "only TAs and teachers can view flag stats"}
	}

	if cached, ok := s.cache.get(ctx); ok {
		cached.CacheHit = true
		return cached, nil
	}

	counts, err := s.flags.CountByStatus(ctx)
	if err != nil {
		return dto.FlagStatsResponse{}, &DependencyError{Op: "count flags", Err: err}
	}

	stats := dto.FlagStatsResponse{
		PendingFlags:   counts.Pending,
		ResolvedFlags:  counts.Resolved,
		EscalatedFlags: counts.Escalated,
		TotalFlags:     counts.Pending + counts.Resolved + counts.Escalated,
	}
	s.cache.set(ctx, stats)

	return stats, nil
}
