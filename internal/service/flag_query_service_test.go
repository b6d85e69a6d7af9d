package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/repository"
	"github.com/noah-isme/peereval-api/internal/testutil"
)

func TestFlagQueryServiceScopesPendingFlagsByBatch(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)

	svc := NewFlagQueryService(
		repository.NewFlagRepository(db),
		repository.NewEvaluationRepository(db),
		NewScopeAuthorizer(repository.NewScopeRepository(db)),
		nil,
		silentLogger(),
	)

	flags, err := svc.ListPendingFlags(context.Background(), Actor{ID: scenario.TA.ID, Role: models.RoleTA})
	require.NoError(t, err)
	require.Len(t, flags, 1)
	require.Equal(t, scenario.PendingFlag.ID, flags[0].ID)
	require.NotNil(t, flags[0].Flagger)
	require.Equal(t, "sam@example.com", flags[0].Flagger.Email)
	require.NotNil(t, flags[0].Evaluation)
	require.NotNil(t, flags[0].Evaluation.Exam)
	require.Equal(t, 5, flags[0].Evaluation.Exam.NumQuestions)
	require.Equal(t, "Eve Evaluator", flags[0].Evaluation.Evaluator.Name)

	all, err := svc.ListPendingFlags(context.Background(), Actor{ID: scenario.Teachers[0].ID, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = svc.ListPendingFlags(context.Background(), Actor{ID: scenario.Student.ID, Role: models.RoleStudent})
	require.True(t, IsAuthorization(err))
}

func TestFlagQueryServiceEvaluationDetails(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)

	svc := NewFlagQueryService(
		repository.NewFlagRepository(db),
		repository.NewEvaluationRepository(db),
		NewScopeAuthorizer(repository.NewScopeRepository(db)),
		nil,
		silentLogger(),
	)

	details, err := svc.EvaluationDetails(context.Background(), scenario.Evaluation.ID, Actor{ID: scenario.TA.ID, Role: models.RoleTA})
	require.NoError(t, err)
	require.Equal(t, scenario.Evaluation.ID, details.Evaluation.ID)
	require.Len(t, details.Flags, 2)

	_, err = svc.EvaluationDetails(context.Background(), scenario.Evaluation.ID, Actor{ID: scenario.OtherTA.ID, Role: models.RoleTA})
	require.True(t, IsAuthorization(err))

	_, err = svc.EvaluationDetails(context.Background(), 9999, Actor{ID: scenario.TA.ID, Role: models.RoleTA})
	require.True(t, IsNotFound(err))
}

func TestFlagQueryServiceStatsAreCachedAndInvalidated(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer redisClient.Close()

	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)

	cache := NewStatsCache(redisClient, time.Minute, silentLogger())
	svc := NewFlagQueryService(
		repository.NewFlagRepository(db),
		repository.NewEvaluationRepository(db),
		NewScopeAuthorizer(repository.NewScopeRepository(db)),
		cache,
		silentLogger(),
	)
	actor := Actor{ID: scenario.TA.ID, Role: models.RoleTA}

	first, err := svc.Stats(context.Background(), actor)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, int64(2), first.PendingFlags)
	require.Equal(t, int64(1), first.ResolvedFlags)
	require.Equal(t, int64(3), first.TotalFlags)
	require.True(t, mini.Exists(flagStatsCacheKey))

	second, err := svc.Stats(context.Background(), actor)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.TotalFlags, second.TotalFlags)

	require.NoError(t, db.Model(&models.Flag{}).Where("id = ?", scenario.PendingFlag.ID).
		Update("resolution_status", models.FlagStatusEscalated).Error)
	cache.Invalidate(context.Background())
	require.False(t, mini.Exists(flagStatsCacheKey))

	third, err := svc.Stats(context.Background(), actor)
	require.NoError(t, err)
	require.False(t, third.CacheHit)
	require.Equal(t, int64(1), third.PendingFlags)
	require.Equal(t, int64(1), third.EscalatedFlags)

	_, err = svc.Stats(context.Background(), Actor{ID: scenario.Student.ID, Role: models.RoleStudent})
	require.True(t, IsAuthorization(err))
}
