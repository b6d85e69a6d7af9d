package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/testutil"
)

func TestFlagRepositoryListHonoursScope(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)
	repo := NewFlagRepository(db)
	pending := models.FlagStatusPending

	scoped, err := repo.List(context.Background(), FlagFilter{Status: &pending, BatchIDs: []uint{scenario.Batch.ID}, Scoped: true})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, scenario.PendingFlag.ID, scoped[0].ID)
	require.Equal(t, scenario.Exam.ID, scoped[0].Evaluation.Exam.ID)

	none, err := repo.List(context.Background(), FlagFilter{Status: &pending, Scoped: true})
	require.NoError(t, err)
	require.Empty(t, none)

	all, err := repo.List(context.Background(), FlagFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, scenario.PendingFlag.ID, all[0].ID, "oldest flag first")
}

func TestFlagRepositoryCountByStatus(t *testing.T) {
	db := testutil.OpenSQLite(t)
	testutil.SeedScenario(t, db)

	counts, err := NewFlagRepository(db).CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, FlagStatusCounts{Pending: 2, Resolved: 1}, counts)
}

func TestFlagRepositoryListPendingBefore(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)

	stale, err := NewFlagRepository(db).ListPendingBefore(context.Background(), time.Now().Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, scenario.PendingFlag.ID, stale[0].FlagID)
	require.Equal(t, scenario.Evaluation.ID, stale[0].EvaluationID)
	require.Equal(t, scenario.Batch.ID, stale[0].BatchID)
}

func TestScopeRepositoryResolvesBatchMembership(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)
	repo := NewScopeRepository(db)

	ok, err := repo.IsTAForEvaluation(context.Background(), scenario.TA.ID, scenario.Evaluation.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IsTAForEvaluation(context.Background(), scenario.OtherTA.ID, scenario.Evaluation.ID)
	require.NoError(t, err)
	require.False(t, ok)

	batches, err := repo.BatchIDsForTA(context.Background(), scenario.TA.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{scenario.Batch.ID}, batches)

	tas, err := repo.TAIDsForBatch(context.Background(), scenario.OtherBatch.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{scenario.OtherTA.ID}, tas)
}

func TestTicketRepositoryListEscalatedSkipsPlainTickets(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)
	repo := NewTicketRepository(db)

	plain := models.Ticket{Subject: "login issue", Description: "cannot log in", StudentID: scenario.Student.ID}
	escalated := models.Ticket{Subject: "Escalated flag", Description: "regrade", StudentID: scenario.Student.ID, TAID: scenario.TA.ID, EscalatedToTeacher: true}
	require.NoError(t, db.Create(&plain).Error)
	require.NoError(t, db.Create(&escalated).Error)

	tickets, err := repo.ListEscalated(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	require.Equal(t, escalated.ID, tickets[0].ID)
	require.Equal(t, "Sam Student", tickets[0].Student.Name)
	require.Equal(t, "Tara TA", tickets[0].TA.Name)

	stale := tickets[0]
	require.NoError(t, repo.MarkResolved(context.Background(), &tickets[0], scenario.Teachers[0].ID, time.Now()))
	require.ErrorIs(t, repo.MarkResolved(context.Background(), &stale, scenario.Teachers[1].ID, time.Now()), ErrRevisionConflict)
}

func TestUserRepositoryListIDsByRole(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)

	ids, err := NewUserRepository(db).ListIDsByRole(context.Background(), models.RoleTeacher)
	require.NoError(t, err)
	require.Equal(t, []uint{scenario.Teachers[0].ID, scenario.Teachers[1].ID}, ids)
}
