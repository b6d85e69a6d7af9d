package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/models"
)

func TestEscalateToTeacherFansOutToEveryTeacher(t *testing.T) {
	f := newDisputeFixture(t, 31, 32, 33)
	svc := NewEscalationService(f.deps, silentLogger())

	result, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "needs senior review"}, taActor())
	require.NoError(t, err)
	require.Equal(t, string(models.FlagStatusEscalated), result.Status)
	require.Equal(t, "needs senior review", result.Reason)
	require.Equal(t, 3, result.NotifiedTeachers)
	require.NotZero(t, result.TicketID)

	flag := f.flag(t)
	require.Equal(t, models.FlagStatusEscalated, flag.ResolutionStatus)
	require.Equal(t, "needs senior review", flag.EscalationReason)
	require.NotNil(t, flag.EscalatedBy)
	require.Equal(t, fixtureTA, *flag.EscalatedBy)

	require.ElementsMatch(t, []uint{31, 32, 33, fixtureStudent}, f.sink.recipients())
	for _, sent := range f.sink.sent {
		if sent.UserID == fixtureStudent {
			require.Equal(t, NotificationEscalationAck, sent.Type)
			continue
		}
		require.Equal(t, NotificationFlagEscalated, sent.Type)
		require.Equal(t, dto.RelatedResource{Type: EntityTicket, ID: result.TicketID}, sent.Resource)
	}

	ticket := f.store.tickets[result.TicketID]
	require.True(t, ticket.EscalatedToTeacher)
	require.False(t, ticket.Resolved)
	require.Equal(t, fixtureStudent, ticket.StudentID)
	require.Equal(t, fixtureTA, ticket.TAID)
	require.NotNil(t, ticket.FlagID)
	require.Equal(t, fixtureFlag, *ticket.FlagID)

	require.Len(t, f.activity.entries, 1)
	require.Equal(t, models.ActionFlagEscalated, f.activity.entries[0].Action)
}

func TestEscalateToTeacherWithoutTeachersIsSilent(t *testing.T) {
	f := newDisputeFixture(t)
	svc := NewEscalationService(f.deps, silentLogger())

	result, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "check"}, taActor())
	require.NoError(t, err)
	require.Zero(t, result.NotifiedTeachers)
	require.Equal(t, []uint{fixtureStudent}, f.sink.recipients())
	require.Equal(t, models.FlagStatusEscalated, f.flag(t).ResolutionStatus)
}

func TestEscalateToTeacherTwiceReusesTicket(t *testing.T) {
	f := newDisputeFixture(t, 31)
	svc := NewEscalationService(f.deps, silentLogger())

	first, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "first"}, taActor())
	require.NoError(t, err)
	second, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "second"}, taActor())
	require.NoError(t, err)

	require.Equal(t, first.TicketID, second.TicketID)
	require.Len(t, f.store.tickets, 1)
	require.Equal(t, "second", f.flag(t).EscalationReason)
	require.Len(t, f.sink.sent, 4)
}

func TestEscalateToTeacherRequiresReason(t *testing.T) {
	f := newDisputeFixture(t, 31)
	svc := NewEscalationService(f.deps, silentLogger())

	_, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{}, taActor())

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, KindPayload, validation.Kind)
	require.Equal(t, models.FlagStatusPending, f.flag(t).ResolutionStatus)
	require.Empty(t, f.sink.sent)
}

func TestEscalateToTeacherErrors(t *testing.T) {
	t.Run("missing flag", func(t *testing.T) {
		f := newDisputeFixture(t, 31)
		svc := NewEscalationService(f.deps, silentLogger())

		_, err := svc.EscalateToTeacher(context.Background(), 77, dto.EscalateFlagRequest{Reason: "x"}, taActor())
		require.True(t, IsNotFound(err))
	})

	t.Run("out of scope TA", func(t *testing.T) {
		f := newDisputeFixture(t, 31)
		svc := NewEscalationService(f.deps, silentLogger())

		_, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "x"}, Actor{ID: fixtureOtherTA, Role: models.RoleTA})
		require.True(t, IsAuthorization(err))
		require.Empty(t, f.store.tickets)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newDisputeFixture(t, 31)
		f.store.writeErr = errors.New("connection reset")
		svc := NewEscalationService(f.deps, silentLogger())

		_, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "x"}, taActor())
		var dependency *DependencyError
		require.ErrorAs(t, err, &dependency)
		require.Empty(t, f.sink.sent)
	})
}

func TestEscalateToTeacherToleratesRosterFailure(t *testing.T) {
	f := newDisputeFixture(t)
	f.deps.Users = staticUserRepo{err: errors.New("replica down")}
	svc := NewEscalationService(f.deps, silentLogger())

	result, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "x"}, taActor())
	require.NoError(t, err)
	require.Zero(t, result.NotifiedTeachers)
	require.Equal(t, []uint{fixtureStudent}, f.sink.recipients())
}

func TestEscalateToTeacherRejectsReasonEmptyAfterSanitizing(t *testing.T) {
	f := newDisputeFixture(t, 31, 32)
	svc := NewEscalationService(f.deps, silentLogger())

	_, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "<b></b>"}, taActor())

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, KindPayload, validation.Kind)
	require.Equal(t, models.FlagStatusPending, f.flag(t).ResolutionStatus)
	require.Empty(t, f.store.tickets)
	require.Empty(t, f.sink.sent)
	require.Zero(t, f.store.writes)
}

func TestEscalateToTeacherKeepsReasonAsPlainText(t *testing.T) {
	f := newDisputeFixture(t, 31)
	svc := NewEscalationService(f.deps, silentLogger())

	result, err := svc.EscalateToTeacher(context.Background(), fixtureFlag, dto.EscalateFlagRequest{Reason: "<i>q3</i> rubric says < 5 & TA gave 8"}, taActor())
	require.NoError(t, err)
	require.Equal(t, "q3 rubric says < 5 & TA gave 8", result.Reason)
	require.Equal(t, "q3 rubric says < 5 & TA gave 8", f.store.tickets[result.TicketID].Description)
}
