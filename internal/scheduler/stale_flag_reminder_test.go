package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/repository"
	"github.com/noah-isme/peereval-api/internal/service"
	"github.com/noah-isme/peereval-api/internal/testutil"
)

type recordingSink struct {
	mu       sync.Mutex
	payloads []dto.NotificationCreateRequest
	failFor  uint
}

func (s *recordingSink) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payload.UserID == s.failFor {
		return dto.NotificationResponse{}, errors.New("inbox unavailable")
	}
	s.payloads = append(s.payloads, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type}, nil
}

func TestStaleFlagReminderNotifiesBatchTAsOnce(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)
	sink := &recordingSink{}

	reminder := NewStaleFlagReminder("@hourly", 72*time.Hour,
		repository.NewFlagRepository(db), repository.NewScopeRepository(db), sink, zerolog.Nop())

	sent, err := reminder.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Len(t, sink.payloads, 1)
	require.Equal(t, scenario.TA.ID, sink.payloads[0].UserID)
	require.Equal(t, service.NotificationFlagReminder, sink.payloads[0].Type)
	require.Equal(t, scenario.PendingFlag.ID, sink.payloads[0].Resource.ID)
	require.Contains(t, sink.payloads[0].Message, "pending for 96h0m0s")

	sent, err = reminder.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, sent, "a flag is reminded about once per window")

	reminder.now = func() time.Time { return time.Now().Add(73 * time.Hour) }
	sent, err = reminder.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sent, "both flags are stale and the window has passed")
}

func TestStaleFlagReminderSkipsFailedDeliveries(t *testing.T) {
	db := testutil.OpenSQLite(t)
	scenario := testutil.SeedScenario(t, db)
	sink := &recordingSink{failFor: scenario.TA.ID}

	reminder := NewStaleFlagReminder("@hourly", 72*time.Hour,
		repository.NewFlagRepository(db), repository.NewScopeRepository(db), sink, zerolog.Nop())

	sent, err := reminder.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, sent)
}

func TestStaleFlagReminderRejectsBadSchedule(t *testing.T) {
	reminder := NewStaleFlagReminder("not a schedule", time.Hour, nil, nil, &recordingSink{}, zerolog.Nop())
	require.Error(t, reminder.Start())
}
