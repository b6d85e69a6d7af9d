package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/repository"
	"github.com/noah-isme/peereval-api/internal/service"
)

const reminderJobTimeout = 2 * time.Minute

// StaleFlagReminder periodically nudges TAs about flags that stayed pending too long.
type StaleFlagReminder struct {
	cronEngine *cron.Cron
	spec       string
	staleAfter time.Duration
	flags      repository.FlagRepository
	scopes     repository.ScopeRepository
	notifier   service.NotificationSink
	logger     zerolog.Logger
	now        func() time.Time

	mu       sync.Mutex
	reminded map[uint]time.Time
}

// NewStaleFlagReminder constructs the reminder job. spec is a standard five-field cron expression.
func NewStaleFlagReminder(spec string, staleAfter time.Duration, flags repository.FlagRepository, scopes repository.ScopeRepository, notifier service.NotificationSink, logger zerolog.Logger) *StaleFlagReminder {
	return &StaleFlagReminder{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		spec:       spec,
		staleAfter: staleAfter,
		flags:      flags,
		scopes:     scopes,
		notifier:   notifier,
		logger:     logger.With().Str("component", "stale_flag_reminder").Logger(),
		now:        time.Now,
		reminded:   make(map[uint]time.Time),
	}
}

// Start registers the job and starts the cron engine.
func (s *StaleFlagReminder) Start() error {
	if _, err := s.cronEngine.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderJobTimeout)
		defer cancel()

		sent, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("stale flag reminder run failed")
			return
		}
		s.logger.Info().Int("reminders", sent).Msg("stale flag reminder run completed")
	}); err != nil {
		return fmt.Errorf("register stale flag reminder %q: %w", s.spec, err)
	}

	s.cronEngine.Start()
	s.logger.Info().Str("spec", s.spec).Dur("stale_after", s.staleAfter).Msg("stale flag reminder started")
	return nil
}

// Stop waits for a running job to finish.
func (s *StaleFlagReminder) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("stale flag reminder stopped")
}

// RunOnce sends one reminder per TA of the batch for every stale flag and returns how many were delivered.
// A flag is reminded about at most once per staleAfter window.
func (s *StaleFlagReminder) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.flags.ListPendingBefore(ctx, now.Add(-s.staleAfter))
	if err != nil {
		return 0, fmt.Errorf("list stale flags: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rosters := make(map[uint][]uint)
	sent := 0
	for _, flag := range stale {
		if last, ok := s.reminded[flag.FlagID]; ok && now.Sub(last) < s.staleAfter {
			continue
		}

		taIDs, ok := rosters[flag.BatchID]
		if !ok {
			taIDs, err = s.scopes.TAIDsForBatch(ctx, flag.BatchID)
			if err != nil {
				s.logger.Warn().Err(err).Uint("batch_id", flag.BatchID).Msg("failed to load batch TAs")
				continue
			}
			rosters[flag.BatchID] = taIDs
		}

		pendingFor := now.Sub(flag.CreatedAt).Round(time.Hour)
		for _, taID := range taIDs {
			if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
				UserID:   taID,
				Type:     service.NotificationFlagReminder,
				Message:  fmt.Sprintf("Flag #%d on evaluation #%d has been pending for %s.", flag.FlagID, flag.EvaluationID, pendingFor),
				Resource: dto.RelatedResource{Type: service.EntityFlag, ID: flag.FlagID},
			}); err != nil {
				s.logger.Warn().Err(err).Uint("flag_id", flag.FlagID).Uint("ta_id", taID).Msg("reminder delivery failed")
				continue
			}
			sent++
		}
		s.reminded[flag.FlagID] = now
	}

	for flagID, last := range s.reminded {
		if now.Sub(last) >= s.staleAfter {
			delete(s.reminded, flagID)
		}
	}

	return sent, nil
}
