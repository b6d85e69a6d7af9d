package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/observability"
)

// dispatchNotification delivers one notification and swallows failures.
// It reports whether the sink accepted the message.
func dispatchNotification(ctx context.Context, sink NotificationSink, logger zerolog.Logger, payload dto.NotificationCreateRequest) bool {
	if sink == nil {
		return false
	}

	if _, err := sink.Publish(ctx, payload); err != nil {
		observability.NotificationFailures().WithLabelValues(payload.Type).Inc()
		logger.Warn().Err(err).
			Uint("recipient", payload.UserID).
			Str("type", payload.Type).
			Str("resource_type", payload.Resource.Type).
			Uint("resource_id", payload.Resource.ID).
			Msg("notification delivery failed")
		return false
	}

	return true
}

// afterCommit returns a context that keeps request values but survives caller cancellation,
// so side effects of an already committed transition still run.
func afterCommit(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
