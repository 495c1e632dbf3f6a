package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// ExpiredCleaner removes rows older than the cutoff and reports how many went.
type ExpiredCleaner interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// StaleLoginCleaner clears session tokens older than the cutoff.
type StaleLoginCleaner interface {
	ClearExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepHandler expires stale activation tokens and sessions on a schedule.
type SweepHandler struct {
	activations   ExpiredCleaner
	logins        StaleLoginCleaner
	activationTTL time.Duration
	sessionTTL    time.Duration
	logger        *slog.Logger
}

// NewSweepHandler constructs the maintenance sweep handler.
func NewSweepHandler(activations ExpiredCleaner, logins StaleLoginCleaner, activationTTL, sessionTTL time.Duration, logger *slog.Logger) *SweepHandler {
	return &SweepHandler{
		activations:   activations,
		logins:        logins,
		activationTTL: activationTTL,
		sessionTTL:    sessionTTL,
		logger:        logger,
	}
}

// Handle processes TaskTypeSweep tasks.
func (h *SweepHandler) Handle(ctx context.Context, _ *asynq.Task) error {
	now := time.Now().UTC()
	removed, err := h.activations.DeleteExpired(ctx, now.Add(-h.activationTTL))
	if err != nil {
		h.logger.Error("activation sweep failed", slog.Any("error", err))
		return err
	}
	cleared, err := h.logins.ClearExpired(ctx, now.Add(-h.sessionTTL))
	if err != nil {
		h.logger.Error("session sweep failed", slog.Any("error", err))
		return err
	}
	h.logger.Info("sweep complete",
		slog.Int64("activations_removed", removed),
		slog.Int64("sessions_cleared", cleared))
	return nil
}
