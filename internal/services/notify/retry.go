package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/interfaces"
)

// RetryStats summarises one pass over the outbox
type RetryStats struct {
	Sent      int
	Failed    int
	Abandoned int
}

// RetryScheduler periodically resends queued report emails
type RetryScheduler struct {
	notifier    *Notifier
	outbox      interfaces.NotificationStorage
	maxAttempts int
	cron        *cron.Cron
	logger      arbor.ILogger
}

// NewRetryScheduler creates a scheduler. maxAttempts <= 0 means retry forever.
func NewRetryScheduler(notifier *Notifier, outbox interfaces.NotificationStorage, maxAttempts int, logger arbor.ILogger) *RetryScheduler {
	return &RetryScheduler{
		notifier:    notifier,
		outbox:      outbox,
		maxAttempts: maxAttempts,
		cron:        cron.New(),
		logger:      logger,
	}
}

// Start registers the retry pass on a five-field cron schedule
func (s *RetryScheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = "*/10 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Int("max_attempts", s.maxAttempts).
		Msg("Notification retry scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running pass to finish
func (s *RetryScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Notification retry scheduler stopped")
}

// RunOnce attempts every queued notification once
func (s *RetryScheduler) RunOnce(ctx context.Context) RetryStats {
	var stats RetryStats

	pending, err := s.outbox.ListPending(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list pending notifications")
		return stats
	}

	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		p := &pending[i]

		if s.maxAttempts > 0 && p.Attempts >= s.maxAttempts {
			s.logger.Warn().
				Str("notification_id", p.ID).
				Str("inspection_id", p.InspectionID).
				Int("attempts", p.Attempts).
				Str("last_error", p.LastError).
				Msg("Giving up on report email")
			if err := s.outbox.DeletePending(ctx, p.ID); err != nil {
				s.logger.Error().Err(err).Str("notification_id", p.ID).Msg("Failed to remove abandoned notification")
			}
			stats.Abandoned++
			continue
		}

		if err := s.notifier.Resend(ctx, p); err != nil {
			p.Attempts++
			p.LastError = err.Error()
			if serr := s.outbox.SavePending(ctx, p); serr != nil {
				s.logger.Error().Err(serr).Str("notification_id", p.ID).Msg("Failed to update pending notification")
			}
			s.logger.Warn().
				Err(err).
				Str("notification_id", p.ID).
				Int("attempts", p.Attempts).
				Msg("Report email retry failed")
			stats.Failed++
			continue
		}

		if err := s.outbox.DeletePending(ctx, p.ID); err != nil {
			s.logger.Error().Err(err).Str("notification_id", p.ID).Msg("Failed to remove sent notification")
		}
		s.logger.Info().
			Str("notification_id", p.ID).
			Str("inspection_id", p.InspectionID).
			Msg("Report email sent on retry")
		stats.Sent++
	}

	return stats
}
