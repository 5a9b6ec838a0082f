// Package jobs runs the background cadences: the reminder sweep that turns
// due pairs into dispatched notifications, and the periodic retrain that
// folds the accumulated recommendation log into a new model generation.
// Both loops are ticker-driven, stop on context cancellation, and log every
// pass so an operator can see the cadence in the structured log.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carebook/go-booking-backend/internal/notify"
	"github.com/carebook/go-booking-backend/internal/services"
)

// Scheduler owns the background loops. Construct it, then call Start once;
// Wait blocks until the context is cancelled and both loops have drained.
type Scheduler struct {
	// Reminders plans due pairs and records dispatches.
	Reminders *services.ReminderService
	// Retrainer runs the model pipeline.
	Retrainer *services.RetrainService
	// Notifier delivers due-reminder events.
	Notifier notify.Notifier

	// SweepInterval is the reminder sweep cadence.
	SweepInterval time.Duration
	// RetrainInterval is the retrain cadence; zero disables the loop.
	RetrainInterval time.Duration

	wg sync.WaitGroup
}

// Start launches the loops. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if s.SweepInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, "reminder_sweep", s.SweepInterval, s.SweepReminders)
	}
	if s.RetrainInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, "retrain", s.RetrainInterval, s.RunRetrain)
	}
}

// Wait blocks until every started loop has exited.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, pass func(context.Context, time.Time) error) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log.Info().Str("job", name).Dur("interval", every).Msg("background job started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("job", name).Msg("background job stopped")
			return
		case now := <-ticker.C:
			if err := pass(ctx, now.UTC()); err != nil {
				log.Error().Err(err).Str("job", name).Msg("background pass failed")
			}
		}
	}
}

// SweepReminders dispatches every due reminder once. A pair is recorded as
// sent only after its notification was accepted by the transport, so a
// failed dispatch is retried on the next sweep rather than silently lost.
func (s *Scheduler) SweepReminders(ctx context.Context, now time.Time) error {
	due, err := s.Reminders.DueReminders(ctx, now)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	sent := 0
	for _, d := range due {
		ev := notify.ReminderDueEvent{
			PrimaryUserID:   d.PrimaryUserID,
			SecondaryUserID: d.SecondaryUserID,
			PreferredSlot:   d.PreferredSlot,
			DueAt:           now,
		}
		if err := s.Notifier.ReminderDue(ctx, ev); err != nil {
			log.Error().Err(err).
				Str("primary_user_id", d.PrimaryUserID).
				Str("secondary_user_id", d.SecondaryUserID).
				Msg("reminder dispatch failed")
			continue
		}
		if err := s.Reminders.MarkSent(ctx, d.PrimaryUserID, d.SecondaryUserID, now); err != nil {
			log.Error().Err(err).
				Str("primary_user_id", d.PrimaryUserID).
				Str("secondary_user_id", d.SecondaryUserID).
				Msg("failed to record reminder dispatch")
			continue
		}
		sent++
	}
	log.Info().Int("due", len(due)).Int("sent", sent).Msg("reminder sweep complete")
	return nil
}

// RunRetrain executes one retrain pass. Expected skips — not enough data
// yet, or a run already in flight — are logged and swallowed; they are part
// of normal cadence, not failures.
func (s *Scheduler) RunRetrain(ctx context.Context, now time.Time) error {
	gen, err := s.Retrainer.Retrain(ctx, now)
	switch {
	case err == nil:
		log.Info().
			Int("version", gen.Version).
			Int("rows", gen.TrainedRows).
			Float64("accuracy", gen.Accuracy).
			Msg("model generation activated")
		return nil
	case errors.Is(err, services.ErrInsufficientData):
		log.Info().Msg("retrain skipped: insufficient training data")
		return nil
	case errors.Is(err, services.ErrRetrainInProgress):
		log.Info().Msg("retrain skipped: run already in progress")
		return nil
	case errors.Is(err, services.ErrModelRegression):
		log.Warn().Msg("retrain rolled back: new generation underperformed")
		return nil
	default:
		return err
	}
}
