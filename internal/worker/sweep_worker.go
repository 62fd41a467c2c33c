package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/repository"
)

// Sessions whose end time passed this long ago without a submission are
// considered walked away from.
const abandonGrace = 5 * time.Minute

// SweepWorker periodically marks overdue in-progress sessions as
// abandoned. Cancelling a session client-side never calls the backend,
// so abandonment is only observable here.
type SweepWorker struct {
	sessions *repository.SessionRepository
	interval time.Duration
	log      zerolog.Logger
}

// NewSweepWorker creates a new SweepWorker.
func NewSweepWorker(sessions *repository.SessionRepository, interval time.Duration, log zerolog.Logger) *SweepWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepWorker{
		sessions: sessions,
		interval: interval,
		log:      log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start begins the periodic sweep loop. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			n, err := w.sessions.SweepAbandoned(ctx, abandonGrace)
			if err != nil {
				w.log.Error().Err(err).Msg("Sweep error")
				continue
			}
			if n > 0 {
				w.log.Info().Int64("count", n).Msg("Marked abandoned sessions")
			}
		}
	}
}
