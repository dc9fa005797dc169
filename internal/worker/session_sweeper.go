package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/session"
)

// SessionSweeper periodically removes sessions idle longer than the TTL
// from stores that do not expire keys on their own.
type SessionSweeper struct {
	store    session.Sweeper
	ttl      time.Duration
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
	done     chan struct{}
}

// NewSessionSweeper creates a new SessionSweeper.
func NewSessionSweeper(store session.Sweeper, ttl, interval time.Duration, log zerolog.Logger) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		log:      log.With().Str("component", "session_sweeper").Logger(),
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled. Call in a goroutine.
func (w *SessionSweeper) Start(ctx context.Context) {
	defer close(w.done)
	w.log.Info().Dur("interval", w.interval).Dur("ttl", w.ttl).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce removes every session last seen before now minus the TTL.
func (w *SessionSweeper) SweepOnce(ctx context.Context) int {
	removed, err := w.store.Sweep(ctx, w.now().Add(-w.ttl))
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep failed")
		return 0
	}
	if removed > 0 {
		w.log.Info().Int("removed", removed).Msg("Expired sessions removed")
	}
	return removed
}

// Done is closed once Start has returned.
func (w *SessionSweeper) Done() <-chan struct{} {
	return w.done
}
