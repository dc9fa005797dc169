package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &model.Session{ID: "old", LastSeen: now.Add(-25 * time.Hour)}))
	require.NoError(t, store.Create(ctx, &model.Session{ID: "new", LastSeen: now.Add(-time.Hour)}))

	w := NewSessionSweeper(store, 24*time.Hour, time.Hour, zerolog.Nop())
	w.now = func() time.Time { return now }

	assert.Equal(t, 1, w.SweepOnce(ctx))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, w.SweepOnce(ctx))
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context, time.Time) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestSessionSweeper_StartStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &countingSweeper{}
	w := NewSessionSweeper(store, time.Hour, 5*time.Millisecond, zerolog.Nop())

	go w.Start(ctx)
	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
