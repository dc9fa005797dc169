package session

import (
	"context"
	"time"

	"github.com/stemsi/student-registry/internal/model"
)

// Store keeps server-side sessions keyed by session id.
type Store interface {
	Create(ctx context.Context, s *model.Session) error
	// Get returns nil, nil when no session with id exists.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Touch records activity on the session at the given time.
	// A missing session is not an error.
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// Sweeper is implemented by stores that cannot expire sessions on their own.
type Sweeper interface {
	// Sweep removes sessions last seen before cutoff and reports how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
