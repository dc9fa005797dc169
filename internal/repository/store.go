package repository

import (
	"context"
	"errors"

	"github.com/stemsi/student-registry/internal/model"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("account with this username already exists")
)

// AccountStore persists login accounts.
type AccountStore interface {
	// CreateAccount assigns the next account id to a and stores it.
	// Returns ErrDuplicateUsername when the username is taken.
	CreateAccount(ctx context.Context, a *model.Account) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
}

// StudentStore persists student records.
type StudentStore interface {
	// CreateStudent assigns the next student id to s and stores it.
	CreateStudent(ctx context.Context, s *model.Student) error
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	// ListStudents returns every student oldest first. Never nil.
	ListStudents(ctx context.Context) ([]model.Student, error)
}

// RecordStore is the full persistence surface of the service.
// Ids handed out by either allocator are strictly increasing and never reused.
type RecordStore interface {
	AccountStore
	StudentStore
	Close() error
}
