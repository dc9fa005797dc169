package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/student-registry/internal/model"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore is a RecordStore backed by PostgreSQL. The schema lives in
// migrations/ and is applied with cmd/migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on an existing pool.
// Closing the store closes the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateAccount inserts a new account.
func (r *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (username, password_hash, role)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		a.Username, a.PasswordHash, a.Role,
	).Scan(&a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by id.
func (r *PostgresStore) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return r.scanAccount(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role FROM accounts WHERE id = $1`, id,
	))
}

// GetAccountByUsername retrieves an account by exact username.
func (r *PostgresStore) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.scanAccount(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role FROM accounts WHERE username = $1`, username,
	))
}

func (r *PostgresStore) scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

// CreateStudent inserts a new student.
func (r *PostgresStore) CreateStudent(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (name, age, gender, class)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.Name, s.Age, s.Gender, s.Class,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// GetStudent retrieves a student by id.
func (r *PostgresStore) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, age, gender, class FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Age, &s.Gender, &s.Class)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return s, nil
}

// ListStudents retrieves all students ordered by id.
func (r *PostgresStore) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, age, gender, class FROM students ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Age, &s.Gender, &s.Class); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Close closes the underlying pool.
func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}
