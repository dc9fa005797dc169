package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/stemsi/student-registry/internal/model"
)

// AUTOINCREMENT keeps SQLite from reusing the ids of deleted rows.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	role          TEXT    NOT NULL DEFAULT 'user'
);

CREATE TABLE IF NOT EXISTS students (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name   TEXT    NOT NULL,
	age    INTEGER NOT NULL CHECK (age BETWEEN 5 AND 100),
	gender TEXT    NOT NULL,
	class  TEXT    NOT NULL
);
`

// SQLiteStore is a RecordStore backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the schema if needed and returns a ready store.
// Closing the store closes db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// CreateAccount inserts a new account.
func (r *SQLiteStore) CreateAccount(ctx context.Context, a *model.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, role) VALUES (?, ?, ?)`,
		a.Username, a.PasswordHash, string(a.Role),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// GetAccount retrieves an account by id.
func (r *SQLiteStore) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return r.scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role FROM accounts WHERE id = ?`, id,
	))
}

// GetAccountByUsername retrieves an account by exact username.
func (r *SQLiteStore) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role FROM accounts WHERE username = ?`, username,
	))
}

func (r *SQLiteStore) scanAccount(row *sql.Row) (*model.Account, error) {
	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

// CreateStudent inserts a new student.
func (r *SQLiteStore) CreateStudent(ctx context.Context, s *model.Student) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO students (name, age, gender, class) VALUES (?, ?, ?, ?)`,
		s.Name, s.Age, string(s.Gender), s.Class,
	)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("student last insert id: %w", err)
	}
	s.ID = id
	return nil
}

// GetStudent retrieves a student by id.
func (r *SQLiteStore) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	s := &model.Student{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, age, gender, class FROM students WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Age, &s.Gender, &s.Class)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return s, nil
}

// ListStudents retrieves all students ordered by id.
func (r *SQLiteStore) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx,
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

// Close closes the database handle.
func (r *SQLiteStore) Close() error {
	return r.db.Close()
}
