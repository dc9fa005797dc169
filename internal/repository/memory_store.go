package repository

import (
	"context"
	"sync"

	"github.com/stemsi/student-registry/internal/model"
)

// MemoryStore keeps every record in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	accounts      map[int64]model.Account
	accountByName map[string]int64
	nextAccountID int64

	students      map[int64]model.Student
	studentOrder  []int64
	nextStudentID int64
}

// NewMemoryStore creates an empty MemoryStore. Both allocators start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[int64]model.Account),
		accountByName: make(map[string]int64),
		nextAccountID: 1,
		students:      make(map[int64]model.Student),
		nextStudentID: 1,
	}
}

// CreateAccount stores a copy of a and sets a.ID.
func (m *MemoryStore) CreateAccount(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.accountByName[a.Username]; taken {
		return ErrDuplicateUsername
	}

	a.ID = m.nextAccountID
	m.nextAccountID++
	m.accounts[a.ID] = *a
	m.accountByName[a.Username] = a.ID
	return nil
}

// GetAccount returns the account with the given id.
func (m *MemoryStore) GetAccount(_ context.Context, id int64) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// GetAccountByUsername looks the account up by exact, case-sensitive username.
func (m *MemoryStore) GetAccountByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.accountByName[username]
	if !ok {
		return nil, ErrNotFound
	}
	a := m.accounts[id]
	return &a, nil
}

// CreateStudent stores a copy of s and sets s.ID.
func (m *MemoryStore) CreateStudent(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.nextStudentID
	m.nextStudentID++
	m.students[s.ID] = *s
	m.studentOrder = append(m.studentOrder, s.ID)
	return nil
}

// GetStudent returns the student with the given id.
func (m *MemoryStore) GetStudent(_ context.Context, id int64) (*model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

// ListStudents returns a snapshot of all students in insertion order.
func (m *MemoryStore) ListStudents(_ context.Context) ([]model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Student, 0, len(m.studentOrder))
	for _, id := range m.studentOrder {
		out = append(out, m.students[id])
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
