package students

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a student does not exist.
var ErrNotFound = errors.New("student not found")

// ErrDuplicateID is returned when registering a student ID that already exists.
var ErrDuplicateID = errors.New("student id already registered")

// Student is a subject entity that academic records are issued to.
type Student struct {
	ID        string    `json:"id"         db:"id"` // e.g. "STU001"
	Name      string    `json:"name"       db:"name"`
	Email     string    `json:"email"      db:"email"`
	Program   string    `json:"program"    db:"program"`
	Semester  int       `json:"semester"   db:"semester"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Draft carries the caller-supplied fields for a new student.
type Draft struct {
	ID       string `json:"id"      binding:"required"`
	Name     string `json:"name"    binding:"required"`
	Email    string `json:"email"   binding:"required,email"`
	Program  string `json:"program"`
	Semester int    `json:"semester"`
}

// Store is an in-memory student directory.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*Student
	order []string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Student)}
}

// Create registers a new student. IDs are case-insensitive and stored
// upper-cased so "stu001" and "STU001" refer to the same student.
func (s *Store) Create(_ context.Context, draft Draft) (*Student, error) {
	id := strings.ToUpper(strings.TrimSpace(draft.ID))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[id]; exists {
		return nil, ErrDuplicateID
	}

	st := &Student{
		ID:        id,
		Name:      draft.Name,
		Email:     draft.Email,
		Program:   draft.Program,
		Semester:  draft.Semester,
		CreatedAt: time.Now().UTC(),
	}
	s.byID[id] = st
	s.order = append(s.order, id)
	cp := *st
	return &cp, nil
}

// Get returns the student with the given ID, or ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// List returns all students in registration order.
func (s *Store) List(_ context.Context) ([]*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Student, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}
