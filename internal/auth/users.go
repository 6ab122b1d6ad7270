package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

// ErrBadCredentials is returned on a failed login. The message is the same
// for unknown email and wrong password so accounts cannot be enumerated.
var ErrBadCredentials = errors.New("invalid email or password")

// User is an authenticated BlockEdu account holder.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	StudentID    string    `json:"student_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore keeps user accounts in memory, keyed by email.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[uuid.UUID]*User
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		byEmail: make(map[string]*User),
		byID:    make(map[uuid.UUID]*User),
	}
}

// Register creates a user with a bcrypt-hashed password.
func (s *UserStore) Register(_ context.Context, email, password, name string, role Role, studentID string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		StudentID:    strings.ToUpper(strings.TrimSpace(studentID)),
		CreatedAt:    time.Now().UTC(),
	}
	s.byEmail[email] = u
	s.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

// Authenticate checks an email/password pair and returns the user on success.
func (s *UserStore) Authenticate(_ context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	u, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	cp := *u
	return &cp, nil
}

// GetByID returns the user with the given ID, or ErrNotFound.
func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}
