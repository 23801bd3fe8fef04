// Package auth provides user accounts, password hashing and JWT
// session tokens for the API surface.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering an email that already has
// an account.
var ErrEmailTaken = errors.New("email already registered")

// User is one account record. Password holds the bcrypt hash, never the
// plaintext.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// UserStore persists accounts in a single JSON file, mirroring the
// transaction ledger's storage model.
type UserStore struct {
	mu   sync.Mutex
	path string
}

// NewUserStore returns a store backed by the given file. A missing file
// reads as no accounts.
func NewUserStore(path string) (*UserStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &UserStore{path: path}, nil
}

// Create registers a new account with a bcrypt-hashed password. Emails
// are matched case-insensitively.
func (s *UserStore) Create(email, password, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return User{}, err
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, u := range all {
		if strings.ToLower(u.Email) == normalized {
			return User{}, ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	user := User{
		ID:        uuid.NewString(),
		Email:     normalized,
		Password:  string(hash),
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	all = append(all, user)
	if err := s.writeAll(all); err != nil {
		return User{}, err
	}
	return user, nil
}

// FindByEmail looks an account up by email, case-insensitively.
func (s *UserStore) FindByEmail(email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return User{}, err
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, u := range all {
		if strings.ToLower(u.Email) == normalized {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// FindByID looks an account up by id.
func (s *UserStore) FindByID(id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return User{}, err
	}
	for _, u := range all {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// CheckPassword compares a plaintext candidate against the stored hash.
func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (s *UserStore) readAll() ([]User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []User{}, nil
		}
		return nil, fmt.Errorf("reading users file: %w", err)
	}

	var all []User
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decoding users file: %w", err)
	}
	return all, nil
}

func (s *UserStore) writeAll(all []User) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding users: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing users file: %w", err)
	}
	return nil
}
