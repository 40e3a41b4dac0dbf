package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/notesync/internal/stringsx"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrAlreadyExists      = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password too short")
)

// Repo is the user storage dependency, stubbed in unit tests.
type Repo interface {
	ByEmail(ctx context.Context, email string) (User, string, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
}

// Service owns registration and login, independent from transport.
type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// Register creates a new user. Display names are clipped to a sane
// length; an empty one falls back to the email local part.
func (s *Service) Register(ctx context.Context, email, displayName, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !isEmailLike(email) {
		return User{}, ErrInvalidEmail
	}
	if len(password) < 8 {
		return User{}, ErrWeakPassword
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email[:strings.IndexByte(email, '@')]
	}
	displayName = stringsx.Clip(displayName, 80)

	if _, _, err := s.repo.ByEmail(ctx, email); err == nil {
		return User{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	u := User{ID: uuid.New(), Email: email, DisplayName: displayName}
	return s.repo.Create(ctx, u, hashPassword(password))
}

// Login verifies credentials and returns the user. A missing user and a
// wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, hash, err := s.repo.ByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !verifyPassword(hash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func isEmailLike(s string) bool {
	if len(s) < 3 {
		return false
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return !strings.ContainsAny(s, " \t\n")
}

// Stored form: hex(salt) + ":" + hex(sha256(salt || password)).
func hashPassword(password string) string {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sum[:])
}

func verifyPassword(stored, password string) bool {
	saltHex, sumHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(sumHex)
	if err != nil {
		return false
	}
	got := sha256.Sum256(append(salt, []byte(password)...))
	return subtle.ConstantTimeCompare(got[:], want) == 1
}
