package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// UserStore is the Postgres-backed Repo.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.DisplayName, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	if err != nil {
		return User{}, "", err
	}
	return u, hash, nil
}

func (s *UserStore) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Email, u.DisplayName, passwordHash).Scan(&u.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "users_email_key") {
		return User{}, ErrAlreadyExists
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
