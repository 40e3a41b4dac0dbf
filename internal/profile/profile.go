// Package profile exposes the public display profile of a user, used
// for author attribution on notes. Lookups are best-effort: a note
// renders fine without its author block.
package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type Profile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

var ErrNotFound = errors.New("profile not found")

// Source resolves a user id to a display profile.
type Source interface {
	ByID(ctx context.Context, id uuid.UUID) (Profile, error)
}

// Store reads profiles from the users table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name FROM users WHERE id = $1
	`, id).Scan(&p.ID, &p.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}
