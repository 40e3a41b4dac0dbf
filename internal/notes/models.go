package notes

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"example.com/notesync/internal/stringsx"
)

type Visibility string

const (
	Private Visibility = "private"
	Public  Visibility = "public"
)

func (v Visibility) Valid() bool {
	return v == Private || v == Public
}

type Note struct {
	ID         string     `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	Tags       []string   `json:"tags"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Draft is a note as submitted for creation, before the server assigns
// id and timestamps.
type Draft struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	Tags       []string   `json:"tags"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title      *string     `json:"title"`
	Content    *string     `json:"content"`
	Visibility *Visibility `json:"visibility"`
	Tags       []string    `json:"tags"`
}

var (
	// ErrNotFound covers both a truly absent row and a row the viewer may
	// not read. The two cases are deliberately indistinguishable so that
	// probing an id cannot reveal the existence of a private note.
	ErrNotFound = errors.New("note not found")

	// ErrRejected means the store refused a mutation: the row is absent
	// or the requester is not its owner.
	ErrRejected = errors.New("note request rejected")

	ErrValidation = errors.New("title and content required")
)

// Validate checks the persistence invariants: title and content are
// non-empty whenever a note is written.
func (d Draft) Validate() error {
	if stringsx.IsEmpty(d.Title) || stringsx.IsEmpty(d.Content) {
		return ErrValidation
	}
	if !d.Visibility.Valid() {
		return ErrValidation
	}
	return nil
}

// Validate rejects a patch that would empty a required field.
func (p Patch) Validate() error {
	if p.Title != nil && stringsx.IsEmpty(*p.Title) {
		return ErrValidation
	}
	if p.Content != nil && stringsx.IsEmpty(*p.Content) {
		return ErrValidation
	}
	if p.Visibility != nil && !p.Visibility.Valid() {
		return ErrValidation
	}
	return nil
}

// NormalizeTags lowercases and trims each tag, drops empties, and removes
// duplicates while preserving first-occurrence order.
func NormalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = stringsx.Normalize(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
