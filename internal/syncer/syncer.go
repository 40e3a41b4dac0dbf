// Package syncer maintains the session's local note set: an in-memory,
// ordered view reconciled from change-feed events. Mutations are sent
// to the store and never applied locally; the feed event for the change
// is the only thing that moves the local set, so applying an event is
// idempotent and a feed echo of our own write is a no-op by
// construction.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"example.com/notesync/internal/feed"
	"example.com/notesync/internal/notes"
	"example.com/notesync/internal/profile"
)

var (
	// ErrAuthorization is returned by the local pre-check before any
	// request is sent; the store would reject the request anyway.
	ErrAuthorization = errors.New("not the note's author")

	// ErrFetch means the initial load failed; the synchronizer is left
	// empty and errored rather than partially populated.
	ErrFetch = errors.New("load failed")

	// ErrStaleSession means the operation completed after the session
	// it belonged to was torn down; its result was discarded.
	ErrStaleSession = errors.New("session superseded")
)

// Repository is the store interface the synchronizer relies on.
// Satisfied by *notes.Repository and by HTTP client implementations.
type Repository interface {
	FetchOwned(ctx context.Context, owner uuid.UUID) ([]notes.Note, error)
	FetchByID(ctx context.Context, id string, viewer *uuid.UUID) (notes.Note, error)
	Insert(ctx context.Context, d notes.Draft, requester uuid.UUID) (notes.Note, error)
	Update(ctx context.Context, id string, p notes.Patch, requester uuid.UUID) (notes.Note, error)
	Delete(ctx context.Context, id string, requester uuid.UUID) error
}

// Synchronizer owns the local note set for one session at a time.
// Initialize/Teardown bump an epoch; anything completing under an old
// epoch is discarded instead of being applied to the new session.
type Synchronizer struct {
	repo     Repository
	feed     feed.Feed
	profiles profile.Source // optional, nil disables author lookup

	mu       sync.Mutex
	notes    []notes.Note
	identity *uuid.UUID
	epoch    uint64
	sub      feed.Subscription
	errored  bool
}

func New(repo Repository, f feed.Feed, profiles profile.Source) *Synchronizer {
	return &Synchronizer{repo: repo, feed: f, profiles: profiles}
}

// Initialize starts a session: clears state, loads the identity's notes
// newest first, and opens the owner-scoped feed subscription. On
// failure the set stays empty and Errored reports true.
func (s *Synchronizer) Initialize(ctx context.Context, identity uuid.UUID) error {
	s.mu.Lock()
	s.closeSubLocked()
	s.notes = nil
	s.errored = false
	id := identity
	s.identity = &id
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	owned, err := s.repo.FetchOwned(ctx, identity)
	if err != nil {
		s.markErrored(epoch)
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}

	sub, err := s.feed.Subscribe(ctx, identity)
	if err != nil {
		s.markErrored(epoch)
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		_ = sub.Close()
		return ErrStaleSession
	}
	s.notes = owned
	s.sub = sub
	s.mu.Unlock()

	go s.pump(epoch, sub)
	return nil
}

// Teardown ends the session: the subscription is closed and late
// events or responses from it are discarded.
func (s *Synchronizer) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeSubLocked()
	s.identity = nil
	s.notes = nil
	s.errored = false
	s.epoch++
}

// Snapshot returns a copy of the local note set, newest first.
func (s *Synchronizer) Snapshot() []notes.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notes.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *Synchronizer) Errored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errored
}

// ApplyRemoteEvent folds one feed event into the local set. Applying
// the same event twice yields the same set.
func (s *Synchronizer) ApplyRemoteEvent(ev notes.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(ev)
}

// CreateNote validates and sends an insert. The local set is not
// touched: the feed delivers the Inserted event, which avoids a
// duplicate between an optimistic append and the feed echo.
func (s *Synchronizer) CreateNote(ctx context.Context, title, content string, visibility notes.Visibility, tags []string) error {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity == nil {
		return ErrAuthorization
	}

	if visibility == "" {
		visibility = notes.Private
	}
	d := notes.Draft{
		Title:      title,
		Content:    content,
		Visibility: visibility,
		Tags:       notes.NormalizeTags(tags),
	}
	if err := d.Validate(); err != nil {
		return err
	}

	_, err := s.repo.Insert(ctx, d, *identity)
	return err
}

// UpdateNote pre-checks authorship against the local copy (even a
// stale one carries the owner) and sends an owner-scoped update. The
// visible change arrives via the feed.
func (s *Synchronizer) UpdateNote(ctx context.Context, id string, p notes.Patch) error {
	identity, err := s.precheck(id)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	_, err = s.repo.Update(ctx, id, p, identity)
	return err
}

// DeleteNote sends an owner-scoped delete after the same local
// pre-check; removal arrives via the feed.
func (s *Synchronizer) DeleteNote(ctx context.Context, id string) error {
	identity, err := s.precheck(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id, identity)
}

// NoteView is a single note with its author attribution and the
// viewer's permissions.
type NoteView struct {
	Note        notes.Note       `json:"note"`
	Author      *profile.Profile `json:"author,omitempty"`
	Permissions Permissions      `json:"permissions"`
}

// LoadNote fetches one note without an owner predicate; the store
// merges "absent" and "denied" into the same not-found signal and the
// caller must keep them merged. The author profile is best-effort.
func (s *Synchronizer) LoadNote(ctx context.Context, id string) (NoteView, error) {
	s.mu.Lock()
	viewer := s.identity
	s.mu.Unlock()

	n, err := s.repo.FetchByID(ctx, id, viewer)
	if err != nil {
		return NoteView{}, err
	}

	view := NoteView{Note: n, Permissions: ViewPermissions(n, viewer)}
	if s.profiles != nil {
		if p, err := s.profiles.ByID(ctx, n.OwnerID); err == nil {
			view.Author = &p
		}
	}
	return view, nil
}

// Permissions reports the derived authorization view for a note under
// the current session identity, evaluated now rather than cached.
func (s *Synchronizer) Permissions(n notes.Note) Permissions {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	return ViewPermissions(n, identity)
}

func (s *Synchronizer) precheck(id string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return uuid.Nil, ErrAuthorization
	}
	if i := s.indexLocked(id); i >= 0 && s.notes[i].OwnerID != *s.identity {
		return uuid.Nil, ErrAuthorization
	}
	return *s.identity, nil
}

func (s *Synchronizer) pump(epoch uint64, sub feed.Subscription) {
	for ev := range sub.Events() {
		s.mu.Lock()
		if s.epoch == epoch {
			s.applyLocked(ev)
		}
		s.mu.Unlock()
	}
}

func (s *Synchronizer) applyLocked(ev notes.Event) {
	switch ev.Op {
	case notes.OpInserted, notes.OpUpdated:
		if ev.Note == nil {
			return
		}
		n := *ev.Note
		if i := s.indexLocked(n.ID); i >= 0 {
			// Already present (our own earlier apply, or a duplicate
			// delivery): replace in place, position unchanged. Updates
			// never resort the list; it stays most-recently-created
			// first.
			s.notes[i] = n
			return
		}
		// Insert by created-at descending. On an equal timestamp the
		// arriving note sorts first: feed arrival order wins the tie.
		j := 0
		for j < len(s.notes) && s.notes[j].CreatedAt.After(n.CreatedAt) {
			j++
		}
		s.notes = append(s.notes, notes.Note{})
		copy(s.notes[j+1:], s.notes[j:])
		s.notes[j] = n

	case notes.OpDeleted:
		if i := s.indexLocked(ev.NoteID); i >= 0 {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
		}
		// Absent is a no-op: the event may trail a removal we already
		// applied.
	}
}

func (s *Synchronizer) indexLocked(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) closeSubLocked() {
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
}

func (s *Synchronizer) markErrored(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.errored = true
	}
}
