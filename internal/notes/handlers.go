package notes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"example.com/notesync/internal/auth"
	"example.com/notesync/internal/markdown"
	"example.com/notesync/internal/profile"
)

// Store is an abstraction over the notes storage.
// It allows unit-testing handlers without a real database.
type Store interface {
	FetchOwned(ctx context.Context, owner uuid.UUID) ([]Note, error)
	FetchByID(ctx context.Context, id string, viewer *uuid.UUID) (Note, error)
	Insert(ctx context.Context, d Draft, requester uuid.UUID) (Note, error)
	Update(ctx context.Context, id string, p Patch, requester uuid.UUID) (Note, error)
	Delete(ctx context.Context, id string, requester uuid.UUID) error
}

type Handlers struct {
	store    Store
	profiles profile.Source
	feed     http.Handler
}

func NewHandlers(store Store, profiles profile.Source, feed http.Handler) *Handlers {
	return &Handlers{store: store, profiles: profiles, feed: feed}
}

// Routes is mounted under /notes.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/", h.list)
		r.Post("/", h.create)
		if h.feed != nil {
			r.Handle("/feed", h.feed)
		}
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})

	// Reads by id are open: the store decides what the viewer may see.
	r.Get("/{id}", h.get)
	r.Get("/{id}/html", h.html)

	return r
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	requester, _ := auth.Identity(r.Context())

	var d Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if d.Visibility == "" {
		d.Visibility = Private
	}
	if err := d.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	n, err := h.store.Insert(r.Context(), d, requester)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.Identity(r.Context())

	items, err := h.store.FetchOwned(r.Context(), owner)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type noteResponse struct {
	Note   Note             `json:"note"`
	Author *profile.Profile `json:"author,omitempty"`
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	n, ok := h.fetchVisible(w, r)
	if !ok {
		return
	}

	resp := noteResponse{Note: n}
	if h.profiles != nil {
		// Best-effort: the note renders without its author block.
		if p, err := h.profiles.ByID(r.Context(), n.OwnerID); err == nil {
			resp.Author = &p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) html(w http.ResponseWriter, r *http.Request) {
	n, ok := h.fetchVisible(w, r)
	if !ok {
		return
	}

	rendered, err := markdown.Render(n.Content)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(rendered))
}

// fetchVisible loads the note the viewer is allowed to see. Absent and
// denied produce the identical response so an id probe learns nothing.
func (h *Handlers) fetchVisible(w http.ResponseWriter, r *http.Request) (Note, bool) {
	var viewer *uuid.UUID
	if id, ok := auth.Identity(r.Context()); ok {
		viewer = &id
	}

	n, err := h.store.FetchByID(r.Context(), chi.URLParam(r, "id"), viewer)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found or private"})
		return Note{}, false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return Note{}, false
	}
	return n, true
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	requester, _ := auth.Identity(r.Context())

	var p Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	n, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), p, requester)
	if errors.Is(err, ErrRejected) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you may not have permission"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	requester, _ := auth.Identity(r.Context())

	err := h.store.Delete(r.Context(), chi.URLParam(r, "id"), requester)
	if errors.Is(err, ErrRejected) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you may not have permission"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
