package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/notesync/internal/auth"
	"example.com/notesync/internal/profile"
)

type stubStore struct {
	fetchOwnedFn func(context.Context, uuid.UUID) ([]Note, error)
	fetchByIDFn  func(context.Context, string, *uuid.UUID) (Note, error)
	insertFn     func(context.Context, Draft, uuid.UUID) (Note, error)
	updateFn     func(context.Context, string, Patch, uuid.UUID) (Note, error)
	deleteFn     func(context.Context, string, uuid.UUID) error
}

func (s stubStore) FetchOwned(ctx context.Context, owner uuid.UUID) ([]Note, error) {
	return s.fetchOwnedFn(ctx, owner)
}
func (s stubStore) FetchByID(ctx context.Context, id string, viewer *uuid.UUID) (Note, error) {
	return s.fetchByIDFn(ctx, id, viewer)
}
func (s stubStore) Insert(ctx context.Context, d Draft, requester uuid.UUID) (Note, error) {
	return s.insertFn(ctx, d, requester)
}
func (s stubStore) Update(ctx context.Context, id string, p Patch, requester uuid.UUID) (Note, error) {
	return s.updateFn(ctx, id, p, requester)
}
func (s stubStore) Delete(ctx context.Context, id string, requester uuid.UUID) error {
	return s.deleteFn(ctx, id, requester)
}

type stubProfiles struct {
	byIDFn func(context.Context, uuid.UUID) (profile.Profile, error)
}

func (s stubProfiles) ByID(ctx context.Context, id uuid.UUID) (profile.Profile, error) {
	return s.byIDFn(ctx, id)
}

func mount(store Store, profiles profile.Source) http.Handler {
	r := chi.NewRouter()
	r.Mount("/notes", NewHandlers(store, profiles, nil).Routes())
	return r
}

func authed(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), id))
}

func TestHandlers_Create_Validation(t *testing.T) {
	owner := uuid.New()
	called := false
	h := mount(stubStore{
		insertFn: func(context.Context, Draft, uuid.UUID) (Note, error) {
			called = true
			return Note{}, nil
		},
	}, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/notes/", bytes.NewBufferString(`{"title":"","content":"x"}`)), owner)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.False(t, called, "validation failures must not reach the store")
}

func TestHandlers_Create_RequiresAuth(t *testing.T) {
	h := mount(stubStore{
		insertFn: func(context.Context, Draft, uuid.UUID) (Note, error) { return Note{}, nil },
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/notes/", bytes.NewBufferString(`{"title":"t","content":"c"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlers_Create_Success(t *testing.T) {
	owner := uuid.New()
	created := Note{ID: "01J0", OwnerID: owner, Title: "t", Content: "c", Visibility: Private, Tags: []string{}, CreatedAt: time.Unix(1, 0).UTC()}

	h := mount(stubStore{
		insertFn: func(_ context.Context, d Draft, requester uuid.UUID) (Note, error) {
			require.Equal(t, owner, requester)
			require.Equal(t, Private, d.Visibility) // defaulted
			return created, nil
		},
	}, nil)

	req := authed(httptest.NewRequest(http.MethodPost, "/notes/", bytes.NewBufferString(`{"title":"t","content":"c"}`)), owner)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got Note
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Equal(t, created.ID, got.ID)
}

func TestHandlers_Get_MergedNotFound(t *testing.T) {
	// An absent id and a denied private note must produce byte-identical
	// responses, so probing ids reveals nothing.
	h := mount(stubStore{
		fetchByIDFn: func(_ context.Context, id string, _ *uuid.UUID) (Note, error) {
			return Note{}, ErrNotFound
		},
	}, nil)

	var bodies []string
	for _, id := range []string{"missing", "private-of-someone-else"} {
		req := httptest.NewRequest(http.MethodGet, "/notes/"+id, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNotFound, rr.Code)
		bodies = append(bodies, rr.Body.String())
	}
	require.Equal(t, bodies[0], bodies[1])
}

func TestHandlers_Get_AuthorBlockDegrades(t *testing.T) {
	owner := uuid.New()
	n := Note{ID: "01J1", OwnerID: owner, Title: "t", Content: "c", Visibility: Public, Tags: []string{}}

	// success with author
	{
		h := mount(stubStore{
			fetchByIDFn: func(context.Context, string, *uuid.UUID) (Note, error) { return n, nil },
		}, stubProfiles{
			byIDFn: func(_ context.Context, id uuid.UUID) (profile.Profile, error) {
				require.Equal(t, owner, id)
				return profile.Profile{ID: id, DisplayName: "Ann"}, nil
			},
		})
		req := httptest.NewRequest(http.MethodGet, "/notes/01J1", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp noteResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.NotNil(t, resp.Author)
		require.Equal(t, "Ann", resp.Author.DisplayName)
	}

	// profile failure is non-fatal
	{
		h := mount(stubStore{
			fetchByIDFn: func(context.Context, string, *uuid.UUID) (Note, error) { return n, nil },
		}, stubProfiles{
			byIDFn: func(context.Context, uuid.UUID) (profile.Profile, error) {
				return profile.Profile{}, profile.ErrNotFound
			},
		})
		req := httptest.NewRequest(http.MethodGet, "/notes/01J1", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp noteResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Nil(t, resp.Author)
		require.Equal(t, n.ID, resp.Note.ID)
	}
}

func TestHandlers_HTML(t *testing.T) {
	n := Note{ID: "01J2", OwnerID: uuid.New(), Title: "t", Content: "# Hi", Visibility: Public}
	h := mount(stubStore{
		fetchByIDFn: func(context.Context, string, *uuid.UUID) (Note, error) { return n, nil },
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/notes/01J2/html", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rr.Body.String(), "<h1>Hi</h1>")
}

func TestHandlers_Update_Delete_And_List(t *testing.T) {
	owner := uuid.New()
	fixed := time.Unix(3, 0).UTC()

	store := stubStore{
		updateFn: func(_ context.Context, id string, p Patch, requester uuid.UUID) (Note, error) {
			require.Equal(t, "01J3", id)
			require.Equal(t, owner, requester)
			return Note{ID: id, OwnerID: owner, Title: *p.Title, Content: "c", Visibility: Private, CreatedAt: fixed}, nil
		},
		deleteFn: func(context.Context, string, uuid.UUID) error { return nil },
		fetchOwnedFn: func(_ context.Context, got uuid.UUID) ([]Note, error) {
			require.Equal(t, owner, got)
			return []Note{{ID: "01J4", OwnerID: owner, Title: "a", Content: "b", CreatedAt: fixed}}, nil
		},
		insertFn:    func(context.Context, Draft, uuid.UUID) (Note, error) { return Note{}, nil },
		fetchByIDFn: func(context.Context, string, *uuid.UUID) (Note, error) { return Note{}, nil },
	}
	h := mount(store, nil)

	// update invalid json
	{
		req := authed(httptest.NewRequest(http.MethodPut, "/notes/01J3", bytes.NewBufferString("{")), owner)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	}

	// update success
	{
		req := authed(httptest.NewRequest(http.MethodPut, "/notes/01J3", bytes.NewBufferString(`{"title":"t2"}`)), owner)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// delete success
	{
		req := authed(httptest.NewRequest(http.MethodDelete, "/notes/01J3", nil), owner)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
	}

	// list is owner-scoped
	{
		req := authed(httptest.NewRequest(http.MethodGet, "/notes/", nil), owner)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp map[string][]Note
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp["items"], 1)
		require.Equal(t, "01J4", resp["items"][0].ID)
	}
}

func TestHandlers_Update_Rejected(t *testing.T) {
	h := mount(stubStore{
		updateFn: func(context.Context, string, Patch, uuid.UUID) (Note, error) {
			return Note{}, ErrRejected
		},
	}, nil)

	req := authed(httptest.NewRequest(http.MethodPut, "/notes/01J5", bytes.NewBufferString(`{"title":"x"}`)), uuid.New())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "permission")
}
