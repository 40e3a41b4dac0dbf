package syncer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/notesync/internal/notes"
)

func TestViewPermissions_Table(t *testing.T) {
	author := uuid.New()
	other := uuid.New()

	private := notes.Note{ID: "p", OwnerID: author, Visibility: notes.Private}
	public := notes.Note{ID: "q", OwnerID: author, Visibility: notes.Public}

	tests := []struct {
		name     string
		note     notes.Note
		identity *uuid.UUID
		want     Permissions
	}{
		{"author on private", private, &author, Permissions{CanView: true, CanEdit: true}},
		{"author on public", public, &author, Permissions{CanView: true, CanEdit: true}},
		{"other on private", private, &other, Permissions{CanView: false, CanEdit: false}},
		{"other on public", public, &other, Permissions{CanView: true, CanEdit: false}},
		{"anonymous on private", private, nil, Permissions{CanView: false, CanEdit: false}},
		{"anonymous on public", public, nil, Permissions{CanView: true, CanEdit: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ViewPermissions(tt.note, tt.identity))
			require.Equal(t, tt.want.CanEdit, IsAuthor(tt.note, tt.identity))
		})
	}
}

// Permissions are recomputed per call, so a sign-out between two
// evaluations of the same note flips the answer.
func TestPermissions_TrackSessionIdentity(t *testing.T) {
	owner := uuid.New()
	n := notes.Note{ID: "n", OwnerID: owner, Visibility: notes.Private}

	s := initialized(t, owner, &stubRepo{}, nil)
	require.True(t, s.Permissions(n).CanEdit)

	s.Teardown()
	got := s.Permissions(n)
	require.False(t, got.CanEdit)
	require.False(t, got.CanView)
}
