package syncer

import (
	"github.com/google/uuid"

	"example.com/notesync/internal/notes"
)

// Permissions is the derived authorization view for one note and one
// session identity. Always computed fresh; storing these on the note
// would go stale the moment the session identity changes.
type Permissions struct {
	CanView bool `json:"can_view"`
	CanEdit bool `json:"can_edit"`
}

// IsAuthor reports whether identity owns the note. False for anonymous.
func IsAuthor(n notes.Note, identity *uuid.UUID) bool {
	return identity != nil && n.OwnerID == *identity
}

// ViewPermissions derives the viewer's rights: authors can edit, and a
// note is viewable when public or owned.
func ViewPermissions(n notes.Note, identity *uuid.UUID) Permissions {
	author := IsAuthor(n, identity)
	return Permissions{
		CanView: n.Visibility == notes.Public || author,
		CanEdit: author,
	}
}
