package notes

import "github.com/google/uuid"

type Op string

const (
	OpInserted Op = "inserted"
	OpUpdated  Op = "updated"
	OpDeleted  Op = "deleted"
)

// Event is a row-level change notification. Note is nil for deletes;
// NoteID and OwnerID are always set so subscribers can be matched
// without the row.
type Event struct {
	Op      Op        `json:"op"`
	Note    *Note     `json:"note,omitempty"`
	NoteID  string    `json:"note_id"`
	OwnerID uuid.UUID `json:"owner_id"`
}

// Publisher receives an event after the corresponding transaction has
// committed. The repository publishes exactly one event per successful
// mutation.
type Publisher interface {
	Publish(Event)
}
