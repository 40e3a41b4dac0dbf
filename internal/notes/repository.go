package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Repository is the authoritative store. Every mutation carries an
// owner predicate in addition to the handler-level auth check, so a
// request forged with someone else's note id cannot touch the row.
type Repository struct {
	db  *sql.DB
	pub Publisher

	stmtFetchByID *sql.Stmt
}

func NewRepository(ctx context.Context, db *sql.DB, pub Publisher) (*Repository, error) {
	// Visibility check lives in the query itself: a private note of
	// another owner produces zero rows, same as an absent id.
	get, err := db.PrepareContext(ctx, `
		SELECT id, owner_id, title, content, is_public, tags, created_at, updated_at
		FROM notes
		WHERE id = $1 AND (is_public OR owner_id = $2)
	`)
	if err != nil {
		return nil, err
	}

	return &Repository{db: db, pub: pub, stmtFetchByID: get}, nil
}

func (r *Repository) Close() error {
	if r.stmtFetchByID != nil {
		_ = r.stmtFetchByID.Close()
	}
	return nil
}

// FetchOwned returns every note owned by owner, newest first.
func (r *Repository) FetchOwned(ctx context.Context, owner uuid.UUID) ([]Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, title, content, is_public, tags, created_at, updated_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// FetchByID loads a single note as seen by viewer (nil for anonymous).
// Absent rows and rows the viewer may not read both return ErrNotFound.
func (r *Repository) FetchByID(ctx context.Context, id string, viewer *uuid.UUID) (Note, error) {
	var viewerArg any
	if viewer != nil {
		viewerArg = *viewer
	}

	n, err := scanNote(r.stmtFetchByID.QueryRowContext(ctx, id, viewerArg))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

// Insert creates a note owned by requester. The id is a fresh ULID and
// timestamps come from the database clock. Uses an explicit transaction:
// INSERT notes + INSERT audit.
func (r *Repository) Insert(ctx context.Context, d Draft, requester uuid.UUID) (Note, error) {
	if err := d.Validate(); err != nil {
		return Note{}, err
	}

	tagsJSON, err := json.Marshal(NormalizeTags(d.Tags))
	if err != nil {
		return Note{}, err
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Note{}, err
	}
	defer tx.Rollback()

	n, err := scanNote(tx.QueryRowContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, is_public, tags)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING id, owner_id, title, content, is_public, tags, created_at, updated_at
	`, ulid.Make().String(), requester, d.Title, d.Content, d.Visibility == Public, string(tagsJSON)))
	if err != nil {
		return Note{}, err
	}

	if err := audit(ctx, tx, n.ID, requester, "create"); err != nil {
		return Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return Note{}, err
	}

	r.pub.Publish(Event{Op: OpInserted, Note: &n, NoteID: n.ID, OwnerID: n.OwnerID})
	return n, nil
}

// Update applies a partial patch. The WHERE clause requires ownership;
// zero matched rows (absent or not owned) is ErrRejected.
func (r *Repository) Update(ctx context.Context, id string, p Patch, requester uuid.UUID) (Note, error) {
	if err := p.Validate(); err != nil {
		return Note{}, err
	}

	var isPublic *bool
	if p.Visibility != nil {
		v := *p.Visibility == Public
		isPublic = &v
	}
	var tagsArg any
	if p.Tags != nil {
		tagsJSON, err := json.Marshal(NormalizeTags(p.Tags))
		if err != nil {
			return Note{}, err
		}
		tagsArg = string(tagsJSON)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Note{}, err
	}
	defer tx.Rollback()

	n, err := scanNote(tx.QueryRowContext(ctx, `
		UPDATE notes
		SET title      = COALESCE($1, title),
		    content    = COALESCE($2, content),
		    is_public  = COALESCE($3, is_public),
		    tags       = COALESCE($4::jsonb, tags),
		    updated_at = now()
		WHERE id = $5 AND owner_id = $6
		RETURNING id, owner_id, title, content, is_public, tags, created_at, updated_at
	`, p.Title, p.Content, isPublic, tagsArg, id, requester))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrRejected
	}
	if err != nil {
		return Note{}, err
	}

	if err := audit(ctx, tx, n.ID, requester, "update"); err != nil {
		return Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return Note{}, err
	}

	r.pub.Publish(Event{Op: OpUpdated, Note: &n, NoteID: n.ID, OwnerID: n.OwnerID})
	return n, nil
}

// Delete removes a note owned by requester. Same merged rejection rule
// as Update.
func (r *Repository) Delete(ctx context.Context, id string, requester uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND owner_id = $2`, id, requester)
	if err != nil {
		return err
	}
	if a, _ := res.RowsAffected(); a == 0 {
		return ErrRejected
	}

	if err := audit(ctx, tx, id, requester, "delete"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.pub.Publish(Event{Op: OpDeleted, NoteID: id, OwnerID: requester})
	return nil
}

func audit(ctx context.Context, tx *sql.Tx, noteID string, actor uuid.UUID, action string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notes_audit (note_id, actor_id, action) VALUES ($1, $2, $3)
	`, noteID, actor, action)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (Note, error) {
	var n Note
	var isPublic bool
	var tagsRaw []byte
	err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &isPublic, &tagsRaw, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	if isPublic {
		n.Visibility = Public
	} else {
		n.Visibility = Private
	}
	if err := json.Unmarshal(tagsRaw, &n.Tags); err != nil {
		return Note{}, err
	}
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	out := make([]Note, 0, 32)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
