package db

import "context"

// Schema statements applied by `notesd migrate`. Each is idempotent so
// the command can be re-run safely; they run one at a time because pgx
// prepares every Exec.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS notes (
		id         TEXT PRIMARY KEY,
		owner_id   UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		title      TEXT NOT NULL CHECK (title <> ''),
		content    TEXT NOT NULL CHECK (content <> ''),
		is_public  BOOLEAN NOT NULL DEFAULT false,
		tags       JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS notes_owner_created_idx
		ON notes (owner_id, created_at DESC, id DESC)`,

	`CREATE TABLE IF NOT EXISTS notes_audit (
		id       BIGSERIAL PRIMARY KEY,
		note_id  TEXT NOT NULL,
		actor_id UUID NOT NULL,
		action   TEXT NOT NULL,
		at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
