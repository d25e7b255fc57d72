// Package postgres is the remote record store: the authoritative job
// catalog held in PostgreSQL and accessed through pgxpool.
package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the catalog tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS job_postings (
	id              TEXT PRIMARY KEY,
	title           TEXT        NOT NULL DEFAULT '',
	company         TEXT        NOT NULL DEFAULT '',
	location        TEXT        NOT NULL DEFAULT '',
	job_type        TEXT        NOT NULL DEFAULT '',
	sector          TEXT        NOT NULL DEFAULT '',
	salary          TEXT        NOT NULL DEFAULT '',
	description     TEXT        NOT NULL DEFAULT '',
	requirements    TEXT[]      NOT NULL DEFAULT '{}',
	qualifications  TEXT[]      NOT NULL DEFAULT '{}',
	experience      TEXT        NOT NULL DEFAULT '',
	apply_link      TEXT        NOT NULL DEFAULT '',
	featured        BOOLEAN     NOT NULL DEFAULT false,
	is_active       BOOLEAN     NOT NULL DEFAULT true,
	is_approved     BOOLEAN     NOT NULL DEFAULT true,
	views           BIGINT      NOT NULL DEFAULT 0,
	shares          BIGINT      NOT NULL DEFAULT 0,
	applications    BIGINT      NOT NULL DEFAULT 0,
	saves           BIGINT      NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	expires_at      TIMESTAMPTZ NOT NULL,
	created_by      TEXT        NOT NULL DEFAULT '',
	last_updated_by TEXT        NOT NULL DEFAULT '',
	origin          TEXT        NOT NULL DEFAULT 'remote'
);

CREATE INDEX IF NOT EXISTS job_postings_active_created_idx
	ON job_postings (is_active, created_at DESC);

CREATE TABLE IF NOT EXISTS catalog_admins (
	user_id    TEXT PRIMARY KEY,
	granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// schemaGuard applies Schema until one attempt succeeds, then never again.
// The service may start while PostgreSQL is down, so the first successful
// ping is where the schema lands.
type schemaGuard struct {
	db   execer
	mu   sync.Mutex
	done bool
}

func (g *schemaGuard) ensure(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	if err := EnsureSchema(ctx, g.db); err != nil {
		return err
	}
	g.done = true
	return nil
}
