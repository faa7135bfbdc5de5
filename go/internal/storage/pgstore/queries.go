package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_versions (
    version    BIGINT PRIMARY KEY,
    content    BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS uploaded_files (
    dir        TEXT NOT NULL,
    name       TEXT NOT NULL,
    content    BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (dir, name)
);
`

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LedgerVersion is one stored copy of the ledger.
type LedgerVersion struct {
	Version   int64
	Content   []byte
	CreatedAt time.Time
}

// Queries runs the statements the store needs against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries binds the statements to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) Migrate(ctx context.Context) error {
	_, err := q.db.Exec(ctx, schema)
	return err
}

const latestLedger = `
SELECT version, content, created_at FROM ledger_versions
ORDER BY version DESC
LIMIT 1
`

func (q *Queries) LatestLedger(ctx context.Context) (LedgerVersion, error) {
	var v LedgerVersion
	err := q.db.QueryRow(ctx, latestLedger).Scan(&v.Version, &v.Content, &v.CreatedAt)
	return v, err
}

const insertLedgerVersion = `
INSERT INTO ledger_versions (version, content) VALUES ($1, $2)
`

func (q *Queries) InsertLedgerVersion(ctx context.Context, version int64, content []byte) error {
	_, err := q.db.Exec(ctx, insertLedgerVersion, version, content)
	return err
}

const pruneLedgerVersions = `
DELETE FROM ledger_versions WHERE version < $1
`

func (q *Queries) PruneLedgerVersions(ctx context.Context, below int64) error {
	_, err := q.db.Exec(ctx, pruneLedgerVersions, below)
	return err
}

const upsertUpload = `
INSERT INTO uploaded_files (dir, name, content) VALUES ($1, $2, $3)
ON CONFLICT (dir, name) DO UPDATE SET content = EXCLUDED.content, created_at = now()
`

func (q *Queries) UpsertUpload(ctx context.Context, dir, name string, content []byte) error {
	_, err := q.db.Exec(ctx, upsertUpload, dir, name, content)
	return err
}

const deleteUpload = `
DELETE FROM uploaded_files WHERE dir = $1 AND name = $2
`

func (q *Queries) DeleteUpload(ctx context.Context, dir, name string) error {
	_, err := q.db.Exec(ctx, deleteUpload, dir, name)
	return err
}
