// Package pgstore keeps the ledger and uploads in Postgres. Each ledger
// version is a row keyed by version number; inserting version n+1 is the
// compare-and-swap, since the primary key rejects a second writer.
package pgstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/ledger"
	"github.com/mcdev12/fileupload/go/internal/sqlutil"
)

const uniqueViolation = "23505"

// ErrVersionConflict is returned when another writer committed the same version first.
var ErrVersionConflict = errors.New("ledger version already exists")

// Querier defines what the store needs from the database layer
type Querier interface {
	LatestLedger(ctx context.Context) (LedgerVersion, error)
	InsertLedgerVersion(ctx context.Context, version int64, content []byte) error
	PruneLedgerVersions(ctx context.Context, below int64) error
	UpsertUpload(ctx context.Context, dir, name string, content []byte) error
	DeleteUpload(ctx context.Context, dir, name string) error
}

// Store is a Postgres ledger.Backend and upload store.
type Store struct {
	queries Querier
	inTx    func(ctx context.Context, fn func(q Querier) error) error

	mu      sync.Mutex
	version int64
}

// New migrates the schema and returns a Store on pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	q := NewQueries(pool)
	if err := q.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	inTx := func(ctx context.Context, fn func(q Querier) error) error {
		return sqlutil.Run(ctx, pool, func(tx pgx.Tx) Querier { return NewQueries(tx) }, fn)
	}
	return newStore(q, inTx), nil
}

func newStore(q Querier, inTx func(ctx context.Context, fn func(q Querier) error) error) *Store {
	return &Store{queries: q, inTx: inTx}
}

// OpenLedger reads the highest stored version.
func (s *Store) OpenLedger(ctx context.Context) (io.ReadCloser, error) {
	v, err := s.queries.LatestLedger(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		s.setVersion(0)
		return nil, ledger.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest ledger: %w", err)
	}
	s.setVersion(v.Version)
	log.Debug().Int64("version", v.Version).Msg("Read ledger version")
	return io.NopCloser(bytes.NewReader(v.Content)), nil
}

func (s *Store) setVersion(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

type tempRow struct {
	s   *Store
	buf bytes.Buffer
}

func (t *tempRow) Write(p []byte) (int, error) { return t.buf.Write(p) }
func (t *tempRow) Close() error                { return nil }
func (t *tempRow) Discard() error              { return nil }

// CreateTempLedger buffers a new version in memory until ReplaceLedger.
func (s *Store) CreateTempLedger(ctx context.Context) (ledger.TempLedger, error) {
	return &tempRow{s: s}, nil
}

// ReplaceLedger inserts temp as the next version and prunes older ones in one
// transaction.
func (s *Store) ReplaceLedger(ctx context.Context, temp ledger.TempLedger) error {
	t, ok := temp.(*tempRow)
	if !ok || t.s != s {
		return fmt.Errorf("temp ledger of type %T does not belong to this store", temp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.version + 1
	err := s.inTx(ctx, func(q Querier) error {
		if err := q.InsertLedgerVersion(ctx, next, t.buf.Bytes()); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: version %d", ErrVersionConflict, next)
			}
			return fmt.Errorf("failed to insert ledger version: %w", err)
		}
		if err := q.PruneLedgerVersions(ctx, next); err != nil {
			return fmt.Errorf("failed to prune ledger versions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.version = next
	return nil
}

// StoreUploadedFile saves r as the row (dir, name).
func (s *Store) StoreUploadedFile(ctx context.Context, r io.Reader, dir, name string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read upload %s: %w", name, err)
	}
	if err := s.queries.UpsertUpload(ctx, dir, name, content); err != nil {
		return fmt.Errorf("failed to store upload %s: %w", name, err)
	}
	return nil
}

// RemoveUploadedFile deletes the row (dir, name).
func (s *Store) RemoveUploadedFile(ctx context.Context, dir, name string) error {
	if err := s.queries.DeleteUpload(ctx, dir, name); err != nil {
		return fmt.Errorf("failed to remove upload %s: %w", name, err)
	}
	return nil
}

// Connect opens a pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
