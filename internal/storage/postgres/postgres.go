// Package postgres implements storage.Store on top of a single JSONB table.
package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/storage"
)

const (
	insertSQL  = `INSERT INTO documents (collection, doc) VALUES ($1, $2) RETURNING id`
	getSQL     = `SELECT doc FROM documents WHERE collection = $1 AND id = $2`
	replaceSQL = `UPDATE documents SET doc = $3 WHERE collection = $1 AND id = $2`
	deleteSQL  = `DELETE FROM documents WHERE collection = $1 AND id = $2 RETURNING doc`
	scanSQL    = `SELECT id, doc, created_at FROM documents WHERE collection = $1 ORDER BY seq`
	countSQL   = `SELECT count(*) FROM documents WHERE collection = $1`
)

var _ storage.Store = (*Store)(nil)

// NewPool creates a pgxpool.Pool for the given connection URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL, applies migrations and returns a Store that
// owns the pool.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// New returns a Store that uses the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert stores doc and returns the generated id.
func (s *Store) Insert(ctx context.Context, collection string, doc []byte) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, insertSQL, collection, doc).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return id, nil
}

// Get returns the document stored under id.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var doc []byte
	if err := s.pool.QueryRow(ctx, getSQL, collection, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s %q: %w", collection, id, err)
	}
	return doc, nil
}

// Replace overwrites the document stored under id.
func (s *Store) Replace(ctx context.Context, collection, id string, doc []byte) error {
	tag, err := s.pool.Exec(ctx, replaceSQL, collection, id, doc)
	if err != nil {
		return fmt.Errorf("replacing %s %q: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes the document and returns its last contents.
func (s *Store) Delete(ctx context.Context, collection, id string) ([]byte, error) {
	var doc []byte
	if err := s.pool.QueryRow(ctx, deleteSQL, collection, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("deleting %s %q: %w", collection, id, err)
	}
	return doc, nil
}

// Scan returns every document of the collection in insertion order.
func (s *Store) Scan(ctx context.Context, collection string) ([]storage.Record, error) {
	rows, err := s.pool.Query(ctx, scanSQL, collection)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", collection, err)
	}
	return pgx.CollectRows(rows, scanRecord)
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countSQL, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.CollectableRow) (storage.Record, error) {
	var r storage.Record
	err := row.Scan(&r.ID, &r.Doc, &r.CreatedAt)
	return r, err
}
