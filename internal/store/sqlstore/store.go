// Package sqlstore implements store.Ledger on database/sql for Postgres
// (pgx stdlib driver) and SQLite (go-sqlite3).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rusl-cricket/attendance/internal/store"
)

// Store persists the attendance ledger in a SQL database.
type Store struct {
	db *store.DB
	d  dialect
}

var _ store.Ledger = (*Store)(nil)

// New creates a store over an open connection pool.
func New(db *store.DB) (*Store, error) {
	d, err := dialectFor(db.Driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, d: d}, nil
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Client.ExecContext(ctx, s.d.schema()); err != nil {
		return fmt.Errorf("migrate %s schema: %w", s.d.name(), err)
	}
	return nil
}

// View runs fn in a read-only transaction so every query sees one snapshot.
func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	return s.withTx(ctx, s.d.viewOptions(), func(q *queries) error { return fn(q) })
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.withTx(ctx, nil, func(q *queries) error { return fn(q) })
}

func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(q *queries) error) error {
	tx, err := s.db.Client.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&queries{q: tx, d: s.d}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
