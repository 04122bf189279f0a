// Package postgres implements the letterdesk store on PostgreSQL.
//
// Accounts, letters and messages each live in their own table. Form data,
// signatures and attachments are stored as JSONB columns so the schema
// stays stable while the document shapes evolve.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/avirel/letterdesk/store"
)

// Store is a PostgreSQL-backed store.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a PostgreSQL store from an sqlx handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a PostgreSQL store from a standard database handle.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect verifies connectivity and creates the schema if needed.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres: ping: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return err
	}

	s.logger.Debug("postgres store connected",
		"accounts", s.opts.accountsTable,
		"letters", s.opts.lettersTable,
		"messages", s.opts.messagesTable)
	return nil
}

// Close releases the database handle.
func (s *Store) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return store.ErrNotConnected
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("postgres: close: %w", err)
	}
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) != 1 {
		return store.ErrNotConnected
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL UNIQUE,
			credential_hash BYTEA NOT NULL,
			roles TEXT[] NOT NULL DEFAULT '{}',
			department TEXT NOT NULL DEFAULT '',
			section TEXT NOT NULL DEFAULT '',
			hosteller BOOLEAN NOT NULL DEFAULT FALSE,
			hostel_name TEXT NOT NULL DEFAULT '',
			roll_number TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, s.opts.accountsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			letter_type TEXT NOT NULL,
			form_data JSONB NOT NULL,
			signature_data JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`, s.opts.lettersTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_idx ON %s (owner_id, created_at)`,
			s.opts.lettersTable, s.opts.lettersTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			from_address TEXT NOT NULL,
			to_address TEXT NOT NULL,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			digital_signature TEXT NOT NULL DEFAULT '',
			public_key TEXT NOT NULL DEFAULT '',
			letter_id TEXT NOT NULL DEFAULT '',
			attachment JSONB,
			sent_at TIMESTAMPTZ NOT NULL
		)`, s.opts.messagesTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_idx ON %s (owner_id, sent_at DESC)`,
			s.opts.messagesTable, s.opts.messagesTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_to_idx ON %s (to_address, sent_at DESC)`,
			s.opts.messagesTable, s.opts.messagesTable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

var _ store.Store = (*Store)(nil)
