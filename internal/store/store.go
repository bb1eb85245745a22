// Package store is the only writer of shared mutable state: the jobs table,
// the wallets, and the append-only ledger. Every terminal job write is
// guarded so retried and duplicated messages are no-ops.
package store

import (
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/tdnguyen-dev/recognition-be/shared/postgresql"
)

// Store handles all database operations for the pipeline
type Store struct {
	db     *sqlx.DB
	pg     *postgresql.Client
	logger *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(pg *postgresql.Client, logger *slog.Logger) *Store {
	return &Store{
		db:     pg.GetDB(),
		pg:     pg,
		logger: logger,
	}
}
