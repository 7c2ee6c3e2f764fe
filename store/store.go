// Package store defines the aggregate persistence interface. The tuple
// store and the resource int-id mapper define their own interfaces; the
// composite Store composes them. Backends: Postgres, SQLite, Mongo, Memory.
package store

import (
	"context"

	"github.com/xraph/lattice/resourceid"
	"github.com/xraph/lattice/tuple"
)

// Store is the aggregate persistence interface. A single backend
// (postgres, sqlite, mongo, memory) implements all of it.
type Store interface {
	tuple.Store
	resourceid.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
