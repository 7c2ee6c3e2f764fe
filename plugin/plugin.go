// Package plugin defines the plugin system for Lattice.
// Plugins are notified of lifecycle events (check performed, tuple written,
// hierarchy linked, etc.) and can react — audit logging, metrics,
// governance analytics feeds.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/tuple"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before a permission check is evaluated.
// The req parameter is *lattice.CheckRequest (passed as any to avoid import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, req any) error
}

// AfterCheck is called after a permission check completes.
// The req parameter is *lattice.CheckRequest; result is *lattice.CheckResult.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Tuple lifecycle hooks
// ──────────────────────────────────────────────────

// TupleWritten is called after a relationship tuple is written.
type TupleWritten interface {
	OnTupleWritten(ctx context.Context, t *tuple.Tuple) error
}

// TupleDeleted is called after a relationship tuple is deleted.
type TupleDeleted interface {
	OnTupleDeleted(ctx context.Context, tupleID id.TupleID) error
}

// ──────────────────────────────────────────────────
// Hierarchy lifecycle hooks
// ──────────────────────────────────────────────────

// HierarchyLinked is called after a hierarchy batch creates parent edges.
type HierarchyLinked interface {
	OnHierarchyLinked(ctx context.Context, zoneID string, created int) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
