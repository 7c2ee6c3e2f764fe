package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/tuple"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeCheckEntry struct {
	name string
	hook BeforeCheck
}
type afterCheckEntry struct {
	name string
	hook AfterCheck
}
type tupleWrittenEntry struct {
	name string
	hook TupleWritten
}
type tupleDeletedEntry struct {
	name string
	hook TupleDeleted
}
type hierarchyLinkedEntry struct {
	name string
	hook HierarchyLinked
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck     []beforeCheckEntry
	afterCheck      []afterCheckEntry
	tupleWritten    []tupleWrittenEntry
	tupleDeleted    []tupleDeletedEntry
	hierarchyLinked []hierarchyLinkedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, beforeCheckEntry{name, h})
	}
	if h, ok := p.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, afterCheckEntry{name, h})
	}
	if h, ok := p.(TupleWritten); ok {
		r.tupleWritten = append(r.tupleWritten, tupleWrittenEntry{name, h})
	}
	if h, ok := p.(TupleDeleted); ok {
		r.tupleDeleted = append(r.tupleDeleted, tupleDeletedEntry{name, h})
	}
	if h, ok := p.(HierarchyLinked); ok {
		r.hierarchyLinked = append(r.hierarchyLinked, hierarchyLinkedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, req any) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, req); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, req, result any) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, req, result); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// EmitTupleWritten notifies all plugins that implement TupleWritten.
func (r *Registry) EmitTupleWritten(ctx context.Context, t *tuple.Tuple) {
	for _, e := range r.tupleWritten {
		if err := e.hook.OnTupleWritten(ctx, t); err != nil {
			r.logHookError("OnTupleWritten", e.name, err)
		}
	}
}

// EmitTupleDeleted notifies all plugins that implement TupleDeleted.
func (r *Registry) EmitTupleDeleted(ctx context.Context, tupleID id.TupleID) {
	for _, e := range r.tupleDeleted {
		if err := e.hook.OnTupleDeleted(ctx, tupleID); err != nil {
			r.logHookError("OnTupleDeleted", e.name, err)
		}
	}
}

// EmitHierarchyLinked notifies all plugins that implement HierarchyLinked.
func (r *Registry) EmitHierarchyLinked(ctx context.Context, zoneID string, created int) {
	for _, e := range r.hierarchyLinked {
		if err := e.hook.OnHierarchyLinked(ctx, zoneID, created); err != nil {
			r.logHookError("OnHierarchyLinked", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Hook errors are never propagated —
// a broken plugin must not break authorization.
func (r *Registry) logHookError(hook, plugin string, err error) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("lattice: plugin hook failed",
		slog.String("hook", hook),
		slog.String("plugin", plugin),
		slog.Any("error", err),
	)
}
