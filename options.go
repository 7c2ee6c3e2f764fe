package lattice

import (
	"log/slog"

	"github.com/xraph/lattice/plugin"
	"github.com/xraph/lattice/store"
	"github.com/xraph/lattice/tiger"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithGraphChecker sets the graph checker.
func WithGraphChecker(gc GraphChecker) Option { return func(e *Engine) { e.checker = gc } }

// WithL1Cache sets the in-process result cache.
func WithL1Cache(c Cache) Option { return func(e *Engine) { e.l1 = c } }

// WithL2Cache sets the distributed (or fallback) result cache.
func WithL2Cache(c Cache) Option { return func(e *Engine) { e.l2 = c } }

// WithTigerCache sets the bitmap cache.
func WithTigerCache(tc *tiger.Cache) Option { return func(e *Engine) { e.tiger = tc } }

// WithOwnerResolver sets the filesystem owner fast-path hook: when it
// reports the checking subject as the object's owner the graph is skipped.
func WithOwnerResolver(fn OwnerResolver) Option { return func(e *Engine) { e.ownerResolver = fn } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
