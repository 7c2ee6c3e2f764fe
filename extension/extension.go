// Package extension provides a Forge extension entry point for Lattice.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/lattice"
	"github.com/xraph/lattice/api"
	"github.com/xraph/lattice/cache"
	"github.com/xraph/lattice/plugin"
	"github.com/xraph/lattice/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "lattice"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Relationship-based access control engine (ReBAC) with tiered caching"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Lattice as a Forge extension.
type Extension struct {
	config      Config
	eng         *lattice.Engine
	apiHandler  *api.API
	logger      *slog.Logger
	latticeOpts []lattice.Option
	plugins     []plugin.Plugin
}

// New creates a Lattice Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying Lattice engine.
func (e *Extension) Engine() *lattice.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	// Register the engine in the DI container.
	if err := vessel.Provide(fapp.Container(), func() (*lattice.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("lattice: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := e.engineConfig()

	// Build lattice options.
	opts := make([]lattice.Option, 0, len(e.latticeOpts)+len(e.plugins)+5)
	opts = append(opts, lattice.WithLogger(logger))
	opts = append(opts, lattice.WithConfig(cfg))

	// Cache tiers built from config. User engine options appended below
	// override them.
	if cfg.EnableL1 == nil || *cfg.EnableL1 {
		opts = append(opts, lattice.WithL1Cache(cache.NewMemory(cache.WithMaxSize(cfg.L1MaxSize))))
	}
	l2, err := e.buildL2(fapp, cfg, logger)
	if err != nil {
		return err
	}
	opts = append(opts, lattice.WithL2Cache(l2))

	// Try to resolve store from DI container, fall back to option-provided store.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, lattice.WithStore(s))
	}

	// Append user-provided options (may override store, config, and caches).
	opts = append(opts, e.latticeOpts...)

	// Register lifecycle hook plugins.
	for _, x := range e.plugins {
		opts = append(opts, lattice.WithPlugin(x))
	}

	eng, err := lattice.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("lattice: create engine: %w", err)
	}
	e.eng = eng

	// Create API handler.
	e.apiHandler = api.New(eng, fapp.Router())

	// Register HTTP routes unless disabled.
	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("lattice: register routes: %w", err)
		}
	}

	return nil
}

// engineConfig maps the extension configuration onto the engine defaults.
func (e *Extension) engineConfig() lattice.Config {
	cfg := lattice.DefaultConfig()
	if e.config.MaxGraphDepth > 0 {
		cfg.MaxGraphDepth = e.config.MaxGraphDepth
	}
	if e.config.CacheBackend != "" {
		cfg.CacheBackend = lattice.CacheBackend(e.config.CacheBackend)
	}
	if e.config.CachePoolSize > 0 {
		cfg.CachePoolSize = e.config.CachePoolSize
	}
	if e.config.DisableL1 {
		f := false
		cfg.EnableL1 = &f
	}
	if e.config.L1MaxSize > 0 {
		cfg.L1MaxSize = e.config.L1MaxSize
	}
	return cfg
}

// buildL2 assembles the distributed cache tier. Explicitly configured
// clients win, then clients registered in the DI container, then the
// factory's auto fallback.
func (e *Extension) buildL2(fapp forge.App, cfg lattice.Config, logger *slog.Logger) (lattice.Cache, error) {
	b := cache.Backends{Logger: logger}

	if e.config.CacheRedisAddr != "" {
		b.Redis = redis.NewClient(&redis.Options{
			Addr:     e.config.CacheRedisAddr,
			PoolSize: cfg.CachePoolSize,
		})
	} else if c, err := forge.Inject[*redis.Client](fapp.Container()); err == nil {
		b.Redis = c
	}

	if e.config.CacheDSN != "" {
		pc, err := pgxpool.ParseConfig(e.config.CacheDSN)
		if err != nil {
			return nil, fmt.Errorf("lattice: parse cache dsn: %w", err)
		}
		if cfg.CachePoolSize > 0 {
			pc.MaxConns = int32(cfg.CachePoolSize)
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), pc)
		if err != nil {
			return nil, fmt.Errorf("lattice: connect cache pool: %w", err)
		}
		b.Pool = pool
	} else if p, err := forge.Inject[*pgxpool.Pool](fapp.Container()); err == nil {
		b.Pool = p
	}

	l2, err := cache.NewL2(cfg.CacheBackend, b)
	if err != nil {
		return nil, fmt.Errorf("lattice: build cache tier: %w", err)
	}
	return l2, nil
}

// Start begins the lattice engine and runs migrations if enabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("lattice: extension not initialized")
	}

	// Run migrations unless disabled.
	if !e.config.DisableMigrate {
		s := e.eng.Store()
		if s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("lattice: migration failed: %w", err)
			}
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the lattice engine, flushing any deferred writes.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("lattice: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("lattice: no store configured")
	}
	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all lattice API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
