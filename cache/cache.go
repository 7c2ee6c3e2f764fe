package cache

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/lattice"
)

// Backends holds the connections the factory can build an L2 tier from.
type Backends struct {
	Redis  *redis.Client
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewL2 builds the L2 cache tier selected by the configured backend.
// CacheBackendAuto prefers redis, then the relational fallback, then a
// process-local memory tier.
func NewL2(backend lattice.CacheBackend, b Backends) (lattice.Cache, error) {
	switch backend {
	case lattice.CacheBackendRedis:
		if b.Redis == nil {
			return nil, errors.New("cache: redis backend selected but no client configured")
		}
		return NewRedis(b.Redis, WithRedisLogger(b.Logger)), nil

	case lattice.CacheBackendRelational:
		if b.Pool == nil {
			return nil, errors.New("cache: relational backend selected but no pool configured")
		}
		return NewRelational(b.Pool, b.Logger), nil

	case lattice.CacheBackendMemory:
		return NewMemory(), nil

	case lattice.CacheBackendAuto, "":
		if b.Redis != nil {
			return NewRedis(b.Redis, WithRedisLogger(b.Logger)), nil
		}
		if b.Pool != nil {
			return NewRelational(b.Pool, b.Logger), nil
		}
		return NewMemory(), nil

	default:
		return nil, errors.New("cache: unknown backend " + string(backend))
	}
}
