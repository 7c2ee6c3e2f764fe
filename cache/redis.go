package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/lattice"
)

// Compile-time interface check.
var _ lattice.Cache = (*Redis)(nil)

// Redis is the distributed L2 cache. Every backend failure degrades to a
// miss so a broken or slow redis never decides a check; invalidation
// failures are logged and left to TTL expiry as the safety net.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// RedisOption configures the redis cache.
type RedisOption func(*Redis)

// WithRedisPrefix overrides the key prefix (default "lattice:check:").
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithRedisLogger sets the structured logger.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis creates a redis-backed cache tier.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: "lattice:check:",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(key lattice.CacheKey) string {
	return r.prefix + strings.Join([]string{
		key.ZoneID, key.SubjectType, key.SubjectID,
		key.Permission, key.ObjectType, key.ObjectID,
	}, "|")
}

// Get returns a cached entry, if present. Errors degrade to a miss.
func (r *Redis) Get(ctx context.Context, key lattice.CacheKey) (*lattice.CacheEntry, bool) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("lattice: redis cache get failed", slog.Any("error", err))
		}
		return nil, false
	}
	var entry lattice.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		r.logger.Warn("lattice: redis cache entry corrupt", slog.Any("error", err))
		return nil, false
	}
	return &entry, true
}

// Set stores an entry with the given lifetime. Errors are logged only.
func (r *Redis) Set(ctx context.Context, key lattice.CacheKey, entry *lattice.CacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		r.logger.Warn("lattice: redis cache set failed", slog.Any("error", err))
	}
}

// InvalidateSubject evicts entries keyed by the subject in the zone.
func (r *Redis) InvalidateSubject(ctx context.Context, zoneID, subjectType, subjectID string) {
	r.deleteByPattern(ctx, r.prefix+zoneID+"|"+subjectType+"|"+subjectID+"|*")
}

// InvalidateObject evicts entries keyed by the object in the zone.
func (r *Redis) InvalidateObject(ctx context.Context, zoneID, objectType, objectID string) {
	r.deleteByPattern(ctx, r.prefix+zoneID+"|*|"+objectType+"|"+objectID)
}

// InvalidateZone evicts every entry in the zone.
func (r *Redis) InvalidateZone(ctx context.Context, zoneID string) {
	r.deleteByPattern(ctx, r.prefix+zoneID+"|*")
}

// deleteByPattern scans and unlinks matching keys. Failure here is
// tolerable: explicit invalidation is the fast path, TTL the safety net.
func (r *Redis) deleteByPattern(ctx context.Context, pattern string) {
	iter := r.client.Scan(ctx, 0, pattern, 256).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 256 {
			r.unlink(ctx, keys)
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("lattice: redis cache scan failed",
			slog.String("pattern", pattern), slog.Any("error", err))
	}
	if len(keys) > 0 {
		r.unlink(ctx, keys)
	}
}

func (r *Redis) unlink(ctx context.Context, keys []string) {
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		r.logger.Warn("lattice: redis cache unlink failed", slog.Any("error", err))
	}
}
